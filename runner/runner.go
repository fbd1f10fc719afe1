// Package runner drives one user turn through an agent tree.
//
// The Runner is the top-level loop of the framework. For each call it
// resolves a session, synthesizes and persists the user event, builds the
// invocation context, and drives the root agent while forwarding every
// produced event to the caller, to the session store, and to registered
// plugins. Agents emit synchronously; the Runner bridges that emission onto
// the buffered channel it returns, one producer goroutine per invocation.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/ensembleai/ensemble/artifact"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
	"github.com/ensembleai/ensemble/memory"
	"github.com/ensembleai/ensemble/plugin"
	"github.com/ensembleai/ensemble/session"
)

// Options configures a Runner instance. All services default to in-memory
// implementations so a Runner is usable without any external dependencies.
type Options struct {
	// AppName scopes all sessions created or resolved by this Runner.
	AppName string

	// SessionService persists sessions, state and event history.
	SessionService core.SessionService

	// ArtifactService stores binary artifacts reachable from tool contexts.
	ArtifactService core.ArtifactStore

	// MemoryService backs memory search and storage for tool contexts.
	MemoryService core.MemoryStore

	// Plugins observe the invocation lifecycle. Observers are passive: no
	// return value is consumed and failures are not isolated.
	Plugins *plugin.Manager

	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger

	// RunConfig carries per-invocation execution limits.
	RunConfig core.RunConfig

	// CacheConfig controls the model response cache.
	CacheConfig core.CacheConfig
}

// RunOptions selects the session a single Run call operates on.
type RunOptions struct {
	// SessionID resolves an existing session. Empty means create a new one.
	SessionID string

	// NewSession forces creation of a fresh session even when SessionID is set.
	NewSession bool

	// InitialState seeds the state of a newly created session. Ignored when
	// an existing session is resolved.
	InitialState map[string]any
}

// Runner executes complete user turns against a fixed root agent.
//
// A Runner is safe for concurrent use across distinct session ids. Two
// concurrent runs against the same session id race on session state and must
// be serialized by the caller.
type Runner struct {
	root    core.Agent
	appName string

	sessions  core.SessionService
	artifacts core.ArtifactStore
	memories  core.MemoryStore
	plugins   *plugin.Manager
	logger    logging.Logger

	runConfig   core.RunConfig
	cacheConfig core.CacheConfig
}

// New creates a Runner for the given root agent.
func New(root core.Agent, optFns ...func(o *Options)) (*Runner, error) {
	if root == nil {
		return nil, fmt.Errorf("runner: root agent must not be nil")
	}

	opts := Options{
		AppName:         "ensemble",
		SessionService:  session.NewInMemoryService(),
		ArtifactService: artifact.NewInMemoryStore(),
		MemoryService:   memory.NewInMemoryStore(),
		Plugins:         plugin.NewManager(),
		Logger:          logging.NoOpLogger{},
		RunConfig:       core.DefaultRunConfig(),
		CacheConfig:     core.DefaultCacheConfig(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Plugins == nil {
		opts.Plugins = plugin.NewManager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		root:        root,
		appName:     opts.AppName,
		sessions:    opts.SessionService,
		artifacts:   opts.ArtifactService,
		memories:    opts.MemoryService,
		plugins:     opts.Plugins,
		logger:      opts.Logger,
		runConfig:   opts.RunConfig,
		cacheConfig: opts.CacheConfig,
	}, nil
}

// AppName returns the application scope of this Runner.
func (r *Runner) AppName() string { return r.appName }

// SessionService exposes the backing session store, primarily so callers can
// pre-create sessions or inspect history after a run.
func (r *Runner) SessionService() core.SessionService { return r.sessions }

// Run executes one user turn and returns a forward-only event stream.
//
// The user event is synthesized and persisted before the agent tree runs, so
// agents always see the triggering message at the tail of session history.
// Every event produced by the tree is persisted, its state delta applied, and
// plugin observers notified before the event is handed to the caller. A
// transfer directive on a forwarded event stops consumption of the remaining
// stream. Any uncaught failure or panic from the tree becomes one final event
// authored "system".
//
// The channel is closed when the invocation completes. Abandoning the channel
// is the supported cancellation path: cancel ctx and stop receiving.
func (r *Runner) Run(ctx context.Context, userID string, message *core.Content, optFns ...func(o *RunOptions)) (<-chan core.Event, error) {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	sess, err := r.resolveSession(userID, runOpts)
	if err != nil {
		return nil, err
	}

	invocationID := core.NewID()

	ictx := core.NewInvocationContext(
		ctx,
		invocationID,
		sess,
		r.root,
		r.sessions,
		r.artifacts,
		r.memories,
		r.runConfig,
		r.cacheConfig,
		r.logger,
	)

	// The user event enters the log before the tree runs. The same content
	// pointer lands in session history and in the agent's message argument.
	userEvent := core.NewUserContentEvent(invocationID, message)
	if err := r.sessions.AppendEvent(r.appName, userID, sess.ID, userEvent); err != nil {
		return nil, fmt.Errorf("append user event: %w", err)
	}
	ictx.AddEvent(userEvent)
	r.plugins.UserMessage(ictx, message)
	r.plugins.Event(ictx, userEvent)

	bufferSize := r.runConfig.EventBufferSize
	if bufferSize < 0 {
		bufferSize = 0
	}
	events := make(chan core.Event, bufferSize)

	go r.produce(ctx, ictx, userID, message, userEvent, events)

	return events, nil
}

// RunSync executes one turn and collects the full event sequence.
func (r *Runner) RunSync(ctx context.Context, userID string, message *core.Content, optFns ...func(o *RunOptions)) ([]core.Event, error) {
	ch, err := r.Run(ctx, userID, message, optFns...)
	if err != nil {
		return nil, err
	}

	var collected []core.Event
	for ev := range ch {
		collected = append(collected, ev)
	}
	if err := ctx.Err(); err != nil {
		return collected, err
	}
	return collected, nil
}

func (r *Runner) resolveSession(userID string, opts RunOptions) (*core.Session, error) {
	if opts.NewSession || opts.SessionID == "" {
		sess, err := r.sessions.Create(r.appName, userID, opts.InitialState)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		r.logger.Debug("runner.session.created", "session_id", sess.ID, "user_id", userID)
		return sess, nil
	}

	sess, err := r.sessions.Get(r.appName, userID, opts.SessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session %s: %w", opts.SessionID, err)
	}
	return sess, nil
}

// produce is the single producer goroutine of one invocation. It drives the
// root agent, fanning each emitted event out to persistence, plugins and the
// caller, and owns the channel close.
func (r *Runner) produce(
	ctx context.Context,
	ictx *core.InvocationContext,
	userID string,
	message *core.Content,
	userEvent core.Event,
	events chan<- core.Event,
) {
	defer close(events)

	rootName := r.root.Name()
	sessionID := ictx.Session.ID

	var runErr error
	defer func() {
		r.plugins.AgentEnd(ictx, rootName, runErr)
	}()

	r.plugins.AgentStart(ictx, rootName)
	r.logger.Debug("runner.invocation.start",
		"invocation_id", ictx.InvocationID,
		"session_id", sessionID,
		"agent", rootName,
	)

	// Caller sees the user event first so the stream is self-contained.
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
		return
	case events <- userEvent:
	}

	stopped := false
	emit := func(ev core.Event) error {
		if stopped {
			return core.ErrStopped
		}

		if err := r.sessions.AppendEvent(r.appName, userID, sessionID, ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		ictx.AddEvent(ev)

		if ev.Actions != nil && len(ev.Actions.StateDelta) > 0 {
			if err := r.sessions.UpdateState(r.appName, userID, sessionID, ev.Actions.StateDelta); err != nil {
				return fmt.Errorf("apply state delta: %w", err)
			}
			ictx.ApplyStateDelta(ev.Actions.StateDelta)
		}

		r.plugins.Event(ictx, ev)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case events <- ev:
		}

		if ev.Actions != nil && ev.Actions.TransferToAgent != nil && *ev.Actions.TransferToAgent != "" {
			r.logger.Debug("runner.transfer.requested",
				"invocation_id", ictx.InvocationID,
				"target", *ev.Actions.TransferToAgent,
			)
			stopped = true
		}
		return nil
	}

	runErr = r.runRoot(ictx, message, emit)

	if runErr != nil && !errors.Is(runErr, core.ErrStopped) && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		r.logger.Error("runner.invocation.failed",
			"invocation_id", ictx.InvocationID,
			"session_id", sessionID,
			"error", runErr,
		)
		failure := core.NewErrorEvent(ictx.InvocationID, core.AuthorSystem, runErr)
		if err := r.sessions.AppendEvent(r.appName, userID, sessionID, failure); err != nil {
			r.logger.Error("runner.failure_event.append", "error", err)
		}
		ictx.AddEvent(failure)
		r.plugins.Event(ictx, failure)
		select {
		case <-ctx.Done():
		case events <- failure:
		}
		return
	}

	r.logger.Debug("runner.invocation.done",
		"invocation_id", ictx.InvocationID,
		"session_id", sessionID,
	)
}

// runRoot invokes the root agent with a panic guard. A panicking agent tree
// surfaces as an error, which produce turns into the "system" failure event.
func (r *Runner) runRoot(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent tree panicked: %v", rec)
		}
	}()
	return r.root.Run(ictx, message, emit)
}
