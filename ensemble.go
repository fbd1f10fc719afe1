// Package ensemble provides a high-level façade over the runner and service
// abstractions (sessions, artifacts, memory & logging) enabling rapid
// construction of multi-agent reasoning systems. Most applications interact
// with this package by:
//  1. Building an agent tree (model, sequential, parallel, loop, custom)
//  2. Creating an Ensemble via New() (optionally overriding default in-memory services)
//  3. Running user turns as a stream (Run) or collected (RunSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply durable store
// implementations and a structured logger.
package ensemble

import (
	"context"

	"github.com/ensembleai/ensemble/artifact"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
	"github.com/ensembleai/ensemble/memory"
	"github.com/ensembleai/ensemble/plugin"
	"github.com/ensembleai/ensemble/runner"
	"github.com/ensembleai/ensemble/session"
)

// Options configures the Ensemble instance.
type Options struct {
	// AppName scopes all sessions created by this instance.
	AppName string

	// RunConfig carries per-invocation execution limits (model call cap, tool
	// iteration cap, event buffering).
	RunConfig core.RunConfig

	// CacheConfig controls the model response cache.
	CacheConfig core.CacheConfig

	// Stores (defaults to in-memory implementations if not provided)
	SessionService  core.SessionService
	ArtifactService core.ArtifactStore
	MemoryService   core.MemoryStore

	// Plugins observe the invocation lifecycle.
	Plugins []plugin.Plugin

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Ensemble is the high-level façade aggregating the runner and its services.
type Ensemble struct {
	opts   Options
	runner *runner.Runner
}

// New creates a new Ensemble instance driving the given root agent. Any unset
// service is initialized with an in-memory implementation.
func New(root core.Agent, optFns ...func(o *Options)) (*Ensemble, error) {
	opts := Options{
		AppName:         "ensemble",
		RunConfig:       core.DefaultRunConfig(),
		CacheConfig:     core.DefaultCacheConfig(),
		SessionService:  session.NewInMemoryService(),
		ArtifactService: artifact.NewInMemoryStore(),
		MemoryService:   memory.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r, err := runner.New(root, func(o *runner.Options) {
		o.AppName = opts.AppName
		o.SessionService = opts.SessionService
		o.ArtifactService = opts.ArtifactService
		o.MemoryService = opts.MemoryService
		o.Plugins = plugin.NewManager(opts.Plugins...)
		o.Logger = opts.Logger
		o.RunConfig = opts.RunConfig
		o.CacheConfig = opts.CacheConfig
	})
	if err != nil {
		return nil, err
	}

	return &Ensemble{opts: opts, runner: r}, nil
}

// Runner exposes the underlying runner for advanced use.
func (e *Ensemble) Runner() *runner.Runner { return e.runner }

// SessionService exposes the backing session store.
func (e *Ensemble) SessionService() core.SessionService { return e.opts.SessionService }

// Run executes one user turn and returns a forward-only event stream.
func (e *Ensemble) Run(ctx context.Context, userID string, message *core.Content, optFns ...func(o *runner.RunOptions)) (<-chan core.Event, error) {
	return e.runner.Run(ctx, userID, message, optFns...)
}

// RunSync is a synchronous helper that drains the event stream and returns
// the collected events.
func (e *Ensemble) RunSync(ctx context.Context, userID string, message *core.Content, optFns ...func(o *runner.RunOptions)) ([]core.Event, error) {
	return e.runner.RunSync(ctx, userID, message, optFns...)
}
