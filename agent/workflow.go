package agent

import (
	"errors"

	"github.com/ensembleai/ensemble/core"
)

// runChildCollect drives one child run, forwarding every event it yields
// through emit while tracking the child's last content-bearing event. The
// returned content is nil when the child produced no content.
func runChildCollect(
	child core.Agent,
	ictx *core.InvocationContext,
	input *core.Content,
	emit core.EmitFunc,
) (*core.Content, error) {
	var last *core.Content
	err := child.Run(ictx, input, func(ev core.Event) error {
		if ev.HasContent() {
			last = ev.Content
		}
		return emit(ev)
	})
	return last, err
}

// isAbort reports whether a child error must propagate unchanged instead of
// being converted into a diagnostic event: the consumer stopped taking events
// or the invocation was cancelled.
func isAbort(ictx *core.InvocationContext, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrStopped) {
		return true
	}
	return ictx.Err() != nil
}

// functionCalls extracts the ordered FunctionCall parts from content.
func functionCalls(c *core.Content) []core.FunctionCall {
	if c == nil {
		return nil
	}
	var calls []core.FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}
