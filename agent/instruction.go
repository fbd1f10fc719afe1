package agent

import (
	"fmt"
	"regexp"

	"github.com/ensembleai/ensemble/core"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from session state, environment, etc.
type Provider interface {
	Instruction(*core.ReadonlyContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.ReadonlyContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.ReadonlyContext) (string, error) { return f(rc) }

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way. Static text
// supports {key} placeholders resolved against the frozen session state.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.ReadonlyContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_:]*)\}`)

// Resolve returns the instruction text, invoking the provider if needed.
// Static text is rendered against the read-only context: {key} placeholders
// are substituted with the session state value under key; unknown keys render
// as an empty string.
func (i Instruction) Resolve(rc *core.ReadonlyContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(rc)
	}
	if rc == nil {
		return i.text, nil
	}
	rendered := placeholderPattern.ReplaceAllStringFunc(i.text, func(match string) string {
		key := match[1 : len(match)-1]
		if v, ok := rc.State(key); ok {
			return fmt.Sprintf("%v", v)
		}
		return ""
	})
	return rendered, nil
}
