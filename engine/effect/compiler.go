package effect

import (
	"context"
	"strings"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// Compiler turns an effect name and compiler parameters into bytecode.
type Compiler interface {
	// Compile resolves the permutation of effectName selected by params.
	// Generation of the bytecode itself may complete later through the returned task.
	//
	// Parameters:
	//   - ctx: cancels waiting for shared work, not the compilation itself
	//   - effectName: the registered effect name
	//   - params: the compiler parameters
	//
	// Returns:
	//   - *CompilerResults: the used parameters, messages and bytecode task
	//   - error: ErrEffectNotFound for unknown effects; compile failures are reported as messages
	Compile(ctx context.Context, effectName string, params *CompilerParameters) (*CompilerResults, error)

	// ResetCache drops cached bytecode built from any of the modified sources.
	//
	// Parameters:
	//   - modifiedSources: shader class names whose sources changed
	ResetCache(modifiedSources []string)

	// SourcePath returns the file backing a shader class, if any.
	//
	// Parameters:
	//   - className: the shader class name
	//
	// Returns:
	//   - string: the file path
	//   - bool: true if the class is file backed
	SourcePath(className string) (string, bool)
}

// CompilerParameters are the parameters an effect is compiled with.
type CompilerParameters struct {
	parameter.ParameterCollection

	// TaskPriority orders asynchronous compilations; negative priorities compile inline.
	TaskPriority int
}

// NewCompilerParameters creates an empty parameter set.
func NewCompilerParameters() *CompilerParameters {
	return &CompilerParameters{
		ParameterCollection: parameter.NewParameterCollection(parameter.WithName("compiler")),
	}
}

// Contains reports whether every used parameter of a previous compilation matches these parameters.
func (p *CompilerParameters) Contains(used parameter.ParameterCollection) bool {
	return parameter.ContainsAll(p.ParameterCollection, used)
}

// Hash returns the content hash of the parameters.
func (p *CompilerParameters) Hash() common.ObjectID {
	return parameter.HashCollection(p.ParameterCollection)
}

// Severity is the level of a compiler message.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Message is a compiler diagnostic.
type Message struct {
	Severity Severity
	Text     string
}

func hasErrors(messages []Message) bool {
	for _, m := range messages {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

func joinMessages(messages []Message) string {
	var parts []string
	for _, m := range messages {
		if m.Severity == SeverityError {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "; ")
}

// BytecodeResult is the outcome of generating bytecode.
type BytecodeResult struct {
	Bytecode *Bytecode
	Messages []Message
}

// HasErrors reports whether generation failed.
func (r BytecodeResult) HasErrors() bool {
	return r.Bytecode == nil || hasErrors(r.Messages)
}

// BytecodeTask completes with the generated bytecode.
type BytecodeTask = Task[BytecodeResult]

// CompilerResults is the outcome of Compiler.Compile.
type CompilerResults struct {
	EffectName     string
	Bytecode       *BytecodeTask
	UsedParameters parameter.ParameterCollection
	Messages       []Message
}

// HasErrors reports whether the permutation could not be resolved.
func (r *CompilerResults) HasErrors() bool {
	return hasErrors(r.Messages)
}
