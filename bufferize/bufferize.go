// Package bufferize lowers the tensor-level (hlo) operations of a memir
// module to buffer-level (memref) operations.
//
// Tensor operations are immutable, shape-polymorphic values; buffer
// operations read and write addressable memory with an explicit layout
// (offset + per-dimension strides). The conversion preserves element-wise
// semantics while producing, wherever legally possible, a zero-copy strided
// view instead of materializing new memory. For hlo.dynamic_broadcast_in_dim
// the per-dimension broadcast decision may only be decidable at run time, in
// which case the stride is computed by emitted scalar operations (a compare
// and select per mapped dimension).
//
// Three operation kinds are supported: hlo.reshape (for unranked operands),
// hlo.dynamic_reshape and hlo.dynamic_broadcast_in_dim. Each kind has a
// conversion Rule; a Registry holds the fixed kind-to-rule table. Bufferize
// runs the registry over a whole module.
package bufferize

import (
	"github.com/gomlx/memir"
	"github.com/gomlx/memir/internal/optypes"
	"github.com/pkg/errors"
)

var (
	// ErrNotApplicable is returned by a Rule whose preconditions are not met
	// for a specific operation instance. The caller may try another lowering
	// path or keep the operation in tensor form; the rule performed no
	// mutation.
	ErrNotApplicable = errors.New("bufferization rule not applicable")

	// ErrOperandUnresolved is returned when a required operand has no
	// resolved value (or buffer) yet. No mutation was performed.
	ErrOperandUnresolved = errors.New("operand not resolved to a buffer")
)

// BufferRelation is the declared relationship between an operation's result
// buffer and its operand buffer.
type BufferRelation int

const (
	// RelationNone leaves the aliasing unconstrained: the result may or may
	// not share storage with the operand. Downstream passes must not assume
	// aliasing.
	RelationNone BufferRelation = iota

	// RelationEquivalent declares the result shares the operand's storage
	// (same memory, compatible views).
	RelationEquivalent
)

// String implements fmt.Stringer.
func (r BufferRelation) String() string {
	switch r {
	case RelationNone:
		return "none"
	case RelationEquivalent:
		return "equivalent"
	}
	return "invalid"
}

// Driver is the contract the buffer-assignment driver offers to rules while
// converting one operation.
type Driver interface {
	// Func returns the function under construction, receiving the emitted
	// buffer-level statements.
	Func() *memir.Function

	// Resolve returns the value in the function under construction that
	// corresponds to the given operand of the source operation. It returns
	// an error wrapping ErrOperandUnresolved if the operand is not available.
	Resolve(operand *memir.Value) (*memir.Value, error)

	// GetBuffer resolves the buffer backing the given tensor-valued operand,
	// inserting a bufferization.to_buffer cast if the operand is still in
	// tensor form. It returns an error wrapping ErrOperandUnresolved if the
	// operand cannot be buffered.
	GetBuffer(operand *memir.Value) (*memir.Value, error)

	// ReplaceResultsWithBuffers substitutes the operation's tensor results
	// with the given buffer values in the rewritten program.
	ReplaceResultsWithBuffers(op *memir.Statement, buffers []*memir.Value)
}

// Rule converts one operation kind to buffer form, and declares the buffer
// semantics of the converted operation.
type Rule interface {
	// Convert rewrites op into buffer-level statements emitted through drv,
	// registering the replacement buffers with
	// Driver.ReplaceResultsWithBuffers. On failure it returns an error
	// wrapping ErrNotApplicable or ErrOperandUnresolved, having performed no
	// mutation.
	Convert(op *memir.Statement, drv Driver) error

	// BufferizesToMemoryRead reports whether the converted operation reads
	// its operand's memory.
	BufferizesToMemoryRead() bool

	// BufferizesToMemoryWrite reports whether the converted operation writes
	// its operand's memory.
	BufferizesToMemoryWrite() bool

	// BufferRelation declares the aliasing between result and operand.
	BufferRelation() BufferRelation
}

// MaterializationPolicy decides, per operation, whether the result of a
// broadcast must be densely packed rather than left as a strided view --
// typically because a downstream consumer requires identity-layout memory.
// Its semantics are defined entirely by the caller; the rules treat it as an
// uninterpreted predicate and never mutate any state behind it.
type MaterializationPolicy func(op *memir.Statement) bool

// Options configures a bufferization run. It is read-only once the run
// starts.
type Options struct {
	// MustMaterialize is the materialization policy consulted by the
	// hlo.dynamic_broadcast_in_dim rule. nil means never materialize.
	MustMaterialize MaterializationPolicy
}

// Registry is the fixed table associating each supported operation kind with
// its conversion rule.
type Registry struct {
	rules map[optypes.OpType]Rule
}

// NewRegistry builds the rule table over the three supported operation kinds.
// The materialization policy in opts is injected into the broadcast rule.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		rules: map[optypes.OpType]Rule{
			optypes.Reshape:               ReshapeRule(),
			optypes.DynamicReshape:        DynamicReshapeRule(),
			optypes.DynamicBroadcastInDim: DynamicBroadcastInDimRule(opts.MustMaterialize),
		},
	}
}

// RuleFor returns the conversion rule registered for the operation's kind,
// or false if the operation is not one of the supported kinds.
func (r *Registry) RuleFor(op *memir.Statement) (Rule, bool) {
	rule, ok := r.rules[op.OpType]
	return rule, ok
}
