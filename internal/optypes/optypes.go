// Package optypes defines OpType and lists the operations supported by the IR.
package optypes

import (
	"strings"

	"github.com/gomlx/memir/internal/utils"
)

// OpType is an enum of all operations the IR can hold, across the dialects
// involved in bufferization: hlo (tensor level), memref/arith/tensor
// (buffer level) and func.
type OpType int

//go:generate go tool enumer -type=OpType optypes.go

const (
	Invalid OpType = iota
	FuncReturn

	// Tensor-level (hlo dialect) operations, the inputs of bufferization.

	Constant
	Reshape
	DynamicReshape
	DynamicBroadcastInDim

	// Buffer-level operations emitted by bufferization.

	ArithConstant
	ArithMulI
	ArithCmpI
	ArithSelect
	ArithIndexCast

	MemRefDim
	MemRefCast
	MemRefReshape
	MemRefReinterpretCast
	MemRefAlloc
	MemRefCopy

	TensorExtract

	ToBuffer

	// Last should always be kept the last, it is used as a counter/marker.
	Last
)

var (
	// mlirMappings maps OpType to the corresponding MLIR operation name, when
	// the default dialect-prefixed "snake case" derivation doesn't work.
	mlirMappings = map[OpType]string{
		FuncReturn: "func.return",
		ToBuffer:   "bufferization.to_buffer",
		ArithMulI:  "arith.muli",
		ArithCmpI:  "arith.cmpi",
	}
)

// ToMLIR returns the MLIR name of the operation, including the dialect prefix.
func (op OpType) ToMLIR() string {
	if name, ok := mlirMappings[op]; ok {
		return name
	}
	name := op.String()
	switch {
	case strings.HasPrefix(name, "Arith"):
		return "arith." + utils.ToSnakeCase(strings.TrimPrefix(name, "Arith"))
	case strings.HasPrefix(name, "MemRef"):
		return "memref." + utils.ToSnakeCase(strings.TrimPrefix(name, "MemRef"))
	case strings.HasPrefix(name, "Tensor"):
		return "tensor." + utils.ToSnakeCase(strings.TrimPrefix(name, "Tensor"))
	default:
		return "hlo." + utils.ToSnakeCase(name)
	}
}

// IsBufferLevel reports whether the operation operates on buffers (or the
// scalars feeding them) as opposed to tensor values.
func (op OpType) IsBufferLevel() bool {
	return op >= ArithConstant && op <= ToBuffer
}
