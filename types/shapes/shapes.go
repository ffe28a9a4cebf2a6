// Package shapes defines the Shape of the values handled by the IR: tensors,
// buffers (memrefs) with explicit layouts, scalars and index values.
//
// Unlike tensor shapes used for fully static graph building, dimensions here
// may be dynamic (only known at run time), marked with DynamicSize. Buffers
// additionally carry a Layout: a base offset plus one stride per dimension,
// each of which may also be dynamic. Rank is always static, except for the
// explicitly unranked kinds.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir/internal/utils"
)

// DynamicSize marks a dimension size, stride or offset whose value is only
// known at run time.
const DynamicSize = -1

// Kind discriminates the different families of value types in the IR.
type Kind int

const (
	KindInvalid Kind = iota

	// KindTensor is a ranked tensor, the value-semantic form. Dimensions may
	// be DynamicSize.
	KindTensor

	// KindUnrankedTensor is a tensor whose rank is unknown at compile time.
	KindUnrankedTensor

	// KindBuffer is a ranked buffer (memref): addressable memory with an
	// explicit layout.
	KindBuffer

	// KindUnrankedBuffer is a buffer of unknown rank.
	KindUnrankedBuffer

	// KindScalar is a plain scalar of the shape's DType (e.g. the i1 result
	// of a comparison).
	KindScalar

	// KindIndex is a scalar index value, used for sizes, strides and offsets.
	KindIndex
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTensor:
		return "tensor"
	case KindUnrankedTensor:
		return "unranked tensor"
	case KindBuffer:
		return "buffer"
	case KindUnrankedBuffer:
		return "unranked buffer"
	case KindScalar:
		return "scalar"
	case KindIndex:
		return "index"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Layout describes how the logical indices of a buffer map to memory: a base
// offset plus one stride per dimension, in element units. Offset and strides
// may be DynamicSize, meaning the concrete value is computed at run time.
//
// A nil *Layout on a buffer Shape means the identity (row-major, offset 0)
// layout.
type Layout struct {
	Offset  int
	Strides []int
}

// Clone returns a deep copy of the layout.
func (l *Layout) Clone() *Layout {
	if l == nil {
		return nil
	}
	return &Layout{Offset: l.Offset, Strides: slices.Clone(l.Strides)}
}

// Equal compares offset and strides.
func (l *Layout) Equal(l2 *Layout) bool {
	if l == nil || l2 == nil {
		return l == l2
	}
	return l.Offset == l2.Offset && slices.Equal(l.Strides, l2.Strides)
}

// ToMLIR renders the layout as an MLIR strided layout attribute.
func (l *Layout) ToMLIR() string {
	parts := make([]string, len(l.Strides))
	for i, stride := range l.Strides {
		parts[i] = dimToMLIR(stride)
	}
	offset := dimToMLIR(l.Offset)
	return fmt.Sprintf("strided<[%s], offset: %s>", strings.Join(parts, ", "), offset)
}

// Shape represents the type of a value in the IR.
//
// Use the Make* constructors. The zero Shape is invalid.
type Shape struct {
	Kind  Kind
	DType dtypes.DType // Undefined for KindIndex.

	// Dimensions has the per-axis sizes, possibly DynamicSize. It is nil for
	// unranked kinds, scalars and indices.
	Dimensions []int

	// Layout is only meaningful for KindBuffer. nil means identity
	// (row-major) layout.
	Layout *Layout
}

// Make returns a ranked tensor Shape with the given dimensions, any of which
// may be DynamicSize.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Kind: KindTensor, DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 && dim != DynamicSize {
			exceptions.Panicf("shapes.Make(%s): dimensions must be positive or DynamicSize", s)
		}
	}
	return s
}

// MakeUnranked returns an unranked tensor Shape.
func MakeUnranked(dtype dtypes.DType) Shape {
	return Shape{Kind: KindUnrankedTensor, DType: dtype}
}

// MakeBuffer returns a ranked buffer (memref) Shape with the identity layout.
func MakeBuffer(dtype dtypes.DType, dimensions ...int) Shape {
	s := Make(dtype, dimensions...)
	s.Kind = KindBuffer
	return s
}

// MakeUnrankedBuffer returns a buffer Shape of unknown rank.
func MakeUnrankedBuffer(dtype dtypes.DType) Shape {
	return Shape{Kind: KindUnrankedBuffer, DType: dtype}
}

// Scalar returns a scalar Shape for the given dtype.
func Scalar(dtype dtypes.DType) Shape {
	return Shape{Kind: KindScalar, DType: dtype}
}

// Index returns the scalar index Shape.
func Index() Shape {
	return Shape{Kind: KindIndex}
}

// WithLayout returns a copy of the buffer shape with the given layout.
// It panics if the shape is not a ranked buffer or if the number of strides
// doesn't match the rank.
func (s Shape) WithLayout(offset int, strides []int) Shape {
	if s.Kind != KindBuffer {
		exceptions.Panicf("Shape.WithLayout: %s is not a ranked buffer", s)
	}
	if len(strides) != s.Rank() {
		exceptions.Panicf("Shape.WithLayout: got %d strides for rank %d (%s)", len(strides), s.Rank(), s)
	}
	s.Dimensions = slices.Clone(s.Dimensions)
	s.Layout = &Layout{Offset: offset, Strides: slices.Clone(strides)}
	return s
}

// Ok returns whether this is a valid Shape. The zero Shape is invalid.
func (s Shape) Ok() bool { return s.Kind != KindInvalid }

// Rank of the shape, that is, the number of dimensions. It is 0 for scalars,
// indices and unranked kinds -- check IsUnranked separately.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsTensor reports whether the shape is a (ranked or unranked) tensor.
func (s Shape) IsTensor() bool {
	return s.Kind == KindTensor || s.Kind == KindUnrankedTensor
}

// IsBuffer reports whether the shape is a (ranked or unranked) buffer.
func (s Shape) IsBuffer() bool {
	return s.Kind == KindBuffer || s.Kind == KindUnrankedBuffer
}

// IsScalar returns whether the shape holds a single element: a rank-0
// tensor, a KindScalar or a KindIndex.
func (s Shape) IsScalar() bool {
	switch s.Kind {
	case KindScalar, KindIndex:
		return true
	case KindTensor:
		return s.Rank() == 0
	}
	return false
}

// IsUnranked reports whether the rank is unknown at compile time.
func (s Shape) IsUnranked() bool {
	return s.Kind == KindUnrankedTensor || s.Kind == KindUnrankedBuffer
}

// IsIndex reports whether this is the scalar index shape.
func (s Shape) IsIndex() bool { return s.Kind == KindIndex }

// IsDynamicDim reports whether the dimension of the given axis is only known
// at run time.
func (s Shape) IsDynamicDim(axis int) bool { return s.Dim(axis) == DynamicSize }

// HasDynamicDims reports whether any dimension is dynamic.
func (s Shape) HasDynamicDims() bool {
	return slices.Contains(s.Dimensions, DynamicSize)
}

// IsFullyStatic reports whether the shape is ranked with no dynamic
// dimensions, and (for buffers) carries no dynamic layout components.
func (s Shape) IsFullyStatic() bool {
	if s.IsUnranked() || s.HasDynamicDims() {
		return false
	}
	if s.Layout != nil {
		if s.Layout.Offset == DynamicSize || slices.Contains(s.Layout.Strides, DynamicSize) {
			return false
		}
	}
	return true
}

// Dim returns the dimension of the given axis. axis can take negative
// numbers, in which case it counts from the end -- axis=-1 refers to the last
// axis. It panics for an out-of-bounds axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Size returns the number of elements, or DynamicSize if any dimension is
// dynamic or the shape is unranked.
func (s Shape) Size() int {
	if s.IsUnranked() {
		return DynamicSize
	}
	size := 1
	for _, dim := range s.Dimensions {
		if dim == DynamicSize {
			return DynamicSize
		}
		size *= dim
	}
	return size
}

// Equal compares kind, dtype, dimensions and layout.
func (s Shape) Equal(s2 Shape) bool {
	if s.Kind != s2.Kind || s.DType != s2.DType {
		return false
	}
	if !slices.Equal(s.Dimensions, s2.Dimensions) {
		return false
	}
	return s.Layout.Equal(s2.Layout)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	s.Dimensions = slices.Clone(s.Dimensions)
	s.Layout = s.Layout.Clone()
	return s
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// RowMajorStrides returns the identity (row-major) strides for the given
// dimensions: the last axis has stride 1 and each preceding axis' stride is
// the product of all sizes to its right. Axes whose running product includes
// a DynamicSize dimension get a DynamicSize stride.
func RowMajorStrides(dimensions []int) []int {
	strides := make([]int, len(dimensions))
	product := 1
	for i := len(dimensions) - 1; i >= 0; i-- {
		strides[i] = product
		if product == DynamicSize || dimensions[i] == DynamicSize {
			product = DynamicSize
		} else {
			product *= dimensions[i]
		}
	}
	return strides
}

func dimToMLIR(dim int) string {
	if dim == DynamicSize {
		return "?"
	}
	return fmt.Sprintf("%d", dim)
}

func dimsToMLIR(dimensions []int) string {
	var sb strings.Builder
	for _, dim := range dimensions {
		sb.WriteString(dimToMLIR(dim))
		sb.WriteString("x")
	}
	return sb.String()
}

// ToMLIR renders the shape as an MLIR type.
func (s Shape) ToMLIR() string {
	switch s.Kind {
	case KindTensor:
		return fmt.Sprintf("tensor<%s%s>", dimsToMLIR(s.Dimensions), utils.DTypeToMLIR(s.DType))
	case KindUnrankedTensor:
		return fmt.Sprintf("tensor<*x%s>", utils.DTypeToMLIR(s.DType))
	case KindBuffer:
		if s.Layout == nil {
			return fmt.Sprintf("memref<%s%s>", dimsToMLIR(s.Dimensions), utils.DTypeToMLIR(s.DType))
		}
		return fmt.Sprintf("memref<%s%s, %s>", dimsToMLIR(s.Dimensions), utils.DTypeToMLIR(s.DType), s.Layout.ToMLIR())
	case KindUnrankedBuffer:
		return fmt.Sprintf("memref<*x%s>", utils.DTypeToMLIR(s.DType))
	case KindScalar:
		return utils.DTypeToMLIR(s.DType)
	case KindIndex:
		return "index"
	}
	return fmt.Sprintf("invalid_shape<%d>", int(s.Kind))
}

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	return s.ToMLIR()
}
