package interp

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Buffer is a host-memory buffer: a flat slice of the element type plus the
// layout metadata (offset, sizes and strides, in element units) mapping
// logical indices into the slice.
//
// Several buffers may share the same flat slice: views produced by
// reinterpret casts and reshapes only differ in metadata.
type Buffer struct {
	dtype dtypes.DType

	// flat is always a slice of the Go type corresponding to dtype.
	flat any

	offset  int
	sizes   []int
	strides []int
}

// NewBuffer allocates a zeroed buffer of the given dimensions with the
// identity (row-major) layout.
func NewBuffer(dtype dtypes.DType, dimensions ...int) *Buffer {
	size := 1
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("interp.NewBuffer: negative dimension in %v", dimensions)
		}
		size *= dim
	}
	flat := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), size, size).Interface()
	return &Buffer{
		dtype:   dtype,
		flat:    flat,
		sizes:   append([]int(nil), dimensions...),
		strides: rowMajorStrides(dimensions),
	}
}

// BufferFromFlat creates a buffer wrapping the given flat slice (not copied)
// with the given dimensions and the identity layout.
func BufferFromFlat(flat any, dimensions ...int) (*Buffer, error) {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		return nil, errors.Errorf("BufferFromFlat requires a slice, got %T", flat)
	}
	dtype := dtypes.FromGoType(flatV.Type().Elem())
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("BufferFromFlat: unsupported element type %T", flat)
	}
	size := 1
	for _, dim := range dimensions {
		size *= dim
	}
	if size != flatV.Len() {
		return nil, errors.Errorf("BufferFromFlat: flat size %d doesn't match dimensions %v", flatV.Len(), dimensions)
	}
	return &Buffer{
		dtype:   dtype,
		flat:    flat,
		sizes:   append([]int(nil), dimensions...),
		strides: rowMajorStrides(dimensions),
	}, nil
}

// DType returns the buffer's element type.
func (b *Buffer) DType() dtypes.DType { return b.dtype }

// Flat returns the underlying flat slice, shared with any views of this
// buffer.
func (b *Buffer) Flat() any { return b.flat }

// Offset returns the base offset of the buffer, in elements.
func (b *Buffer) Offset() int { return b.offset }

// Rank returns the number of dimensions.
func (b *Buffer) Rank() int { return len(b.sizes) }

// Sizes returns the per-dimension sizes. The returned slice is owned by the
// buffer.
func (b *Buffer) Sizes() []int { return b.sizes }

// Strides returns the per-dimension strides, in elements. The returned slice
// is owned by the buffer.
func (b *Buffer) Strides() []int { return b.strides }

// SharesStorageWith reports whether both buffers are backed by the same flat
// slice.
func (b *Buffer) SharesStorageWith(other *Buffer) bool {
	return reflect.ValueOf(b.flat).Pointer() == reflect.ValueOf(other.flat).Pointer()
}

// At returns the element at the given logical indices, honoring offset and
// strides.
func (b *Buffer) At(indices ...int) any {
	if len(indices) != len(b.sizes) {
		exceptions.Panicf("Buffer.At: got %d indices for rank %d", len(indices), len(b.sizes))
	}
	pos := b.offset
	for i, index := range indices {
		if index < 0 || index >= b.sizes[i] {
			exceptions.Panicf("Buffer.At: index %d out-of-range for size %d (axis %d)", index, b.sizes[i], i)
		}
		pos += index * b.strides[i]
	}
	return reflect.ValueOf(b.flat).Index(pos).Interface()
}

// view returns a buffer sharing this buffer's storage with new layout
// metadata.
func (b *Buffer) view(offset int, sizes, strides []int) *Buffer {
	return &Buffer{
		dtype:   b.dtype,
		flat:    b.flat,
		offset:  offset,
		sizes:   sizes,
		strides: strides,
	}
}

// copyFrom copies src's elements into b, element-wise in logical order,
// honoring both layouts. Both buffers must have the same sizes.
func (b *Buffer) copyFrom(src *Buffer) error {
	if len(b.sizes) != len(src.sizes) {
		return errors.Errorf("copy between ranks %d and %d", len(src.sizes), len(b.sizes))
	}
	for i, size := range b.sizes {
		if src.sizes[i] != size {
			return errors.Errorf("copy between incompatible sizes %v and %v", src.sizes, b.sizes)
		}
	}
	dstV := reflect.ValueOf(b.flat)
	srcV := reflect.ValueOf(src.flat)

	coord := make([]int, len(b.sizes))
	total := 1
	for _, size := range b.sizes {
		total *= size
	}
	for count := 0; count < total; count++ {
		srcPos, dstPos := src.offset, b.offset
		for axis, c := range coord {
			srcPos += c * src.strides[axis]
			dstPos += c * b.strides[axis]
		}
		dstV.Index(dstPos).Set(srcV.Index(srcPos))

		// Advance the coordinate, minor axis first.
		for axis := len(coord) - 1; axis >= 0; axis-- {
			coord[axis]++
			if coord[axis] < b.sizes[axis] {
				break
			}
			coord[axis] = 0
		}
	}
	return nil
}

func rowMajorStrides(dimensions []int) []int {
	strides := make([]int, len(dimensions))
	product := 1
	for i := len(dimensions) - 1; i >= 0; i-- {
		strides[i] = product
		product *= dimensions[i]
	}
	return strides
}
