package memir

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir/internal/utils"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

type hasToMLIR interface {
	ToMLIR() string
}

// I64Array is an []int attribute rendered as an MLIR dense i64 array,
// e.g. `array<i64: 0, 1>`. Unlike a pre-formatted literal it keeps the
// values accessible to passes reading the attribute back.
type I64Array []int

// ToMLIR renders the attribute.
func (a I64Array) ToMLIR() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("array<i64: %s>", strings.Join(parts, ", "))
}

// literalToMLIR converts a literal value, usually used in attributes, to its MLIR string representation.
func literalToMLIR(attr any) string {
	switch v := attr.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float32, float64:
		var f float64
		if f32, ok := v.(float32); ok {
			f = float64(f32)
		} else {
			f = v.(float64)
		}
		shape := shapes.Scalar(dtypes.FromAny(v))
		format := "%g : %s"
		if f == math.Trunc(f) {
			// f is an integer, make sure we add a decimal point.
			format = "%.1f : %s"
		}
		return fmt.Sprintf(format, f, shape.ToMLIR())
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		dtype := dtypes.FromAny(v)
		return fmt.Sprintf("%d : %s", v, utils.DTypeToMLIR(dtype))
	case bool:
		if v {
			return "true"
		}
		return "false"

	case hasToMLIR:
		// For types that implement their own conversion to MLIR, use that.
		return v.ToMLIR()

	default:
		return fmt.Sprintf("Unknown literal type: %T %#v", v, v)
	}
}

// IndexLiteral is an int attribute rendered as an MLIR index constant,
// e.g. `3 : index`.
type IndexLiteral int

// ToMLIR renders the attribute.
func (l IndexLiteral) ToMLIR() string {
	return fmt.Sprintf("%d : index", int(l))
}

// TensorLiteral is a dense tensor literal, the value attribute of an
// hlo.constant statement.
type TensorLiteral struct {
	shape shapes.Shape

	// flat is a slice of the Go type corresponding to shape.DType, with
	// shape.Size() elements.
	flat any
}

// Shape returns the shape of the literal.
func (t *TensorLiteral) Shape() shapes.Shape { return t.shape }

// Flat returns the flat values of the literal, a slice of the Go type
// corresponding to the shape's DType, in row-major order.
func (t *TensorLiteral) Flat() any { return t.flat }

// newTensorLiteralFromFlatAndDimensions creates a tensor literal from a flat
// slice (or a scalar, if no dimensions are given) and the dimensions of the
// shape.
func newTensorLiteralFromFlatAndDimensions(flat any, dimensions ...int) (*TensorLiteral, error) {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		// A scalar literal.
		dtype := dtypes.FromAny(flat)
		if dtype == dtypes.InvalidDType {
			return nil, errors.Errorf("unsupported scalar literal type %T", flat)
		}
		if len(dimensions) > 0 {
			return nil, errors.Errorf("scalar literal %v cannot take dimensions %v", flat, dimensions)
		}
		sliceV := reflect.MakeSlice(reflect.SliceOf(flatV.Type()), 1, 1)
		sliceV.Index(0).Set(flatV)
		return &TensorLiteral{shape: shapes.Make(dtype), flat: sliceV.Interface()}, nil
	}
	dtype := dtypes.FromGoType(flatV.Type().Elem())
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("unsupported literal flat values type %T -- expected a slice of a basic data type", flat)
	}
	shape := shapes.Make(dtype, dimensions...)
	if shape.Size() != flatV.Len() {
		return nil, errors.Errorf("flat values size %d doesn't match shape size %d (%s)", flatV.Len(), shape.Size(), shape)
	}
	return &TensorLiteral{shape: shape, flat: flat}, nil
}

// ToMLIR renders the literal as a dense attribute, e.g.
// `dense<[0.0, 1.0]> : tensor<2xf32>`.
func (t *TensorLiteral) ToMLIR() string {
	var sb strings.Builder
	sb.WriteString("dense<")
	flatV := reflect.ValueOf(t.flat)
	if t.shape.Rank() > 0 {
		sb.WriteString("[")
	}
	for i := 0; i < flatV.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(flatElementToMLIR(flatV.Index(i).Interface()))
	}
	if t.shape.Rank() > 0 {
		sb.WriteString("]")
	}
	fmt.Fprintf(&sb, "> : %s", t.shape.ToMLIR())
	return sb.String()
}

func flatElementToMLIR(element any) string {
	switch v := element.(type) {
	case float16.Float16:
		return formatFloatLiteral(float64(v.Float32()))
	case float32:
		return formatFloatLiteral(float64(v))
	case float64:
		return formatFloatLiteral(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloatLiteral(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		// Make sure we keep a decimal point.
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}
