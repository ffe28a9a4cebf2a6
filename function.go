package memir

import (
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir/internal/optypes"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
)

// Function represents a `func.func` in the IR.
type Function struct {
	Builder *Builder

	// Name of the function. It should not include the "@" prefix.
	Name string

	// Inputs to the function.
	Inputs []*Value

	// Outputs types of the function.
	Outputs []shapes.Shape

	// Statements in the function body.
	Statements []*Statement

	// values holds all the values (e.g., %0, %1, %arg0) created in the function's scope.
	values []*Value

	// nextArgID is the next ID to be assigned to new input arguments.
	nextArgID int

	// nextTmpID is the next ID to be assigned to new intermediary values.
	nextTmpID int

	// Returned indicates if the function has a return statement, so it can no longer be changed.
	Returned bool
}

// newValue creates a new value with the given shape and assigns it to the next available id.
func (fn *Function) newValue(shape shapes.Shape) (v *Value) {
	v = &Value{
		fn:    fn,
		name:  strconv.Itoa(fn.nextTmpID),
		shape: shape,
	}
	fn.nextTmpID++
	fn.values = append(fn.values, v)
	return v
}

// Input creates a new input parameter for a function.
//
// If creating multiple inputs (one at a time), the order matters, since during execution
// the input parameters must be given in the same order they were created.
//
// These add to the inputs already created during the function creation.
//
// It picks a default unique name for the input parameter, you can also
// provide a name with NamedInput.
func (fn *Function) Input(shape shapes.Shape) *Value {
	value := fn.NamedInput(fmt.Sprintf("arg%d", fn.nextArgID), shape)
	fn.nextArgID++
	return value
}

// NamedInput creates a new input parameter for a function with the given name -- it
// must be a unique input name.
//
// The name is passed through NormalizeIdentifier, which converts any non-digit or ASCII letter to an underscore.
//
// Names with the format "arg%d" are reserved for the default input parameters.
//
// Names are used in the IR text output and may be helpful for debugging, but
// otherwise have no impact.
func (fn *Function) NamedInput(name string, shape shapes.Shape) *Value {
	value := &Value{
		fn:    fn,
		name:  NormalizeIdentifier(name),
		shape: shape,
	}
	fn.Inputs = append(fn.Inputs, value)
	return value
}

// ConstantFromScalar creates a new hlo.constant statement and returns the resulting value.
func (fn *Function) ConstantFromScalar(value any) (*Value, error) {
	if fn.Returned {
		return nil, errors.Errorf("Function.Return already called for %q", fn.Name)
	}

	// The shape of the constant is inferred from the value.
	dtype := dtypes.FromAny(value)
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("unsupported constant value type %T", value)
	}
	shape := shapes.Make(dtype)
	t, err := newTensorLiteralFromFlatAndDimensions(value)
	if err != nil {
		return nil, err
	}
	c := &Statement{
		Builder:  fn.Builder,
		Function: fn,
		OpType:   optypes.Constant,
		Attributes: map[string]any{
			"value": t,
		},
		Outputs: []*Value{fn.newValue(shape)},
	}
	c.Outputs[0].def = c
	fn.Statements = append(fn.Statements, c)
	return c.Outputs[0], nil
}

// ConstantFromFlatAndDimensions creates a new hlo.constant statement from a flat slice with
// the raw values and the dimensions of the shape.
func (fn *Function) ConstantFromFlatAndDimensions(flat any, dimensions ...int) (*Value, error) {
	if fn.Returned {
		return nil, errors.Errorf("Function.Return already called for %q", fn.Name)
	}
	flatV := reflect.ValueOf(flat)
	dtype := dtypes.FromGoType(flatV.Type().Elem())
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("unsupported constant flat values type %T -- expected a slice of a basic data type", flat)
	}
	shape := shapes.Make(dtype, dimensions...)
	if shape.Size() != flatV.Len() {
		return nil, errors.Errorf("flat values size %d doesn't match shape size %d (%s)", flatV.Len(), shape.Size(), shape)
	}
	c := &Statement{
		Builder:    fn.Builder,
		Function:   fn,
		OpType:     optypes.Constant,
		Attributes: make(map[string]any, 1),
		Outputs:    []*Value{fn.newValue(shape)},
	}
	c.Outputs[0].def = c
	var err error
	if shape.IsScalar() {
		c.Attributes["value"], err = newTensorLiteralFromFlatAndDimensions(flatV.Index(0).Interface())
	} else {
		c.Attributes["value"], err = newTensorLiteralFromFlatAndDimensions(flat, dimensions...)
	}
	if err != nil {
		return nil, err
	}
	fn.Statements = append(fn.Statements, c)
	return c.Outputs[0], nil
}

// AppendStatement adds a raw statement to the function, without shape
// inference or validation, creating one new output value per given shape.
// It is meant for passes cloning statements between functions; regular
// construction should go through the operation methods.
func (fn *Function) AppendStatement(opType optypes.OpType, inputs []*Value, attributes map[string]any, outputShapes []shapes.Shape) *Statement {
	stmt := &Statement{
		Builder:    fn.Builder,
		Function:   fn,
		OpType:     opType,
		Inputs:     inputs,
		Attributes: attributes,
	}
	stmt.Outputs = make([]*Value, len(outputShapes))
	for i, shape := range outputShapes {
		stmt.Outputs[i] = fn.newValue(shape)
		stmt.Outputs[i].def = stmt
	}
	fn.Statements = append(fn.Statements, stmt)
	return stmt
}

// Return adds a return statement to the function with the given return values.
// There must be at least one return value.
//
// There can be only one return statement from a Function, and it must be the last
// operation of a function.
func (fn *Function) Return(firstValue *Value, otherValues ...*Value) error {
	if fn.Returned {
		return errors.Errorf("Function.Return already called for %q", fn.Name)
	}
	fn.Returned = true
	allValues := make([]*Value, 1, len(otherValues)+1)
	allValues[0] = firstValue
	allValues = append(allValues, otherValues...)
	outputShapes := make([]shapes.Shape, len(allValues))
	for i, value := range allValues {
		if value.fn != fn {
			return errors.New("Function.Return given values that are not owned by the function")
		}
		outputShapes[i] = value.shape
	}
	fn.Outputs = outputShapes

	stmt := &Statement{
		Builder:  fn.Builder,
		Function: fn,
		OpType:   optypes.FuncReturn,
		Inputs:   allValues,
	}
	fn.Statements = append(fn.Statements, stmt)
	return nil
}

// Write the function as MLIR text, with the given indentation.
func (fn *Function) Write(writer io.Writer, indentation string) error {
	// Create the formatting w() internal function to facilitate handling errors while generating the code.
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}
	nextIndent := indentation + IndentationStep

	w("%sfunc.func @%s(", indentation, fn.Name)
	for i, input := range fn.Inputs {
		if i > 0 {
			w(", ")
		}
		if err == nil {
			err = input.Write(writer)
		}
		w(": %s", input.shape.ToMLIR())
	}
	w(") -> ")
	if len(fn.Outputs) > 1 {
		w("(")
	}
	for i, output := range fn.Outputs {
		if i > 0 {
			w(", ")
		}
		w("%s", output.ToMLIR())
	}
	if len(fn.Outputs) > 1 {
		w(")")
	}
	w(" {\n")

	for _, stmt := range fn.Statements {
		if err == nil {
			err = stmt.Write(writer, nextIndent)
		}
		w("\n")
	}

	w("%s}", indentation)
	return err
}
