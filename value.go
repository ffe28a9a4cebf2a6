package memir

import (
	"fmt"
	"io"

	"github.com/gomlx/memir/types/shapes"
)

// Value represents a value in an IR function, like `%0` or `%arg0`.
// It has a shape (its type: tensor, buffer, index or scalar) and an optional
// descriptive name that can contain letters, digits and underscore.
type Value struct {
	fn    *Function
	shape shapes.Shape
	name  string // Optional name composed of letters, digits and underscore

	// def is the statement that produced this value, nil for function inputs.
	def *Statement
}

// Shape returns the shape (type) of the value.
func (v *Value) Shape() shapes.Shape {
	return v.shape
}

// Name returns the value's name, without the "%" prefix.
func (v *Value) Name() string {
	return v.name
}

// Func returns the function that owns the value.
func (v *Value) Func() *Function {
	return v.fn
}

// Def returns the statement that defines this value, or nil if the value is a
// function input.
func (v *Value) Def() *Statement {
	return v.def
}

// Write writes the value in MLIR text format to the given writer.
func (v *Value) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%%%s", v.name)
	return err
}

// String implements fmt.Stringer.
func (v *Value) String() string {
	return "%" + v.name
}
