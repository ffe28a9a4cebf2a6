package memir

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"
)

// Builder is used to construct an IR module.
// See details in New.
type Builder struct {
	name string

	// functions holds all the functions created in the builder's scope.
	functions []*Function
}

// New creates a new Builder object holding a module in construction.
//
// From a builder you can create functions. For each function you create
// operations one by one, until you defined the desired computation.
//
// You have to define the "main" function for your module: you can use
// Builder.Main to do so, or Builder.NewFunction("main", ...), it's the same.
//
// Once you are all set, call Builder.Build and it will return the module in
// MLIR-style text form as a []byte.
func New(name string) *Builder {
	return &Builder{
		name: name,
	}
}

// Name returns the module name given to New.
func (b *Builder) Name() string {
	return b.name
}

// NewFunction creates a new function and adds it to the module.
// The function outputs will be determined by the return statement in the function body.
//
// The function name must be unique in the module.
//
// The inputs are the values that the function will receive as arguments.
//
// You can also add new inputs later by calling Function.Input.
//
// See Function.
func (b *Builder) NewFunction(name string, inputs ...*Value) *Function {
	fn := &Function{
		Builder: b,
		Name:    name,
		Inputs:  inputs,
		values:  slices.Clone(inputs),
	}
	for _, input := range inputs {
		input.fn = fn
	}
	b.functions = append(b.functions, fn)
	return fn
}

const MainFunctionName = "main"

// Main creates the main function of the module.
// It is an alias to Builder.NewFunction("main", inputs...).
func (b *Builder) Main(inputs ...*Value) *Function {
	return b.NewFunction(MainFunctionName, inputs...)
}

// Functions returns the functions created in the builder's scope.
func (b *Builder) Functions() []*Function {
	return b.functions
}

const IndentationStep = "  "

// Write the module (a readable string) to the given writer.
//
// It will write incomplete modules (without a main function or empty
// statements) without an error to help debugging.
//
// See Builder.Build to check and output the module.
func (b *Builder) Write(writer io.Writer) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	w("module @%s {\n", NormalizeIdentifier(b.name))
	for i, fn := range b.functions {
		if i > 0 {
			w("\n\n")
		}
		if err == nil {
			err = fn.Write(writer, IndentationStep)
		}
	}
	w("\n}\n")
	return err
}

// Build checks the validity and builds the module text.
//
// If you want the output of an incomplete module (without the checking), use Builder.Write instead.
func (b *Builder) Build() ([]byte, error) {
	hasMain := false
	for _, fn := range b.functions {
		if fn.Name == MainFunctionName {
			hasMain = true
		}
		if len(fn.Statements) == 0 {
			return nil, errors.Errorf("function %q has no statements", fn.Name)
		}
	}
	if !hasMain {
		return nil, errors.New("module must have a main function")
	}

	var buf bytes.Buffer
	err := b.Write(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
