// Package memir builds an MLIR-style intermediate representation mixing
// tensor-level (hlo dialect) operations with buffer-level (memref, arith,
// tensor dialects) operations.
//
// Among its features:
//
//   - Translates an API to rendered (human-readable) MLIR-style text.
//   - Shape inference: it calculates and validates the output shapes for operations.
//   - Written purely in Go, no C/C++ external dependencies.
//
// Tensor values are immutable and shape-polymorphic; buffer values are
// addressable memory regions with explicit layouts (offset + per-dimension
// strides), possibly only known at run time. The bufferize subpackage lowers
// the tensor-level operations to buffer-level ones, and the interp subpackage
// executes bufferized functions on host memory.
package memir

import "github.com/gomlx/memir/internal/utils"

// NormalizeIdentifier converts the name of an identifier (function name or function input parameter
// name, etc.) to a valid one: only letters, digits, and underscores are allowed.
//
// Invalid characters are replaced with underscores.
// If the name starts with a digit, it is prefixed with an underscore.
func NormalizeIdentifier(name string) string {
	return utils.NormalizeIdentifier(name)
}
