// Package types defines shared enums used by the IR operations.
package types

import "fmt"

// CmpPredicate enum defined for the arith.cmpi operation.
type CmpPredicate int

//go:generate go tool enumer -type=CmpPredicate -output=gen_cmppredicate_enumer.go cmp.go

const (
	CmpEQ CmpPredicate = iota
	CmpNE

	// Signed comparisons.

	CmpSLT
	CmpSLE
	CmpSGT
	CmpSGE

	// Unsigned comparisons.

	CmpULT
	CmpULE
	CmpUGT
	CmpUGE
)

// ToMLIR returns the MLIR rendering of the predicate, as used in the
// arith.cmpi predicate attribute.
func (c CmpPredicate) ToMLIR() string {
	switch c {
	case CmpEQ:
		return "#arith<cmpi_predicate eq>"
	case CmpNE:
		return "#arith<cmpi_predicate ne>"
	case CmpSLT:
		return "#arith<cmpi_predicate slt>"
	case CmpSLE:
		return "#arith<cmpi_predicate sle>"
	case CmpSGT:
		return "#arith<cmpi_predicate sgt>"
	case CmpSGE:
		return "#arith<cmpi_predicate sge>"
	case CmpULT:
		return "#arith<cmpi_predicate ult>"
	case CmpULE:
		return "#arith<cmpi_predicate ule>"
	case CmpUGT:
		return "#arith<cmpi_predicate ugt>"
	case CmpUGE:
		return "#arith<cmpi_predicate uge>"
	}
	return fmt.Sprintf("#arith<cmpi_predicate UNKNOWN %d>", c)
}
