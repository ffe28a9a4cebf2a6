package bufferize

import (
	"github.com/gomlx/memir"
	"github.com/gomlx/memir/internal/optypes"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Bufferize rewrites every function of the module, lowering the supported
// tensor-level operations to buffer form. It is a partial bufferization:
// operations with no registered rule, or whose rule reports
// ErrNotApplicable, are kept in tensor form, with bufferization.to_buffer
// casts inserted at the boundaries.
//
// It returns a new module; the source module is left untouched. Each
// operation is either fully replaced or fully kept -- a rule failing midway
// leaves no partial rewrite behind.
func Bufferize(src *memir.Builder, opts Options) (*memir.Builder, error) {
	registry := NewRegistry(opts)
	dst := memir.New(src.Name())
	for _, fn := range src.Functions() {
		if err := bufferizeFunction(fn, dst, registry); err != nil {
			return nil, errors.WithMessagef(err, "bufferizing function %q", fn.Name)
		}
	}
	return dst, nil
}

// BufferizeFunction rewrites a single function into the given destination
// module. See Bufferize.
func BufferizeFunction(fn *memir.Function, dst *memir.Builder, opts Options) error {
	return bufferizeFunction(fn, dst, NewRegistry(opts))
}

func bufferizeFunction(src *memir.Function, dstBuilder *memir.Builder, registry *Registry) error {
	dst := dstBuilder.NewFunction(src.Name)
	drv := &driver{
		dst:       dst,
		valueMap:  make(map[*memir.Value]*memir.Value),
		bufferMap: make(map[*memir.Value]*memir.Value),
	}
	for _, input := range src.Inputs {
		drv.valueMap[input] = dst.NamedInput(input.Name(), input.Shape())
	}

	for _, stmt := range src.Statements {
		if rule, ok := registry.RuleFor(stmt); ok {
			drv.begin()
			err := rule.Convert(stmt, drv)
			if err == nil {
				drv.commit()
				klog.V(1).Infof("bufferize: converted %s in %q (read=%v, write=%v, relation=%s)",
					stmt.OpType.ToMLIR(), src.Name,
					rule.BufferizesToMemoryRead(), rule.BufferizesToMemoryWrite(), rule.BufferRelation())
				continue
			}
			if !errors.Is(err, ErrNotApplicable) && !errors.Is(err, ErrOperandUnresolved) {
				return err
			}
			// Recoverable: drop anything the rule emitted before failing and
			// keep the operation in tensor form.
			drv.rollback()
			klog.V(2).Infof("bufferize: keeping %s in tensor form in %q: %v", stmt.OpType.ToMLIR(), src.Name, err)
		}
		if err := drv.cloneStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// driver implements Driver for one function rewrite: it owns the mapping
// from source values to their rewritten (and, separately, bufferized)
// counterparts in the destination function.
type driver struct {
	dst *memir.Function

	// valueMap maps source values to destination values. Results of
	// converted operations map to their buffer values.
	valueMap map[*memir.Value]*memir.Value

	// bufferMap maps source tensor values to their buffer form in the
	// destination, caching inserted to_buffer casts.
	bufferMap map[*memir.Value]*memir.Value

	// Transaction state for the rule currently converting: the statement
	// count at begin() and the map keys added since, so a failed rule leaves
	// no partial mutation behind.
	checkpoint     int
	pendingBuffers []*memir.Value
	pendingValues  []*memir.Value
}

// begin marks the start of a rule conversion.
func (d *driver) begin() {
	d.checkpoint = len(d.dst.Statements)
	d.pendingBuffers = d.pendingBuffers[:0]
	d.pendingValues = d.pendingValues[:0]
}

// commit keeps everything emitted since begin.
func (d *driver) commit() {
	d.pendingBuffers = d.pendingBuffers[:0]
	d.pendingValues = d.pendingValues[:0]
}

// rollback drops every statement and mapping added since begin.
func (d *driver) rollback() {
	d.dst.Statements = d.dst.Statements[:d.checkpoint]
	for _, key := range d.pendingBuffers {
		delete(d.bufferMap, key)
	}
	for _, key := range d.pendingValues {
		delete(d.valueMap, key)
	}
	d.commit()
}

func (d *driver) Func() *memir.Function { return d.dst }

func (d *driver) Resolve(operand *memir.Value) (*memir.Value, error) {
	mapped, ok := d.valueMap[operand]
	if !ok {
		return nil, errors.WithMessagef(ErrOperandUnresolved, "value %s", operand)
	}
	return mapped, nil
}

func (d *driver) GetBuffer(operand *memir.Value) (*memir.Value, error) {
	if buffer, ok := d.bufferMap[operand]; ok {
		return buffer, nil
	}
	mapped, err := d.Resolve(operand)
	if err != nil {
		return nil, err
	}
	if mapped.Shape().IsBuffer() {
		return mapped, nil
	}
	if !mapped.Shape().IsTensor() {
		return nil, errors.WithMessagef(ErrOperandUnresolved, "value %s of type %s cannot be buffered", operand, mapped.Shape())
	}
	buffer, err := d.dst.ToBuffer(mapped)
	if err != nil {
		return nil, err
	}
	d.bufferMap[operand] = buffer
	d.pendingBuffers = append(d.pendingBuffers, operand)
	return buffer, nil
}

func (d *driver) ReplaceResultsWithBuffers(op *memir.Statement, buffers []*memir.Value) {
	for i, result := range op.Outputs {
		d.valueMap[result] = buffers[i]
		d.bufferMap[result] = buffers[i]
		d.pendingValues = append(d.pendingValues, result)
		d.pendingBuffers = append(d.pendingBuffers, result)
	}
}

// cloneStatement re-emits a statement unchanged into the destination
// function, remapping its operands.
func (d *driver) cloneStatement(stmt *memir.Statement) error {
	inputs := make([]*memir.Value, len(stmt.Inputs))
	for i, input := range stmt.Inputs {
		mapped, err := d.Resolve(input)
		if err != nil {
			return err
		}
		inputs[i] = mapped
	}
	if stmt.OpType == optypes.FuncReturn {
		if len(inputs) == 0 {
			return errors.New("func.return with no values")
		}
		return d.dst.Return(inputs[0], inputs[1:]...)
	}
	outputShapes := make([]shapes.Shape, len(stmt.Outputs))
	for i, output := range stmt.Outputs {
		outputShapes[i] = output.Shape()
	}
	cloned := d.dst.AppendStatement(stmt.OpType, inputs, stmt.Attributes, outputShapes)
	for i, output := range stmt.Outputs {
		d.valueMap[output] = cloned.Outputs[i]
	}
	return nil
}
