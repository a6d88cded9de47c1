package model

import (
	"errors"
	"fmt"
)

var (
	// ErrTopology marks malformed networks: dangling references, unreachable
	// consumers, cyclic flow direction.
	ErrTopology = errors.New("topology error")

	// ErrPhysicalInput marks non-physical input values and numeric failures.
	ErrPhysicalInput = errors.New("physical input error")
)

type TopologyError struct {
	ID     string // 出问题的节点或管道
	Reason string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("topology error at %s: %s", e.ID, e.Reason)
}

func (e *TopologyError) Is(target error) bool {
	return target == ErrTopology
}

func NewTopologyError(id, format string, args ...interface{}) *TopologyError {
	return &TopologyError{ID: id, Reason: fmt.Sprintf(format, args...)}
}

type PhysicalInputError struct {
	ID       string
	Step     int
	Quantity string
	Value    float64
	Reason   string
}

func (e *PhysicalInputError) Error() string {
	return fmt.Sprintf("physical input error at %s (step %d): %s = %g, %s",
		e.ID, e.Step, e.Quantity, e.Value, e.Reason)
}

func (e *PhysicalInputError) Is(target error) bool {
	return target == ErrPhysicalInput
}

func NewPhysicalInputError(id, quantity string, value float64, reason string) *PhysicalInputError {
	return &PhysicalInputError{ID: id, Quantity: quantity, Value: value, Reason: reason}
}
