package valuation

import "fmt"

// ContractViolation is a broken internal invariant, such as a column list that
// does not match what the model needs. It is a defect, not a transient fault.
type ContractViolation struct {
	Detail string
	Err    error
}

func (e *ContractViolation) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("contract violation: %s: %v", e.Detail, e.Err)
	}
	return "contract violation: " + e.Detail
}

func (e *ContractViolation) Unwrap() error {
	return e.Err
}

func violation(format string, args ...interface{}) *ContractViolation {
	return &ContractViolation{Detail: fmt.Sprintf(format, args...)}
}

// ValidationError rejects a query at the input boundary
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
