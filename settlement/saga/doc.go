// Package saga provides a small forward/compensate execution primitive.
//
// Steps run strictly in order. When a forward action fails, the compensations
// of every previously-completed step run in reverse order. Compensation
// failures are collected, never propagated, so one failed rollback cannot
// interrupt the unwind of the remaining steps.
package saga
