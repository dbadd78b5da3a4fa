// Package allocation defines the split payment allocation model and the pure
// allocation validator.
//
// An allocation splits one amount due across an ordered sequence of funding
// instruments. Item order is significant: it is both the execution order and
// the reverse of the rollback order.
package allocation
