// Package gateway provides sandbox implementations of the card rail and
// payment link gateway contracts for development and test topologies.
package gateway
