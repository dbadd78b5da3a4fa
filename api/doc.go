// Package api exposes the settlement engine's caller contract over HTTP:
// synchronous allocation validation and settlement execution.
package api
