// Package record defines the immutable settlement record emitted per
// completed split payment item and the sink contract used to persist all of
// an allocation's records as one logical unit.
package record
