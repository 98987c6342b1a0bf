// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package structure

import "github.com/clarinsi/cordex/internal/token"

// Order constrains the relative sentence position (int_id) of parent vs
// child along one dependency edge.
//
// Grounded on cordex/structures/order.py.
type Order int

const (
	// Any applies no ordering constraint.
	Any Order = iota
	// FromTo requires parent.IntID < child.IntID.
	FromTo
	// ToFrom requires child.IntID < parent.IntID.
	ToFrom
)

// ParseOrder maps the structure file's order string ("from-to", "to-from",
// or absent) to an Order value.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "":
		return Any, nil
	case "from-to":
		return FromTo, nil
	case "to-from":
		return ToFrom, nil
	default:
		return Any, errUnknownOrder(s)
	}
}

// Match checks whether the (parent, child) pair satisfies the order
// constraint, using int_id per the invariant that it is strictly increasing
// along a sentence.
func (o Order) Match(parent, child *token.Token) bool {
	switch o {
	case Any:
		return true
	case FromTo:
		return parent.IntID < child.IntID
	case ToFrom:
		return child.IntID < parent.IntID
	default:
		return false
	}
}
