// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package structure

import "github.com/samber/oops"

func errUnknownOrder(order string) error {
	return oops.Code("STRUCTURE_LOAD_FAILED").With("order", order).
		Errorf("unknown order value %q: must be from-to, to-from, or omitted", order)
}

func errUnknownStatus(status string) error {
	return oops.Code("STRUCTURE_LOAD_FAILED").With("status", status).
		Errorf("unknown status value %q: must be obligatory, optional, forbidden, or omitted", status)
}
