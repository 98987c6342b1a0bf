// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package represent

import "github.com/samber/oops"

func agreementHeadCountError(dependent, head string, n int) error {
	return oops.Code("STRUCTURE_LOAD_FAILED").
		With("dependent_component", dependent).With("head_component", head).With("head_representation_count", n).
		Errorf("component %q has agreement with component %q, but it has %d (!= 1) representations", dependent, head, n)
}
