// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package lookup

import (
	"encoding/json"
	"testing"
)

func TestBuildResponseSchemaAcceptsAWellFormedBatchResponse(t *testing.T) {
	schema, err := BuildResponseSchema()
	if err != nil {
		t.Fatalf("BuildResponseSchema: %v", err)
	}

	body := `[{"forms":[{"text":"hiše","frequency":42,"msd":"Sozer"}]}]`
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	if err := schema.Validate(decoded); err != nil {
		t.Errorf("Validate rejected a well-formed batch response: %v", err)
	}
}

func TestBuildResponseSchemaRejectsAMalformedBatchResponse(t *testing.T) {
	schema, err := BuildResponseSchema()
	if err != nil {
		t.Fatalf("BuildResponseSchema: %v", err)
	}

	body := `[{"forms":[{"text":"hiše","frequency":"not-a-number","msd":"Sozer"}]}]`
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	if err := schema.Validate(decoded); err == nil {
		t.Error("Validate should reject a non-numeric frequency field")
	}
}
