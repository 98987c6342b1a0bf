// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package lookup

import (
	"encoding/json"

	invopop "github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// retrieveBatchResponse is the wire shape of one /retrieve-batch/lexeme/
// response entry, reflected into a JSON Schema so HTTPBackend can
// validate a batch response before decoding it.
type retrieveBatchResponse struct {
	Forms []struct {
		Text      string `json:"text"`
		Frequency int    `json:"frequency"`
		MSD       string `json:"msd"`
	} `json:"forms"`
}

// BuildResponseSchema reflects a []retrieveBatchResponse into a compiled
// JSON Schema: each HTTP call body is a JSON array, one entry per
// request in the batch, per §6. Used to validate /retrieve-batch/lexeme/
// responses before they are decoded, grounded on
// GenerateSchema/compileSchema in internal/plugin/schema.go.
func BuildResponseSchema() (*jschema.Schema, error) {
	r := invopop.Reflector{DoNotReference: true}
	raw := r.Reflect(&[]retrieveBatchResponse{})

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, oops.Code("LOOKUP_SCHEMA_FAILED").Wrapf(err, "marshaling reflected schema")
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, oops.Code("LOOKUP_SCHEMA_FAILED").Wrapf(err, "decoding reflected schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("retrieve-batch-response.json", decoded); err != nil {
		return nil, oops.Code("LOOKUP_SCHEMA_FAILED").Wrapf(err, "adding schema resource")
	}
	schema, err := c.Compile("retrieve-batch-response.json")
	if err != nil {
		return nil, oops.Code("LOOKUP_SCHEMA_FAILED").Wrapf(err, "compiling schema")
	}
	return schema, nil
}
