// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/samber/oops"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/sethvargo/go-retry"

	"github.com/clarinsi/cordex/internal/represent"
)

const (
	searchBatchSize   = 7500
	retrieveBatchSize = 500
	minBatchSize      = 50
)

// searchRequest is one entry of the /search-batch/lexeme/ request body.
type searchRequest struct {
	Lemma    string            `json:"lemma"`
	Category string            `json:"category"`
	Features map[string]string `json:"features"`
}

type searchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// retrieveRequest is one entry of the /retrieve-batch/lexeme/ request body.
type retrieveRequest struct {
	LexemeID    string   `json:"lexeme_id"`
	MSDLanguage string   `json:"msd-language"`
	ExtraData   []string `json:"extra-data"`
	CorpusID    int      `json:"corpus_id"`
}

type retrieveResponse struct {
	Forms []struct {
		Text      string `json:"text"`
		Frequency int    `json:"frequency"`
		MSD       string `json:"msd"`
	} `json:"forms"`
}

// HTTPBackend calls a remote inflectional lexicon over the two batched POST
// endpoints specified in §6, bisecting and retrying a batch on non-2xx
// responses per §5/§7.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	schema  *jsonschema.Schema

	cache map[string]represent.Form
}

// NewHTTPBackend builds a backend against baseURL, validating responses
// against respSchema (built via santhosh-tekuri/jsonschema/v6, compiled
// from struct tags with invopop/jsonschema at the call site).
func NewHTTPBackend(baseURL string, client *http.Client, schema *jsonschema.Schema) *HTTPBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBackend{baseURL: baseURL, client: client, schema: schema, cache: map[string]represent.Form{}}
}

// InflectForm consults the in-process cache populated by a prior Warm call;
// it never issues a request on its own, since backend calls must be
// batched across the whole representation pass (§4.4, §9 Design Notes).
func (b *HTTPBackend) InflectForm(lemma, category string, selector map[string]string) (represent.Form, bool) {
	key := cacheKey(lemma, category, selector)
	f, ok := b.cache[key]
	return f, ok
}

func cacheKey(lemma, category string, selector map[string]string) string {
	buf := bytes.NewBufferString(lemma + "\x00" + category)
	keys := make([]string, 0, len(selector))
	for k := range selector {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString("\x00" + k + "=" + selector[k])
	}
	return buf.String()
}

// Warm issues the batched search+retrieve calls for every (lemma, category,
// selector) request and populates the cache, per the "batch-and-cache
// across the whole representation pass" design note.
func (b *HTTPBackend) Warm(ctx context.Context, requests []LookupRequest) error {
	search := make([]searchRequest, len(requests))
	for i, r := range requests {
		search[i] = searchRequest{Lemma: r.Lemma, Category: r.Category, Features: r.LemmaFeatures}
	}

	searchResults, err := b.callBatched(ctx, "/search-batch/lexeme/", search, searchBatchSize)
	if err != nil {
		return err
	}

	var retrieveReqs []retrieveRequest
	owner := make([]int, 0) // index into requests, parallel to retrieveReqs
	for i, raw := range searchResults {
		var sr searchResponse
		if err := json.Unmarshal(raw, &sr); err != nil {
			return oops.Code("LOOKUP_BACKEND_FAILED").Wrapf(err, "decoding search response")
		}
		for _, d := range sr.Data {
			retrieveReqs = append(retrieveReqs, retrieveRequest{LexemeID: d.ID, MSDLanguage: "en", ExtraData: []string{"forms-orthography"}, CorpusID: 2})
			owner = append(owner, i)
		}
	}

	retrieveResults, err := b.callBatched(ctx, "/retrieve-batch/lexeme/", retrieveReqs, retrieveBatchSize)
	if err != nil {
		return err
	}

	for j, raw := range retrieveResults {
		var rr retrieveResponse
		if err := json.Unmarshal(raw, &rr); err != nil {
			return oops.Code("LOOKUP_BACKEND_FAILED").Wrapf(err, "decoding retrieve response")
		}
		if len(rr.Forms) == 0 {
			continue
		}
		req := requests[owner[j]]
		best := rr.Forms[0]
		for _, f := range rr.Forms {
			if f.Frequency > best.Frequency {
				best = f
			}
		}
		b.cache[cacheKey(req.Lemma, req.Category, req.FormFeatures)] = represent.Form{Text: best.Text, Tag: best.MSD}
	}
	return nil
}

// LookupRequest is one planned backend consultation, built by the
// representation pass's batch planner before the rendering pass runs.
type LookupRequest struct {
	Lemma         string
	Category      string
	LemmaFeatures map[string]string
	FormFeatures  map[string]string
}

// callBatched posts body[i:end] in chunks of batchSize, bisecting and
// retrying via sethvargo/go-retry on a non-2xx response, per §5's "halve
// the current batch and retry each half; fail hard if the batch size drops
// below 50".
func (b *HTTPBackend) callBatched(ctx context.Context, path string, body any, batchSize int) ([]json.RawMessage, error) {
	items := toSlice(body)
	var all []json.RawMessage
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk, err := b.callChunk(ctx, path, items[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}
	return all, nil
}

func (b *HTTPBackend) callChunk(ctx context.Context, path string, chunk []any) ([]json.RawMessage, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	var result []json.RawMessage
	base, err := retry.NewConstant(50 * time.Millisecond)
	if err != nil {
		return nil, oops.Wrapf(err, "building retry backoff")
	}
	backoff := retry.WithMaxRetries(3, base)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, callErr := b.post(ctx, path, chunk)
		if callErr == nil {
			result = res
			return nil
		}
		if len(chunk) <= minBatchSize {
			return oops.Code("LOOKUP_BACKEND_FAILED").With("batch_size", len(chunk)).Wrapf(callErr, "backend call failed at minimum batch size")
		}
		mid := len(chunk) / 2
		left, err := b.callChunk(ctx, path, chunk[:mid])
		if err != nil {
			return err
		}
		right, err := b.callChunk(ctx, path, chunk[mid:])
		if err != nil {
			return err
		}
		result = append(left, right...)
		return nil
	})
	return result, err
}

func (b *HTTPBackend) post(ctx context.Context, path string, body any) ([]json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, oops.Wrapf(err, "marshaling request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, oops.Wrapf(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "performing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, oops.Code("LOOKUP_BACKEND_TRANSIENT").With("status", resp.StatusCode).Errorf("non-2xx response from %s", path)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, oops.Wrapf(err, "reading response body")
	}

	if b.schema != nil && path == "/retrieve-batch/lexeme/" {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, oops.Wrapf(err, "decoding response for schema validation")
		}
		if err := b.schema.Validate(decoded); err != nil {
			return nil, oops.Code("LOOKUP_BACKEND_SCHEMA_INVALID").Wrapf(err, "response failed schema validation")
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, oops.Wrapf(err, "decoding response array")
	}
	return items, nil
}

func toSlice(body any) []any {
	switch v := body.(type) {
	case []searchRequest:
		out := make([]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out
	case []retrieveRequest:
		out := make([]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out
	default:
		return nil
	}
}
