// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	keyQuery        = "query"
	keySize         = "size"
	keyAggs         = "aggs"
	keyAggregations = "aggregations"
	keyBool         = "bool"
	keyFilter       = "filter"
	keyRange        = "range"
)

// QueryDocument is the user supplied search request.
// Only the parts the time slicer manipulates are typed; everything else is kept as raw json.
type QueryDocument struct {
	Query Query
	Size  int
	// Aggs holds the aggregation under AggsKey, if any.
	Aggs    json.RawMessage
	AggsKey string

	rest map[string]json.RawMessage
}

// Query is the "query" node of a QueryDocument.
type Query struct {
	// Bool is nil if the query has no bool clause yet.
	Bool *BoolQuery

	rest map[string]json.RawMessage
}

// BoolQuery is the "query.bool" node.
type BoolQuery struct {
	Filter *FilterClause

	rest map[string]json.RawMessage
}

// FilterClause is "query.bool.filter" which is either a single clause or a list of clauses.
type FilterClause struct {
	Entries []json.RawMessage
	// Single is true as long as the filter still is a single clause (no list).
	Single bool
}

// ReadQueryFile reads and parses a query file.
func ReadQueryFile(file string) (*QueryDocument, error) {
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, &ConfigurationError{Err: errors.Wrapf(err, "unable to read query file %s", file)}
	}
	doc, err := ParseQueryDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "query file %s", file)
	}
	return doc, nil
}

// ParseQueryDocument parses a json search request which must contain a query object and a size.
func ParseQueryDocument(data []byte) (*QueryDocument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, configErrorf("empty query document")
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigurationError{Err: errors.Wrap(err, "unable to parse query document")}
	}
	if len(raw) == 0 {
		return nil, configErrorf("empty query document")
	}

	doc := &QueryDocument{rest: map[string]json.RawMessage{}}
	for key, value := range raw {
		switch key {
		case keyQuery:
			if err := doc.Query.parse(value); err != nil {
				return nil, err
			}
		case keySize:
			if err := json.Unmarshal(value, &doc.Size); err != nil {
				return nil, configErrorf("size has to be an integer but is %s", string(value))
			}
		default:
			doc.rest[key] = value
		}
	}
	if _, ok := raw[keyQuery]; !ok {
		return nil, configErrorf("query document does not contain a %q object", keyQuery)
	}
	if _, ok := raw[keySize]; !ok {
		return nil, configErrorf("query document does not contain a %q", keySize)
	}

	// aggs wins over aggregations if both are defined
	for _, key := range []string{keyAggs, keyAggregations} {
		if value, ok := doc.rest[key]; ok {
			doc.Aggs = value
			doc.AggsKey = key
			delete(doc.rest, key)
			break
		}
	}
	return doc, nil
}

func (q *Query) parse(data json.RawMessage) error {
	q.rest = map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &q.rest); err != nil || q.rest == nil {
		return configErrorf("%q has to be a json object", keyQuery)
	}
	boolData, ok := q.rest[keyBool]
	if !ok {
		return nil
	}
	delete(q.rest, keyBool)

	q.Bool = &BoolQuery{rest: map[string]json.RawMessage{}}
	if err := json.Unmarshal(boolData, &q.Bool.rest); err != nil || q.Bool.rest == nil {
		return configErrorf("%q has to be a json object", "query.bool")
	}
	filterData, ok := q.Bool.rest[keyFilter]
	if !ok {
		return nil
	}
	delete(q.Bool.rest, keyFilter)

	filter := &FilterClause{}
	trimmed := bytes.TrimSpace(filterData)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &filter.Entries); err != nil {
			return &ConfigurationError{Err: errors.Wrap(err, "unable to parse query.bool.filter")}
		}
	} else {
		filter.Single = true
		filter.Entries = []json.RawMessage{trimmed}
	}
	q.Bool.Filter = filter
	return nil
}

// MarshalJSON renders the complete document including all untouched keys.
func (d *QueryDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.rest)+3)
	for k, v := range d.rest {
		out[k] = v
	}
	query, err := json.Marshal(&d.Query)
	if err != nil {
		return nil, err
	}
	out[keyQuery] = query
	size, err := json.Marshal(d.Size)
	if err != nil {
		return nil, err
	}
	out[keySize] = size
	if d.Aggs != nil {
		out[d.AggsKey] = d.Aggs
	}
	return json.Marshal(out)
}

// MarshalJSON renders the query node.
func (q *Query) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(q.rest)+1)
	for k, v := range q.rest {
		out[k] = v
	}
	if q.Bool != nil {
		b, err := json.Marshal(q.Bool)
		if err != nil {
			return nil, err
		}
		out[keyBool] = b
	}
	return json.Marshal(out)
}

// MarshalJSON renders the bool node.
func (b *BoolQuery) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(b.rest)+1)
	for k, v := range b.rest {
		out[k] = v
	}
	if b.Filter != nil {
		f, err := json.Marshal(b.Filter)
		if err != nil {
			return nil, err
		}
		out[keyFilter] = f
	}
	return json.Marshal(out)
}

// MarshalJSON renders the filter as single object or as list.
func (f *FilterClause) MarshalJSON() ([]byte, error) {
	if f.Single && len(f.Entries) == 1 {
		return f.Entries[0], nil
	}
	if f.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Entries)
}

// SearchBody returns the request body that is sent to the search endpoint.
// It only contains the query, the size and the aggregation (as "aggs").
func (d *QueryDocument) SearchBody() ([]byte, error) {
	body := struct {
		Query *Query          `json:"query"`
		Size  int             `json:"size"`
		Aggs  json.RawMessage `json:"aggs,omitempty"`
	}{
		Query: &d.Query,
		Size:  d.Size,
		Aggs:  d.Aggs,
	}
	return json.Marshal(body)
}
