// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer

import (
	"encoding/json"
)

// RangeFilter constrains Field to [GTE, LT).
type RangeFilter struct {
	Field string
	GTE   string
	LT    string
}

// MarshalJSON renders the filter as elasticsearch range clause.
func (f RangeFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		keyRange: map[string]interface{}{
			f.Field: map[string]string{
				"gte": f.GTE,
				"lt":  f.LT,
			},
		},
	})
}

// NewRangeFilter creates the range filter for a window.
func NewRangeFilter(field string, rng TimeRange, w Window) RangeFilter {
	return RangeFilter{
		Field: field,
		GTE:   rng.Format(w.Begin),
		LT:    rng.Format(w.End),
	}
}

// InjectRangeFilter sets filter as the only range clause on filter.Field in query.bool.filter.
// All other filter clauses are kept as they are.
func InjectRangeFilter(doc *QueryDocument, filter RangeFilter) error {
	clause, err := json.Marshal(filter)
	if err != nil {
		return err
	}

	if doc.Query.Bool == nil {
		doc.Query.Bool = &BoolQuery{rest: map[string]json.RawMessage{}}
	}
	b := doc.Query.Bool
	if b.Filter == nil {
		b.Filter = &FilterClause{Entries: []json.RawMessage{clause}}
		return nil
	}

	if b.Filter.Single {
		if len(b.Filter.Entries) == 1 && isRangeOn(b.Filter.Entries[0], filter.Field) {
			b.Filter = &FilterClause{Entries: []json.RawMessage{clause}}
			return nil
		}
		b.Filter = &FilterClause{Entries: append(b.Filter.Entries, clause)}
		return nil
	}

	entries := make([]json.RawMessage, 0, len(b.Filter.Entries)+1)
	for _, entry := range b.Filter.Entries {
		if isRangeOn(entry, filter.Field) {
			continue
		}
		entries = append(entries, entry)
	}
	b.Filter.Entries = append(entries, clause)
	return nil
}

// isRangeOn checks whether a filter clause is a range clause on field.
func isRangeOn(entry json.RawMessage, field string) bool {
	var clause map[string]json.RawMessage
	if err := json.Unmarshal(entry, &clause); err != nil {
		return false
	}
	rangeData, ok := clause[keyRange]
	if !ok {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rangeData, &fields); err != nil {
		return false
	}
	_, ok = fields[field]
	return ok
}
