// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package bulk

// Record is one document as returned by a transform.
// Metadata keys (_index, _id, _op_type, _routing, pipeline) are lifted into the bulk action,
// the document itself is either the _source value or all remaining keys.
type Record map[string]interface{}

// Bulk is the internal representation of a elastic search bulk request.
type Bulk struct {
	Metadata ESMetadata
	Source   []byte
	// Position is the index of the originating record.
	Position int
}

// BulkList is a list of bulks
type BulkList []*Bulk

// Chunk is one bulk request body together with the bulks it was rendered from.
type Chunk struct {
	Data  []byte
	Bulks BulkList
}

// ESMetadata is the metadata of a bulk document.
// Exactly one of the actions is set.
type ESMetadata struct {
	Index  *ESIndex `json:"index,omitempty"`
	Create *ESIndex `json:"create,omitempty"`
}

// ESIndex is the elastic search index where the bulk data is stored.
type ESIndex struct {
	Index    string `json:"_index,omitempty"`
	ID       string `json:"_id,omitempty"`
	Routing  string `json:"routing,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
}

// Target returns the action target.
func (m ESMetadata) Target() ESIndex {
	if m.Create != nil {
		return *m.Create
	}
	if m.Index != nil {
		return *m.Index
	}
	return ESIndex{}
}
