// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package elasticsearch

// Info is the response of the cluster root endpoint.
type Info struct {
	Name        string  `json:"name"`
	ClusterName string  `json:"cluster_name"`
	Version     Version `json:"version"`
}

// Version is the version block of the cluster info.
type Version struct {
	Number       string `json:"number"`
	Distribution string `json:"distribution,omitempty"`
}

// BulkResponse is the response that is returned by elastic search when doing a bulk request
type BulkResponse struct {
	Took   int  `json:"took"`
	Errors bool `json:"errors"`
	// Items has one entry per action in request order, keyed by the action (index, create, ...).
	Items []map[string]BulkResponseItem `json:"items"`
}

// BulkResponseItem is response of one document from a bulk request
type BulkResponseItem struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Error  *BulkItemError `json:"error,omitempty"`
}

// BulkItemError describes why a single document was rejected.
type BulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// Result returns the item of the only action of a response entry.
func Result(item map[string]BulkResponseItem) BulkResponseItem {
	for _, res := range item {
		return res
	}
	return BulkResponseItem{}
}
