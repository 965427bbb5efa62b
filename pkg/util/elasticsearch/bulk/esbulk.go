// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package bulk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// 50 mb
const maxBufferSize = 50 * 1024 * 1024

const (
	OpIndex  = "index"
	OpCreate = "create"

	keyIndex    = "_index"
	keyID       = "_id"
	keyOpType   = "_op_type"
	keyRouting  = "_routing"
	keyPipeline = "pipeline"
	keySource   = "_source"
)

var metadataKeys = sets.New(keyIndex, keyID, keyOpType, keyRouting, keyPipeline, keySource)

// Marshal creates an elastic search bulk json of its metadata and source.
func (b *Bulk) Marshal() ([]byte, error) {
	meta, err := marshalNoHTMLEscape(b.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal bulk metadata")
	}

	buf := bytes.NewBuffer([]byte{})
	buf.Write(meta)
	buf.Write(b.Source)

	return buf.Bytes(), nil
}

// Marshal renders the list into request bodies with a max size of 50mb each.
func (l BulkList) Marshal() ([]Chunk, error) {
	return l.marshal(maxBufferSize)
}

func (l BulkList) marshal(maxSize int) ([]Chunk, error) {
	chunks := []Chunk{}

	current := Chunk{}
	buffer := bytes.NewBuffer([]byte{})
	for _, bulk := range l {
		data, err := bulk.Marshal()
		if err != nil {
			return nil, err
		}

		if buffer.Len() != 0 && (buffer.Len()+len(data)) >= maxSize {
			current.Data = buffer.Bytes()
			chunks = append(chunks, current)
			current = Chunk{}
			buffer = bytes.NewBuffer([]byte{})
		}
		buffer.Write(data)
		current.Bulks = append(current.Bulks, bulk)
	}
	if buffer.Len() != 0 {
		current.Data = buffer.Bytes()
		chunks = append(chunks, current)
	}

	return chunks, nil
}

// FromRecords creates one bulk action per record.
// Records without _index are written to index, records without pipeline use pipeline.
func FromRecords(records []Record, index, pipeline string) (BulkList, error) {
	bulks := make(BulkList, 0, len(records))
	for i, record := range records {
		bulk, err := fromRecord(record, index, pipeline)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		bulk.Position = i
		bulks = append(bulks, bulk)
	}
	return bulks, nil
}

func fromRecord(record Record, index, pipeline string) (*Bulk, error) {
	target := &ESIndex{
		Index:    index,
		Pipeline: pipeline,
	}
	var err error
	if target.Index, err = stringField(record, keyIndex, target.Index); err != nil {
		return nil, err
	}
	if target.ID, err = stringField(record, keyID, ""); err != nil {
		return nil, err
	}
	if target.Routing, err = stringField(record, keyRouting, ""); err != nil {
		return nil, err
	}
	if target.Pipeline, err = stringField(record, keyPipeline, target.Pipeline); err != nil {
		return nil, err
	}
	opType, err := stringField(record, keyOpType, OpIndex)
	if err != nil {
		return nil, err
	}
	if target.Index == "" {
		return nil, errors.New("no target index defined")
	}

	meta := ESMetadata{}
	switch opType {
	case OpIndex:
		meta.Index = target
	case OpCreate:
		meta.Create = target
	default:
		return nil, errors.Errorf("unsupported operation type %q", opType)
	}

	var doc interface{}
	if source, ok := record[keySource]; ok {
		doc = source
	} else {
		fields := make(map[string]interface{}, len(record))
		for key, value := range record {
			if metadataKeys.Has(key) {
				continue
			}
			fields[key] = value
		}
		doc = fields
	}
	source, err := marshalNoHTMLEscape(doc)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal document")
	}
	if !bytes.HasPrefix(bytes.TrimSpace(source), []byte("{")) {
		return nil, errors.New("document has to be a json object")
	}

	return &Bulk{
		Metadata: meta,
		Source:   source,
	}, nil
}

func stringField(record Record, key, def string) (string, error) {
	value, ok := record[key]
	if !ok || value == nil {
		return def, nil
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return def, nil
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int, int64:
		return fmt.Sprint(v), nil
	default:
		return "", errors.Errorf("%s has to be a string but is %T", key, value)
	}
}

// marshalNoHTMLEscape is nearly same as json.Marshal but does NOT HTLM-escape <, > or &
// However it does add a newline char at the end (as done by json.Encoder.Encode)
func marshalNoHTMLEscape(v interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(buffer)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
