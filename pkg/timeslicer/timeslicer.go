// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/gardener/es-timeslicer/pkg/transform"
	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch"
	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch/bulk"
)

// State is the terminal state of a run.
type State string

const (
	// StateCompleted means the whole range has been processed.
	StateCompleted State = "Completed"
	// StateDryRun means the run stopped at the first slice with records without writing anything.
	StateDryRun State = "DryRun"
	// StateAborted means the run stopped with a fatal error. Slices written before are kept.
	StateAborted State = "Aborted"
)

// Result summarizes a run.
type Result struct {
	State State
	// Slices is the number of processed slices.
	Slices      int
	EmptySlices int
	Indexed     int
	Rejected    int
	// Preview holds the records of the first non-empty slice of a dry run.
	Preview []bulk.Record
	// PreviewWindow is the slice the preview was computed for.
	PreviewWindow Window
}

// RecordWriter writes the records of one slice.
type RecordWriter interface {
	Write(ctx context.Context, index, pipeline string, records []bulk.Record) (*bulk.Result, error)
}

// TimeSlicer runs a query over consecutive time windows and writes the transformed results.
type TimeSlicer struct {
	log    logr.Logger
	client elasticsearch.Client
	params *RunParameters

	writer        RecordWriter
	loadTransform transform.Loader
}

// Option configures a TimeSlicer.
type Option func(*TimeSlicer)

// WithWriter overwrites the default bulk writer.
func WithWriter(w RecordWriter) Option {
	return func(t *TimeSlicer) {
		t.writer = w
	}
}

// WithTransformLoader overwrites how the transform file is loaded.
func WithTransformLoader(l transform.Loader) Option {
	return func(t *TimeSlicer) {
		t.loadTransform = l
	}
}

// New creates a new time slicer for validated run parameters.
func New(log logr.Logger, client elasticsearch.Client, params *RunParameters, opts ...Option) *TimeSlicer {
	t := &TimeSlicer{
		log:           log,
		client:        client,
		params:        params,
		loadTransform: transform.Load,
	}
	for _, o := range opts {
		o(t)
	}
	if t.writer == nil {
		t.writer = bulk.NewWriter(log.WithName("bulk"), client, bulk.WriterOptions{})
	}
	return t
}

// Run processes all windows from the oldest to the newest boundary.
// Every returned error is a *FatalError. Slices written before the error are not rolled back.
func (t *TimeSlicer) Run(ctx context.Context) (*Result, error) {
	doc, err := ReadQueryFile(t.params.QueryFile())
	if err != nil {
		return nil, Fatal(err)
	}

	t.log.V(3).Info("loading transform", "file", t.params.TransformFile())
	fn, err := t.loadTransform(t.params.TransformFile(), t.params.TransformArgs())
	if err != nil {
		return nil, Fatal(NewConfigurationError(errors.Wrap(err, "unable to load transform")))
	}
	defer func() {
		if err := fn.Close(); err != nil {
			t.log.V(3).Info("unable to close transform", "error", err.Error())
		}
	}()

	cursor, err := NewCursor(t.params.TimeRange(), t.params.Increment())
	if err != nil {
		return nil, Fatal(err)
	}

	result := &Result{State: StateCompleted}
	abort := func(err error) (*Result, error) {
		result.State = StateAborted
		return result, Fatal(err)
	}
	for !cursor.Done() {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		w := cursor.Window()
		records, err := t.executeSlice(ctx, doc, fn, w)
		if err != nil {
			return abort(err)
		}
		result.Slices++

		switch {
		case len(records) == 0:
			t.log.V(1).Info("no documents found in this time slice, continuing")
			result.EmptySlices++
		case t.params.DryRun():
			result.State = StateDryRun
			result.Preview = records
			result.PreviewWindow = w
			return result, nil
		default:
			if err := t.write(ctx, records, result); err != nil {
				return abort(err)
			}
		}

		cursor.Advance(w)
	}

	t.log.Info("finished processing time range", "slices", result.Slices, "indexed", result.Indexed, "rejected", result.Rejected)
	return result, nil
}

// executeSlice queries one window and transforms the result.
func (t *TimeSlicer) executeSlice(ctx context.Context, doc *QueryDocument, fn transform.Func, w Window) ([]bulk.Record, error) {
	rng := t.params.TimeRange()
	filter := NewRangeFilter(t.params.Field(), rng, w)
	t.log.Info("processing time slice", "begin", filter.GTE, "end", filter.LT)

	if err := InjectRangeFilter(doc, filter); err != nil {
		return nil, errors.Wrap(err, "unable to inject range filter")
	}
	body, err := doc.SearchBody()
	if err != nil {
		return nil, errors.Wrap(err, "unable to render search request")
	}
	if t.params.Trace() {
		t.log.WithName("trace").Info("request", "index", t.params.ReadIndex(), "body", indent(body))
	}

	raw, err := t.client.Search(ctx, t.params.ReadIndex(), body)
	if err != nil {
		return nil, NewClientError(errors.Wrapf(err, "search on %s failed", t.params.ReadIndex()))
	}
	if t.params.Trace() {
		t.log.WithName("trace").Info("result", "body", indent(raw))
	}

	searchResult := map[string]interface{}{}
	if err := json.Unmarshal(raw, &searchResult); err != nil {
		return nil, NewClientError(errors.Wrap(err, "unable to parse search result"))
	}

	records, err := fn.Transform(ctx, searchResult, t.params.WriteIndex(), t.params.Pipeline())
	if err != nil {
		return nil, errors.Wrapf(err, "error executing transform %q", t.params.TransformFile())
	}
	return records, nil
}

// write bulk writes the records of a slice. Rejected records are only reported.
func (t *TimeSlicer) write(ctx context.Context, records []bulk.Record, result *Result) error {
	t.log.V(1).Info("bulk-writing documents", "index", t.params.WriteIndex(), "count", len(records))
	res, err := t.writer.Write(ctx, t.params.WriteIndex(), t.params.Pipeline(), records)
	if err != nil && !bulk.IsPartialFailure(err) {
		return NewClientError(errors.Wrapf(err, "bulk write to %s failed", t.params.WriteIndex()))
	}

	result.Indexed += res.Indexed
	result.Rejected += len(res.Rejected)
	if err != nil {
		t.log.Error(err, "bulk indexing encountered one or more errors", "indexed", res.Indexed, "rejected", len(res.Rejected))
		for _, f := range res.Rejected {
			t.log.Info("record rejected", "position", f.Position, "index", f.Index, "id", f.ID, "status", f.Status, "type", f.Type, "reason", f.Reason)
		}
		return nil
	}
	t.log.V(1).Info("bulk write finished", "indexed", res.Indexed)
	return nil
}

func indent(data []byte) string {
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
