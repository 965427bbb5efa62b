// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package bulk

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch"
)

const (
	// DefaultMaxAttempts is the number of bulk requests that are sent for a batch at most.
	DefaultMaxAttempts = 10
	// DefaultInitialBackoff is the wait time before the first retry. It doubles with every retry.
	DefaultInitialBackoff = 1 * time.Second
)

// WriterOptions configure the retry behavior of a Writer.
type WriterOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	// MaxRequestSize is the max size of a single request body. Defaults to 50mb.
	MaxRequestSize int
}

// Writer writes records to elasticsearch using bulk requests.
type Writer struct {
	log    logr.Logger
	client elasticsearch.Client

	maxAttempts    int
	initialBackoff time.Duration
	maxRequestSize int
}

// Result accounts for every record of a batch.
type Result struct {
	Total    int
	Indexed  int
	Rejected []ItemFailure
}

// ItemFailure describes a record that elasticsearch did not accept.
type ItemFailure struct {
	// Position is the index of the record in the written batch.
	Position int
	Index    string
	ID       string
	Status   int
	Type     string
	Reason   string
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("record %d (index %q, id %q) rejected with status %d: %s: %s", f.Position, f.Index, f.ID, f.Status, f.Type, f.Reason)
}

// WriteError is returned if some records of a batch were rejected.
// All other records have been written.
type WriteError struct {
	Result *Result
}

func (e *WriteError) Error() string {
	var allErrs *multierror.Error
	for _, f := range e.Result.Rejected {
		allErrs = multierror.Append(allErrs, f)
	}
	return fmt.Sprintf("%d of %d records were rejected: %s", len(e.Result.Rejected), e.Result.Total, allErrs.Error())
}

// IsPartialFailure checks whether err only reports rejected records.
func IsPartialFailure(err error) bool {
	var writeErr *WriteError
	return errors.As(err, &writeErr)
}

// NewWriter creates a new bulk writer. Unset options are defaulted.
func NewWriter(log logr.Logger, client elasticsearch.Client, opts WriterOptions) *Writer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = maxBufferSize
	}
	return &Writer{
		log:            log,
		client:         client,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		maxRequestSize: opts.MaxRequestSize,
	}
}

// Write indexes all records into index.
// Transport errors and throttled records are retried with exponential backoff.
// If records are rejected the returned error is a *WriteError and the result is still valid.
// Any other error means the destination could not be reached.
func (w *Writer) Write(ctx context.Context, index, pipeline string, records []Record) (*Result, error) {
	result := &Result{Total: len(records)}
	if len(records) == 0 {
		return result, nil
	}
	pending, err := FromRecords(records, index, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build bulk request")
	}

	backoff := wait.Backoff{
		Duration: w.initialBackoff,
		Factor:   2,
		Steps:    w.maxAttempts,
	}
	var (
		attempts     int
		transportErr error
	)
	err = wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempts++
		res, err := w.send(ctx, pending, result)
		if err != nil {
			return false, err
		}
		pending = res.retry
		transportErr = res.requestErr
		if len(pending) == 0 {
			return true, nil
		}
		w.log.V(1).Info("bulk request incomplete, retrying", "attempt", attempts, "maxAttempts", w.maxAttempts, "pending", len(pending), "error", errString(res.requestErr))
		return false, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !wait.Interrupted(err) {
			return nil, err
		}
		if transportErr != nil {
			return nil, errors.Wrapf(transportErr, "bulk request failed after %d attempts", attempts)
		}
		for _, b := range pending {
			target := b.Metadata.Target()
			result.Rejected = append(result.Rejected, ItemFailure{
				Position: b.Position,
				Index:    target.Index,
				ID:       target.ID,
				Status:   http.StatusTooManyRequests,
				Type:     "es_rejected_execution_exception",
				Reason:   fmt.Sprintf("still throttled after %d attempts", attempts),
			})
		}
	}

	if len(result.Rejected) != 0 {
		return result, &WriteError{Result: result}
	}
	return result, nil
}

// attempt is the outcome of sending all pending bulks once.
type attempt struct {
	retry BulkList
	// requestErr is the last retryable error of a whole request.
	requestErr error
}

// send sends all pending bulks once. A returned error is not retryable.
func (w *Writer) send(ctx context.Context, pending BulkList, result *Result) (*attempt, error) {
	chunks, err := pending.marshal(w.maxRequestSize)
	if err != nil {
		return nil, err
	}

	out := &attempt{}
	for _, chunk := range chunks {
		res, err := w.client.Bulk(ctx, chunk.Data)
		if err != nil {
			if !isRetryable(err) || ctx.Err() != nil {
				return nil, err
			}
			out.requestErr = err
			out.retry = append(out.retry, chunk.Bulks...)
			continue
		}
		if len(res.Items) != len(chunk.Bulks) {
			return nil, errors.Errorf("bulk response contains %d items but %d were sent", len(res.Items), len(chunk.Bulks))
		}
		for i, item := range res.Items {
			b := chunk.Bulks[i]
			itemRes := elasticsearch.Result(item)
			switch {
			case itemRes.Status >= 200 && itemRes.Status <= 299:
				result.Indexed++
			case itemRes.Status == http.StatusTooManyRequests:
				out.retry = append(out.retry, b)
			default:
				failure := ItemFailure{
					Position: b.Position,
					Index:    itemRes.Index,
					ID:       itemRes.ID,
					Status:   itemRes.Status,
				}
				if itemRes.Error != nil {
					failure.Type = itemRes.Error.Type
					failure.Reason = itemRes.Error.Reason
				}
				result.Rejected = append(result.Rejected, failure)
			}
		}
	}
	return out, nil
}

// isRetryable checks whether a failed bulk request may succeed when it is sent again.
func isRetryable(err error) bool {
	var statusErr *elasticsearch.StatusError
	if !errors.As(err, &statusErr) {
		// connection level errors
		return true
	}
	switch statusErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
