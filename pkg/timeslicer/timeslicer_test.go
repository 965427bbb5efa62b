// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/mock/gomock"

	"github.com/gardener/es-timeslicer/pkg/timeslicer"
	"github.com/gardener/es-timeslicer/pkg/transform"
	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch"
	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch/bulk"
	mock_elasticsearch "github.com/gardener/es-timeslicer/pkg/util/elasticsearch/mocks"
)

// fakeTransform returns the records of the next entry of output for every call.
type fakeTransform struct {
	output  [][]bulk.Record
	err     error
	calls   int
	results []map[string]interface{}
	closed  bool
}

func (f *fakeTransform) Transform(_ context.Context, result map[string]interface{}, _, _ string) ([]bulk.Record, error) {
	f.results = append(f.results, result)
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	f.calls++
	if i >= len(f.output) {
		return nil, nil
	}
	return f.output[i], nil
}

func (f *fakeTransform) Close() error {
	f.closed = true
	return nil
}

func records(n int) []bulk.Record {
	res := make([]bulk.Record, n)
	for i := range res {
		res[i] = bulk.Record{"n": float64(i)}
	}
	return res
}

func bulkResponse(status ...int) *elasticsearch.BulkResponse {
	res := &elasticsearch.BulkResponse{}
	for _, s := range status {
		item := elasticsearch.BulkResponseItem{Index: "summary", Status: s}
		if s >= 300 {
			res.Errors = true
			item.Error = &elasticsearch.BulkItemError{Type: "mapper_parsing_exception", Reason: "failed to parse"}
		}
		res.Items = append(res.Items, map[string]elasticsearch.BulkResponseItem{"index": item})
	}
	return res
}

func statuses(n int, status int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = status
	}
	return res
}

var _ = Describe("time slicer", func() {
	var (
		ctx       context.Context
		ctrl      *gomock.Controller
		client    *mock_elasticsearch.MockClient
		dir       string
		opts      timeslicer.Options
		fn        *fakeTransform
		searchHit []byte
	)

	BeforeEach(func() {
		ctx = context.Background()
		ctrl = gomock.NewController(GinkgoT())
		client = mock_elasticsearch.NewMockClient(ctrl)
		dir = GinkgoT().TempDir()
		fn = &fakeTransform{}
		searchHit = []byte(`{"hits":{"total":{"value":1},"hits":[]}}`)

		queryFile := filepath.Join(dir, "query.json")
		Expect(os.WriteFile(queryFile, []byte(`{"query":{"bool":{"filter":[{"term":{"level":"error"}}]}},"size":0,"aggs":{"hosts":{"terms":{"field":"host"}}}}`), 0o600)).To(Succeed())

		opts = timeslicer.Options{
			ReadIndex:     "logs-*",
			WriteIndex:    "summary",
			StartTime:     "2024-01-01T01:00:00",
			EndTime:       "2024-01-01T00:00:00",
			Increment:     20,
			TransformFile: "transform.lua",
			QueryFile:     queryFile,
		}
	})

	newSlicer := func() *timeslicer.TimeSlicer {
		params, err := timeslicer.NewRunParameters(opts)
		Expect(err).ToNot(HaveOccurred())
		return timeslicer.New(logr.Discard(), client, params,
			timeslicer.WithTransformLoader(func(string, []string) (transform.Func, error) {
				return fn, nil
			}),
			timeslicer.WithWriter(bulk.NewWriter(logr.Discard(), client, bulk.WriterOptions{
				MaxAttempts:    3,
				InitialBackoff: time.Millisecond,
			})),
		)
	}

	It("should query every window with its own range filter", func() {
		var bodies []map[string]interface{}
		client.EXPECT().Search(gomock.Any(), "logs-*", gomock.Any()).DoAndReturn(func(_ context.Context, _ string, body []byte) ([]byte, error) {
			req := map[string]interface{}{}
			Expect(json.Unmarshal(body, &req)).To(Succeed())
			bodies = append(bodies, req)
			return searchHit, nil
		}).Times(3)

		res, err := newSlicer().Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.State).To(Equal(timeslicer.StateCompleted))
		Expect(res.Slices).To(Equal(3))
		Expect(res.EmptySlices).To(Equal(3))
		Expect(fn.closed).To(BeTrue())

		Expect(bodies).To(HaveLen(3))
		for i, bounds := range [][2]string{
			{"2024-01-01T00:00:00", "2024-01-01T00:20:00"},
			{"2024-01-01T00:20:00", "2024-01-01T00:40:00"},
			{"2024-01-01T00:40:00", "2024-01-01T01:00:00"},
		} {
			filter := bodies[i]["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
			Expect(filter).To(HaveLen(2))
			Expect(filter[1]).To(Equal(rangeClause("@timestamp", bounds[0], bounds[1])))
			Expect(bodies[i]).To(HaveKey("aggs"))
		}
	})

	It("should not write empty slices but still advance", func() {
		fn.output = [][]bulk.Record{nil, records(2), {}}
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(3)
		client.EXPECT().Bulk(gomock.Any(), gomock.Any()).Return(bulkResponse(201, 201), nil).Times(1)

		res, err := newSlicer().Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Slices).To(Equal(3))
		Expect(res.EmptySlices).To(Equal(2))
		Expect(res.Indexed).To(Equal(2))
	})

	It("should pass the parsed search result to the transform", func() {
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(3)

		_, err := newSlicer().Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(fn.results).To(HaveLen(3))
		Expect(fn.results[0]).To(HaveKey("hits"))
	})

	It("should stop at the first non empty slice of a dry run without writing", func() {
		opts.DryRun = true
		fn.output = [][]bulk.Record{nil, records(3), records(5)}
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(2)
		client.EXPECT().Bulk(gomock.Any(), gomock.Any()).Times(0)

		res, err := newSlicer().Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.State).To(Equal(timeslicer.StateDryRun))
		Expect(res.Preview).To(HaveLen(3))
		Expect(res.Slices).To(Equal(2))
		Expect(res.PreviewWindow.Duration()).To(Equal(20 * time.Minute))
	})

	It("should complete a dry run without records", func() {
		opts.DryRun = true
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(3)

		res, err := newSlicer().Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.State).To(Equal(timeslicer.StateCompleted))
		Expect(res.Preview).To(BeEmpty())
	})

	It("should abort on a search error and keep the previous writes", func() {
		opts.StartTime = "2024-01-01T01:20:00"
		fn.output = [][]bulk.Record{records(1), records(1), records(1), records(1)}
		gomock.InOrder(
			client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(3),
			client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")).Times(1),
		)
		client.EXPECT().Bulk(gomock.Any(), gomock.Any()).Return(bulkResponse(201), nil).Times(3)

		res, err := newSlicer().Run(ctx)
		Expect(err).To(HaveOccurred())
		var fatal *timeslicer.FatalError
		Expect(errors.As(err, &fatal)).To(BeTrue())
		Expect(timeslicer.ExitCode(err)).To(Equal(timeslicer.ExitClient))
		Expect(res.State).To(Equal(timeslicer.StateAborted))
		Expect(res.Slices).To(Equal(3))
		Expect(res.Indexed).To(Equal(3))
	})

	It("should continue after a partial bulk failure", func() {
		fn.output = [][]bulk.Record{records(10), records(1)}
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(3)
		gomock.InOrder(
			client.EXPECT().Bulk(gomock.Any(), gomock.Any()).Return(bulkResponse(append(statuses(8, 201), 400, 400)...), nil),
			client.EXPECT().Bulk(gomock.Any(), gomock.Any()).Return(bulkResponse(201), nil),
		)

		res, err := newSlicer().Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.State).To(Equal(timeslicer.StateCompleted))
		Expect(res.Indexed).To(Equal(9))
		Expect(res.Rejected).To(Equal(2))
	})

	It("should abort if the destination is not reachable", func() {
		fn.output = [][]bulk.Record{records(1)}
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(1)
		client.EXPECT().Bulk(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")).Times(3)

		_, err := newSlicer().Run(ctx)
		Expect(err).To(HaveOccurred())
		var fatal *timeslicer.FatalError
		Expect(errors.As(err, &fatal)).To(BeTrue())
	})

	It("should abort if the transform fails", func() {
		fn.err = errors.New("broken")
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(1)

		_, err := newSlicer().Run(ctx)
		Expect(err).To(HaveOccurred())
		Expect(timeslicer.ExitCode(err)).To(Equal(timeslicer.ExitFatal))
		Expect(fn.closed).To(BeTrue())
	})

	It("should abort if the search result is no json object", func() {
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(`[]`), nil).Times(1)

		_, err := newSlicer().Run(ctx)
		Expect(timeslicer.ExitCode(err)).To(Equal(timeslicer.ExitClient))
	})

	It("should fail before any query if the transform defines two functions", func() {
		file := filepath.Join(dir, "transform.lua")
		Expect(os.WriteFile(file, []byte("function a(r) return {} end\nfunction b(r) return {} end\n"), 0o600)).To(Succeed())
		opts.TransformFile = file
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		params, err := timeslicer.NewRunParameters(opts)
		Expect(err).ToNot(HaveOccurred())
		_, err = timeslicer.New(logr.Discard(), client, params).Run(ctx)
		Expect(err).To(HaveOccurred())
		var fatal *timeslicer.FatalError
		Expect(errors.As(err, &fatal)).To(BeTrue())
		var cfgErr *timeslicer.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
	})

	It("should fail before any query if the query file is invalid", func() {
		Expect(os.WriteFile(opts.QueryFile, []byte(`{"size":0}`), 0o600)).To(Succeed())
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := newSlicer().Run(ctx)
		Expect(timeslicer.ExitCode(err)).To(Equal(timeslicer.ExitConfiguration))
	})

	It("should run a lua transform end to end", func() {
		file := filepath.Join(dir, "transform.lua")
		Expect(os.WriteFile(file, []byte(`
function summarize(result, write_index)
  local total = result["hits"]["total"]["value"]
  if total == 0 then
    return {}
  end
  return { { _index = write_index, total = total } }
end
`), 0o600)).To(Succeed())
		opts.TransformFile = file
		client.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(searchHit, nil).Times(3)
		client.EXPECT().Bulk(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) (*elasticsearch.BulkResponse, error) {
			Expect(string(data)).To(Equal("{\"index\":{\"_index\":\"summary\"}}\n{\"total\":1}\n"))
			return bulkResponse(201), nil
		}).Times(3)

		params, err := timeslicer.NewRunParameters(opts)
		Expect(err).ToNot(HaveOccurred())
		res, err := timeslicer.New(logr.Discard(), client, params).Run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Indexed).To(Equal(3))
	})
})
