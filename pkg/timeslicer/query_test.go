// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/gardener/es-timeslicer/pkg/timeslicer"
)

var _ = Describe("query document", func() {

	searchBody := func(doc *timeslicer.QueryDocument) map[string]interface{} {
		body, err := doc.SearchBody()
		ExpectWithOffset(1, err).ToNot(HaveOccurred())
		res := map[string]interface{}{}
		ExpectWithOffset(1, json.Unmarshal(body, &res)).To(Succeed())
		return res
	}

	It("should prefer aggs over aggregations", func() {
		doc := mustParse(`{"query":{},"size":0,"aggs":{"a":{"terms":{"field":"a"}}},"aggregations":{"b":{"terms":{"field":"b"}}}}`)
		Expect(doc.AggsKey).To(Equal("aggs"))
		Expect(searchBody(doc)["aggs"]).To(HaveKey("a"))
	})

	It("should send aggregations as aggs", func() {
		doc := mustParse(`{"query":{},"size":0,"aggregations":{"b":{"terms":{"field":"b"}}}}`)
		body := searchBody(doc)
		Expect(body["aggs"]).To(HaveKey("b"))
		Expect(body).ToNot(HaveKey("aggregations"))
	})

	It("should only send query, size and aggs", func() {
		doc := mustParse(`{"query":{"match_all":{}},"size":10,"sort":[{"@timestamp":"asc"}],"_source":false}`)
		body := searchBody(doc)
		Expect(body).To(HaveLen(2))
		Expect(body).To(HaveKeyWithValue("size", float64(10)))
		Expect(body).To(HaveKeyWithValue("query", map[string]interface{}{"match_all": map[string]interface{}{}}))
	})

	It("should keep unknown keys in the complete document", func() {
		doc := mustParse(`{"query":{"match_all":{}},"size":10,"sort":[{"@timestamp":"asc"}]}`)
		data, err := json.Marshal(doc)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"sort":[{"@timestamp":"asc"}]`))
	})

	DescribeTable("should reject invalid documents",
		func(doc string) {
			_, err := timeslicer.ParseQueryDocument([]byte(doc))
			Expect(err).To(HaveOccurred())
			var cfgErr *timeslicer.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		},
		Entry("empty", ""),
		Entry("empty object", "{}"),
		Entry("not json", "query"),
		Entry("no query", `{"size":0}`),
		Entry("no size", `{"query":{}}`),
		Entry("size is no number", `{"query":{},"size":"ten"}`),
		Entry("query is no object", `{"query":[],"size":0}`),
		Entry("bool is no object", `{"query":{"bool":1},"size":0}`),
		Entry("malformed filter list", `{"query":{"bool":{"filter":[1,}}},"size":0}`),
	)

	Context("ReadQueryFile", func() {
		It("should read the document from a file", func() {
			file := filepath.Join(GinkgoT().TempDir(), "query.json")
			Expect(os.WriteFile(file, []byte(`{"query":{},"size":0}`), 0o600)).To(Succeed())
			doc, err := timeslicer.ReadQueryFile(file)
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Size).To(Equal(0))
		})

		It("should return a configuration error for missing files", func() {
			_, err := timeslicer.ReadQueryFile(filepath.Join(GinkgoT().TempDir(), "missing.json"))
			Expect(timeslicer.ExitCode(err)).To(Equal(timeslicer.ExitConfiguration))
		})
	})
})
