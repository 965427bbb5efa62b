// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/gardener/es-timeslicer/pkg/timeslicer"
)

func collect(rng timeslicer.TimeRange, inc time.Duration) []timeslicer.Window {
	var windows []timeslicer.Window
	for w := range timeslicer.Windows(rng, inc) {
		windows = append(windows, w)
	}
	return windows
}

var _ = Describe("time windows", func() {

	It("should split the range into windows of the increment", func() {
		rng, err := timeslicer.NewTimeRange("2024-01-01T01:00:00", "2024-01-01T00:00:00")
		Expect(err).ToNot(HaveOccurred())

		windows := collect(rng, 20*time.Minute)
		Expect(windows).To(HaveLen(3))

		var bounds [][2]string
		for _, w := range windows {
			bounds = append(bounds, [2]string{rng.Format(w.Begin), rng.Format(w.End)})
		}
		Expect(bounds).To(Equal([][2]string{
			{"2024-01-01T00:00:00", "2024-01-01T00:20:00"},
			{"2024-01-01T00:20:00", "2024-01-01T00:40:00"},
			{"2024-01-01T00:40:00", "2024-01-01T01:00:00"},
		}))
	})

	It("should clamp the last window to the newest boundary", func() {
		rng, err := timeslicer.NewTimeRange("2024-01-01T00:50:00Z", "2024-01-01T00:00:00Z")
		Expect(err).ToNot(HaveOccurred())

		windows := collect(rng, 20*time.Minute)
		Expect(windows).To(HaveLen(3))
		last := windows[2]
		Expect(last.End).To(Equal(rng.Newest))
		Expect(last.Duration()).To(Equal(10 * time.Minute))
	})

	It("should produce a single window if the increment exceeds the range", func() {
		rng, err := timeslicer.NewTimeRange("2024-01-01T00:05:00Z", "2024-01-01T00:00:00Z")
		Expect(err).ToNot(HaveOccurred())

		windows := collect(rng, time.Hour)
		Expect(windows).To(HaveLen(1))
		Expect(windows[0].Begin).To(Equal(rng.Oldest))
		Expect(windows[0].End).To(Equal(rng.Newest))
	})

	DescribeTable("should cover the range contiguously",
		func(newest, oldest string, inc time.Duration) {
			rng, err := timeslicer.NewTimeRange(newest, oldest)
			Expect(err).ToNot(HaveOccurred())

			windows := collect(rng, inc)
			Expect(windows).ToNot(BeEmpty())
			Expect(windows[0].Begin).To(Equal(rng.Oldest))
			for i, w := range windows {
				Expect(w.Begin.Before(w.End)).To(BeTrue())
				if i > 0 {
					Expect(w.Begin).To(Equal(windows[i-1].End))
				}
			}
			Expect(windows[len(windows)-1].End).To(Equal(rng.Newest))
		},
		Entry("even split", "2024-01-02T00:00:00Z", "2024-01-01T00:00:00Z", time.Hour),
		Entry("uneven split", "2024-01-01T10:07:00+02:00", "2024-01-01T00:00:00+02:00", 7*time.Minute),
		Entry("naive dates", "2024-02-01", "2024-01-01", 24*time.Hour),
		Entry("fractional seconds", "2024-01-01T00:00:01.5Z", "2024-01-01T00:00:00Z", time.Minute),
	)

	Context("cursor", func() {
		It("should only advance explicitly", func() {
			rng, err := timeslicer.NewTimeRange("2024-01-01T01:00:00Z", "2024-01-01T00:00:00Z")
			Expect(err).ToNot(HaveOccurred())
			c, err := timeslicer.NewCursor(rng, 30*time.Minute)
			Expect(err).ToNot(HaveOccurred())

			w := c.Window()
			Expect(c.Window()).To(Equal(w))
			Expect(c.Position()).To(Equal(rng.Oldest))

			c.Advance(w)
			Expect(c.Position()).To(Equal(w.End))
			c.Advance(w)
			Expect(c.Position()).To(Equal(w.End))

			c.Advance(c.Window())
			Expect(c.Done()).To(BeTrue())
		})

		It("should reject non positive increments", func() {
			rng, err := timeslicer.NewTimeRange("2024-01-01T01:00:00Z", "2024-01-01T00:00:00Z")
			Expect(err).ToNot(HaveOccurred())
			_, err = timeslicer.NewCursor(rng, 0)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("NewTimeRange", func() {
		DescribeTable("should reject invalid boundaries",
			func(newest, oldest string) {
				_, err := timeslicer.NewTimeRange(newest, oldest)
				Expect(err).To(HaveOccurred())
				var cfgErr *timeslicer.ConfigurationError
				Expect(errors.As(err, &cfgErr)).To(BeTrue())
			},
			Entry("malformed start time", "yesterday", "2024-01-01T00:00:00Z"),
			Entry("malformed end time", "2024-01-01T00:00:00Z", "2024-13-01"),
			Entry("end after start", "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"),
			Entry("equal boundaries", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"),
			Entry("mixed offsets", "2024-01-02T00:00:00Z", "2024-01-01T00:00:00"),
		)

		DescribeTable("should accept ISO 8601 variants",
			func(value string, expected time.Time, naive bool) {
				ts, err := timeslicer.ParseTimestamp(value)
				Expect(err).ToNot(HaveOccurred())
				Expect(ts.Time.Equal(expected)).To(BeTrue(), "parsed %s", ts.Time)
				Expect(ts.Naive()).To(Equal(naive))
			},
			Entry("space separator", "2024-01-01 00:00:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true),
			Entry("space separator with offset", "2024-01-01 01:00:00+01:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false),
			Entry("offset without colon", "2024-01-01T01:00:00+0100", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false),
			Entry("hour only offset", "2024-01-01T01:00:00+01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false),
			Entry("hour precision", "2024-01-01T05", time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC), true),
			Entry("minute precision with zulu", "2024-01-01T05:30Z", time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC), false),
		)

		It("should keep the offset of aware timestamps", func() {
			rng, err := timeslicer.NewTimeRange("2024-01-01T02:00:00+02:00", "2024-01-01T01:00:00+02:00")
			Expect(err).ToNot(HaveOccurred())
			Expect(rng.Format(rng.Oldest)).To(Equal("2024-01-01T01:00:00+02:00"))
		})

		It("should render naive timestamps without offset", func() {
			rng, err := timeslicer.NewTimeRange("2024-01-01T02:00:00.250", "2024-01-01T01:00:00")
			Expect(err).ToNot(HaveOccurred())
			Expect(rng.Format(rng.Newest)).To(Equal("2024-01-01T02:00:00.25"))
		})
	})
})
