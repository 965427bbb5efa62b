// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package validation_test

import (
	"encoding/base64"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/gardener/es-timeslicer/pkg/apis/config"
	"github.com/gardener/es-timeslicer/pkg/apis/config/validation"
)

var _ = Describe("ElasticSearch", func() {
	var cfg *config.ElasticSearch

	BeforeEach(func() {
		cfg = &config.ElasticSearch{
			Hosts:          []string{config.DefaultHost},
			RequestTimeout: time.Minute,
			TLS:            config.TLS{VerifyCerts: true},
		}
	})

	It("should accept the default configuration", func() {
		Expect(validation.ValidateElasticSearch(cfg)).To(BeEmpty())
	})

	It("should fail without hosts", func() {
		cfg.Hosts = nil
		Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
			"Type":  Equal(field.ErrorTypeRequired),
			"Field": Equal("elasticsearch.hosts"),
		}))))
	})

	DescribeTable("invalid hosts",
		func(host string) {
			cfg.Hosts = []string{config.DefaultHost, host}
			Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
				"Type":  Equal(field.ErrorTypeInvalid),
				"Field": Equal("elasticsearch.hosts[1]"),
			}))))
		},
		Entry("unsupported scheme", "ftp://es.example.com"),
		Entry("missing scheme", "es.example.com:9200"),
		Entry("missing host", "https://"),
		Entry("unparsable url", "http://[::1"),
	)

	It("should require username and password together", func() {
		cfg.Username = "elastic"
		Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
			"Type":  Equal(field.ErrorTypeInvalid),
			"Field": Equal("elasticsearch.username"),
		}))))

		cfg.Password = "changeme"
		Expect(validation.ValidateElasticSearch(cfg)).To(BeEmpty())
	})

	It("should forbid more than one authentication method", func() {
		cfg.APIKey = "a2V5OnNlY3JldA=="
		cfg.BearerAuth = "token"
		Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
			"Type":  Equal(field.ErrorTypeForbidden),
			"Field": Equal("elasticsearch"),
		}))))
	})

	It("should fail with a negative request timeout", func() {
		cfg.RequestTimeout = -time.Second
		Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
			"Type":  Equal(field.ErrorTypeInvalid),
			"Field": Equal("elasticsearch.requestTimeout"),
		}))))
	})

	It("should accept a cloud id instead of hosts", func() {
		cfg.Hosts = nil
		cfg.CloudID = "prod:" + base64.StdEncoding.EncodeToString([]byte("eu-west-1.aws.found.io$abc123$def456"))
		Expect(validation.ValidateElasticSearch(cfg)).To(BeEmpty())
	})

	It("should accept an api id with its key and an api token", func() {
		cfg.APIID = "key-id"
		cfg.APIKey = "secret"
		Expect(validation.ValidateElasticSearch(cfg)).To(BeEmpty())

		cfg.APIID, cfg.APIKey = "", ""
		cfg.APIToken = base64.StdEncoding.EncodeToString([]byte("key-id:secret"))
		Expect(validation.ValidateElasticSearch(cfg)).To(BeEmpty())
	})

	It("should accept a fingerprint and a minimum tls version", func() {
		cfg.TLS.AssertFingerprint = "AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01"
		cfg.TLS.MinVersion = "TLSv1_2"
		Expect(validation.ValidateElasticSearch(cfg)).To(BeEmpty())
	})

	DescribeTable("invalid connection options",
		func(mutate func(*config.ElasticSearch), errType field.ErrorType, fld string) {
			mutate(cfg)
			Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
				"Type":  Equal(errType),
				"Field": Equal(fld),
			}))))
		},
		Entry("cloud id without a domain", func(c *config.ElasticSearch) {
			c.CloudID = "prod:" + base64.StdEncoding.EncodeToString([]byte("$abc123"))
		}, field.ErrorTypeInvalid, "elasticsearch.cloudId"),
		Entry("cloud id that is not base64", func(c *config.ElasticSearch) {
			c.CloudID = "prod:not base64!"
		}, field.ErrorTypeInvalid, "elasticsearch.cloudId"),
		Entry("api id without a key", func(c *config.ElasticSearch) {
			c.APIID = "key-id"
		}, field.ErrorTypeRequired, "elasticsearch.apiKey"),
		Entry("api token without separator", func(c *config.ElasticSearch) {
			c.APIToken = base64.StdEncoding.EncodeToString([]byte("key-id"))
		}, field.ErrorTypeInvalid, "elasticsearch.apiToken"),
		Entry("api token that is not base64", func(c *config.ElasticSearch) {
			c.APIToken = "key-id:secret"
		}, field.ErrorTypeInvalid, "elasticsearch.apiToken"),
		Entry("api token together with an api key", func(c *config.ElasticSearch) {
			c.APIToken = base64.StdEncoding.EncodeToString([]byte("key-id:secret"))
			c.APIKey = "a2V5OnNlY3JldA=="
		}, field.ErrorTypeForbidden, "elasticsearch"),
		Entry("fingerprint that is not hex", func(c *config.ElasticSearch) {
			c.TLS.AssertFingerprint = "zz:zz"
		}, field.ErrorTypeInvalid, "elasticsearch.tls.assertFingerprint"),
		Entry("fingerprint of unknown length", func(c *config.ElasticSearch) {
			c.TLS.AssertFingerprint = "abcdef"
		}, field.ErrorTypeInvalid, "elasticsearch.tls.assertFingerprint"),
		Entry("unsupported tls version", func(c *config.ElasticSearch) {
			c.TLS.MinVersion = "SSLv3"
		}, field.ErrorTypeNotSupported, "elasticsearch.tls.minVersion"),
	)

	It("should require client certificate and key together", func() {
		cfg.TLS.ClientKey = "/etc/es/client.key"
		Expect(validation.ValidateElasticSearch(cfg)).To(ContainElement(PointTo(MatchFields(IgnoreExtras, Fields{
			"Type":  Equal(field.ErrorTypeInvalid),
			"Field": Equal("elasticsearch.tls.clientCert"),
		}))))
	})
})
