// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	flag "github.com/spf13/pflag"

	"github.com/gardener/es-timeslicer/pkg/apis/config"
	"github.com/gardener/es-timeslicer/pkg/apis/config/validation"
	"github.com/gardener/es-timeslicer/pkg/timeslicer"
	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch"
)

var cfg = config.ElasticSearch{}

// AddFlags adds the elasticsearch connection flags to fs.
func AddFlags(fs *flag.FlagSet) {
	fs.StringSliceVar(&cfg.Hosts, "hosts", []string{config.DefaultHost}, "elasticsearch hosts, the first reachable host is used")
	fs.StringVar(&cfg.CloudID, "cloud-id", "", "elastic cloud id, takes precedence over --hosts")
	fs.StringVar(&cfg.Username, "username", "", "elasticsearch basic auth username")
	fs.StringVar(&cfg.Password, "password", "", "elasticsearch basic auth password")
	fs.StringVar(&cfg.APIKey, "api-key", "", "elasticsearch api key (base64 encoded id:key)")
	fs.StringVar(&cfg.APIID, "api-id", "", "id of the api key, --api-key is then the unencoded key")
	fs.StringVar(&cfg.APIToken, "api-token", "", "base64 encoded id:key api token")
	fs.StringVar(&cfg.BearerAuth, "bearer-auth", "", "bearer token for the elasticsearch connection")
	fs.StringVar(&cfg.OpaqueID, "opaque-id", "", "X-Opaque-Id header of all requests. Defaults to a random id per run")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", 60*time.Second, "timeout of a single request")
	fs.BoolVar(&cfg.HTTPCompress, "http-compress", false, "gzip compress request bodies")
	fs.BoolVar(&cfg.TLS.VerifyCerts, "verify-certs", true, "verify the certificate of the elasticsearch hosts")
	fs.StringVar(&cfg.TLS.CACerts, "ca-certs", "", "path to a pem encoded ca bundle")
	fs.StringVar(&cfg.TLS.ClientCert, "client-cert", "", "path to a pem encoded client certificate")
	fs.StringVar(&cfg.TLS.ClientKey, "client-key", "", "path to the pem encoded key of the client certificate")
	fs.StringVar(&cfg.TLS.AssertHostname, "ssl-assert-hostname", "", "hostname expected in the server certificate")
	fs.StringVar(&cfg.TLS.AssertFingerprint, "ssl-assert-fingerprint", "", "md5, sha1 or sha256 hex fingerprint the server certificate must match")
	fs.StringVar(&cfg.TLS.MinVersion, "ssl-version", "", "minimum tls version, one of TLSv1, TLSv1.1, TLSv1.2, TLSv1.3")
	fs.BoolVar(&cfg.SkipVersionTest, "skip-version-test", false, "do not check the version of the elasticsearch cluster")
}

// Config returns the connection configuration of the flags.
func Config() config.ElasticSearch {
	c := cfg
	c.Hosts = append([]string(nil), cfg.Hosts...)
	return c
}

// Connect validates the connection configuration and connects to the cluster.
func Connect(ctx context.Context, log logr.Logger) (elasticsearch.Client, error) {
	c := Config()
	if allErrs := validation.ValidateElasticSearch(&c); len(allErrs) != 0 {
		return nil, timeslicer.NewConfigurationError(allErrs.ToAggregate())
	}
	client, err := elasticsearch.Connect(ctx, log, c)
	if err != nil {
		return nil, timeslicer.NewClientError(err)
	}
	return client, nil
}
