// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// ElasticSearch holds information about the elastic instance to read from and write data to.
type ElasticSearch struct {
	// Hosts are the endpoints of the cluster, e.g. https://example.com:9200.
	// Requests are sent to the first host that is reachable.
	Hosts []string `json:"hosts,omitempty"`
	// CloudID is the id of an Elastic Cloud deployment. It takes precedence over Hosts.
	// +optional
	CloudID string `json:"cloudId,omitempty"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// APIKey is the api key value if APIID is set, otherwise the base64 encoded "id:api_key" pair.
	// +optional
	APIKey string `json:"apiKey,omitempty"`
	// APIID is the id of the api key.
	// +optional
	APIID string `json:"apiId,omitempty"`
	// APIToken is the base64 encoded "id:api_key" token.
	// +optional
	APIToken string `json:"apiToken,omitempty"`
	// BearerAuth is a bearer token.
	// +optional
	BearerAuth string `json:"bearerAuth,omitempty"`
	// OpaqueID is sent as X-Opaque-Id header with every request.
	// +optional
	OpaqueID string `json:"opaqueId,omitempty"`

	// RequestTimeout limits every single request. 0 means no timeout.
	RequestTimeout time.Duration `json:"requestTimeout,omitempty"`
	// HTTPCompress gzip compresses request bodies.
	HTTPCompress bool `json:"httpCompress,omitempty"`

	TLS TLS `json:"tls,omitempty"`

	// SkipVersionTest disables the check of the cluster version.
	SkipVersionTest bool `json:"skipVersionTest,omitempty"`
}

// TLS holds the certificate configuration of the connection.
type TLS struct {
	// VerifyCerts validates the server certificate.
	VerifyCerts bool `json:"verifyCerts"`
	// CACerts is the path to a pem encoded CA bundle.
	// +optional
	CACerts string `json:"caCerts,omitempty"`
	// ClientCert is the path to a pem encoded client certificate.
	// +optional
	ClientCert string `json:"clientCert,omitempty"`
	// ClientKey is the path to the pem encoded key of the client certificate.
	// +optional
	ClientKey string `json:"clientKey,omitempty"`
	// AssertHostname is the hostname the server certificate is verified against instead of the host of the url.
	// +optional
	AssertHostname string `json:"assertHostname,omitempty"`
	// AssertFingerprint is the hex encoded md5, sha1 or sha256 fingerprint of the server certificate.
	// If set, the certificate is pinned instead of verified against the ca bundle.
	// +optional
	AssertFingerprint string `json:"assertFingerprint,omitempty"`
	// MinVersion is the oldest accepted tls version, one of TLSv1, TLSv1.1, TLSv1.2 or TLSv1.3.
	// +optional
	MinVersion string `json:"minVersion,omitempty"`
}
