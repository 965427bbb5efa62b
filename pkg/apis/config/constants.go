// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"crypto/tls"
)

// DefaultHost is the elasticsearch endpoint used if no host is configured.
const DefaultHost = "http://127.0.0.1:9200"

// MinimumVersion is the oldest elasticsearch version the version test accepts.
const MinimumVersion = ">= 8.0.0"

// OpaqueIDPrefix prefixes generated opaque ids.
const OpaqueIDPrefix = "es-timeslicer"

// TLSVersions maps the accepted tls version names to their protocol version.
var TLSVersions = map[string]uint16{
	"TLSv1":   tls.VersionTLS10,
	"TLSv1.1": tls.VersionTLS11,
	"TLSv1.2": tls.VersionTLS12,
	"TLSv1.3": tls.VersionTLS13,
}
