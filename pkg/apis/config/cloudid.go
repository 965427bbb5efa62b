// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const defaultCloudPort = 443

// ParseCloudID returns the elasticsearch endpoint of an Elastic Cloud id.
// A cloud id has the form "<name>:<base64(<domain>[:<port>]$<es uuid>[$<kibana uuid>])>".
func ParseCloudID(cloudID string) (string, error) {
	encoded := strings.TrimSpace(cloudID)
	if i := strings.LastIndex(encoded, ":"); i >= 0 {
		encoded = encoded[i+1:]
	}
	if encoded == "" {
		return "", errors.New("cloud id is empty")
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(err, "cloud id is not base64 encoded")
	}

	parts := strings.Split(string(decoded), "$")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", errors.New("cloud id does not contain a domain and an elasticsearch id")
	}
	domain, esID := parts[0], parts[1]

	port := defaultCloudPort
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		p, err := strconv.Atoi(domain[i+1:])
		if err != nil || p <= 0 || p > 65535 {
			return "", errors.Errorf("cloud id contains an invalid port %q", domain[i+1:])
		}
		domain, port = domain[:i], p
	}
	return fmt.Sprintf("https://%s", net.JoinHostPort(esID+"."+domain, strconv.Itoa(port))), nil
}
