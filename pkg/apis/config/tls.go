// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// TLSVersion returns the protocol version of name.
// Underscores are accepted instead of dots, e.g. TLSv1_2.
func TLSVersion(name string) (uint16, bool) {
	v, ok := TLSVersions[strings.ReplaceAll(strings.TrimSpace(name), "_", ".")]
	return v, ok
}

// NormalizeFingerprint returns the lower case hex fingerprint without separators.
// md5, sha1 and sha256 fingerprints are accepted.
func NormalizeFingerprint(fingerprint string) (string, error) {
	fp := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fingerprint), ":", ""))
	if _, err := hex.DecodeString(fp); err != nil {
		return "", errors.Wrap(err, "fingerprint is not hex encoded")
	}
	switch len(fp) {
	case 32, 40, 64:
		return fp, nil
	default:
		return "", errors.Errorf("fingerprint has %d hex digits but md5, sha1 or sha256 fingerprints with 32, 40 or 64 digits are expected", len(fp))
	}
}
