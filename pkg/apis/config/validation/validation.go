// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"encoding/base64"
	"net/url"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/gardener/es-timeslicer/pkg/apis/config"
)

// ValidateElasticSearch validates the passed connection configuration
func ValidateElasticSearch(cfg *config.ElasticSearch) field.ErrorList {
	allErrs := field.ErrorList{}
	fldPath := field.NewPath("elasticsearch")

	if cfg.CloudID != "" {
		if _, err := config.ParseCloudID(cfg.CloudID); err != nil {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("cloudId"), cfg.CloudID, err.Error()))
		}
	} else if len(cfg.Hosts) == 0 {
		allErrs = append(allErrs, field.Required(fldPath.Child("hosts"), "at least one host or a cloud id has to be defined"))
	}
	for i, host := range cfg.Hosts {
		u, err := url.Parse(host)
		if err != nil {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("hosts").Index(i), host, err.Error()))
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("hosts").Index(i), host, "scheme has to be http or https"))
		}
		if u.Host == "" {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("hosts").Index(i), host, "no host defined"))
		}
	}

	if (cfg.Username == "") != (cfg.Password == "") {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("username"), cfg.Username, "username and password have to be defined together"))
	}
	if cfg.APIID != "" && cfg.APIKey == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("apiKey"), "an api key value has to be defined for the api key id"))
	}
	if cfg.APIToken != "" {
		token, err := base64.StdEncoding.DecodeString(cfg.APIToken)
		if err != nil || !strings.Contains(string(token), ":") {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("apiToken"), "<redacted>", "api token has to be a base64 encoded id:api_key pair"))
		}
	}
	authMethods := 0
	for _, v := range []string{cfg.Username, cfg.APIKey, cfg.APIToken, cfg.BearerAuth} {
		if v != "" {
			authMethods++
		}
	}
	if authMethods > 1 {
		allErrs = append(allErrs, field.Forbidden(fldPath, "only one of basic auth, api key, api token or bearer auth can be used"))
	}

	if cfg.RequestTimeout < 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("requestTimeout"), cfg.RequestTimeout.String(), "timeout cannot be negative"))
	}

	tlsPath := fldPath.Child("tls")
	if (cfg.TLS.ClientCert == "") != (cfg.TLS.ClientKey == "") {
		allErrs = append(allErrs, field.Invalid(tlsPath.Child("clientCert"), cfg.TLS.ClientCert, "client certificate and key have to be defined together"))
	}
	if cfg.TLS.AssertFingerprint != "" {
		if _, err := config.NormalizeFingerprint(cfg.TLS.AssertFingerprint); err != nil {
			allErrs = append(allErrs, field.Invalid(tlsPath.Child("assertFingerprint"), cfg.TLS.AssertFingerprint, err.Error()))
		}
	}
	if cfg.TLS.MinVersion != "" {
		if _, ok := config.TLSVersion(cfg.TLS.MinVersion); !ok {
			allErrs = append(allErrs, field.NotSupported(tlsPath.Child("minVersion"), cfg.TLS.MinVersion, []string{"TLSv1", "TLSv1.1", "TLSv1.2", "TLSv1.3"}))
		}
	}

	return allErrs
}
