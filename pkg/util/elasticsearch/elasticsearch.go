// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package elasticsearch

import (
	"bytes"
	"context"
	"crypto/md5"  // #nosec G501 -- md5 is one of the accepted certificate fingerprints
	"crypto/sha1" // #nosec G505 -- sha1 is one of the accepted certificate fingerprints
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/gardener/es-timeslicer/pkg/apis/config"
	"github.com/gardener/es-timeslicer/pkg/apis/config/validation"
)

// Client defines an interface to interact with an elastic search instance
type Client interface {
	RequestWithCtx(ctx context.Context, httpMethod, path string, payload io.Reader) ([]byte, error)
	Info(ctx context.Context) (*Info, error)
	Search(ctx context.Context, index string, body []byte) ([]byte, error)
	Bulk(ctx context.Context, data []byte) (*BulkResponse, error)
	CatIndices(ctx context.Context, pattern string) ([]string, error)
}

type client struct {
	*http.Client

	endpoints []string
	username  string
	password  string
	apiKey    string
	bearer    string
	opaqueID  string
	compress  bool
}

// StatusError is returned if elasticsearch answered with a non 2xx status code.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s returned status code %d with body %s", e.URL, e.StatusCode, e.Body)
}

// NewClient creates a client for the configured hosts.
// No request is sent to the cluster.
func NewClient(cfg config.ElasticSearch) (Client, error) {
	if allErrs := validation.ValidateElasticSearch(&cfg); len(allErrs) != 0 {
		return nil, allErrs.ToAggregate()
	}

	hosts := cfg.Hosts
	if cfg.CloudID != "" {
		cloudURL, err := config.ParseCloudID(cfg.CloudID)
		if err != nil {
			return nil, err
		}
		hosts = []string{cloudURL}
	}
	endpoints := make([]string, 0, len(hosts))
	for _, host := range hosts {
		u, err := url.Parse(host)
		if err != nil {
			return nil, err
		}
		u.Path = ""
		endpoints = append(endpoints, u.String())
	}

	tlsConfig, err := newTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}

	opaqueID := cfg.OpaqueID
	if opaqueID == "" {
		opaqueID = fmt.Sprintf("%s-%s", config.OpaqueIDPrefix, uuid.New().String())
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &client{
		Client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		endpoints: endpoints,
		username:  cfg.Username,
		password:  cfg.Password,
		apiKey:    encodedAPIKey(cfg),
		bearer:    cfg.BearerAuth,
		opaqueID:  opaqueID,
		compress:  cfg.HTTPCompress,
	}, nil
}

// encodedAPIKey returns the value of the ApiKey authorization header.
func encodedAPIKey(cfg config.ElasticSearch) string {
	switch {
	case cfg.APIToken != "":
		return cfg.APIToken
	case cfg.APIID != "":
		return base64.StdEncoding.EncodeToString([]byte(cfg.APIID + ":" + cfg.APIKey))
	default:
		return cfg.APIKey
	}
}

func newTLSConfig(cfg config.TLS) (*tls.Config, error) {
	// #nosec G402 -- certificate verification can be disabled by the user
	tlsConfig := &tls.Config{
		InsecureSkipVerify: !cfg.VerifyCerts,
		ServerName:         cfg.AssertHostname,
	}
	if cfg.MinVersion != "" {
		v, ok := config.TLSVersion(cfg.MinVersion)
		if !ok {
			return nil, errors.Errorf("unsupported tls version %q", cfg.MinVersion)
		}
		tlsConfig.MinVersion = v
	}
	if cfg.AssertFingerprint != "" {
		fingerprint, err := config.NormalizeFingerprint(cfg.AssertFingerprint)
		if err != nil {
			return nil, err
		}
		// the pinned certificate replaces the verification of the chain
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyConnection = verifyFingerprint(fingerprint)
	}
	if cfg.CACerts != "" {
		pem, err := os.ReadFile(filepath.Clean(cfg.CACerts))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read ca certificates from %s", cfg.CACerts)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no valid certificate found in %s", cfg.CACerts)
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(filepath.Clean(cfg.ClientCert), filepath.Clean(cfg.ClientKey))
		if err != nil {
			return nil, errors.Wrap(err, "unable to load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// verifyFingerprint checks that the leaf certificate of the server has the given fingerprint.
func verifyFingerprint(fingerprint string) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errors.New("server did not present a certificate")
		}
		raw := cs.PeerCertificates[0].Raw
		var sum []byte
		switch len(fingerprint) {
		case 2 * md5.Size:
			s := md5.Sum(raw) // #nosec G401
			sum = s[:]
		case 2 * sha1.Size:
			s := sha1.Sum(raw) // #nosec G401
			sum = s[:]
		default:
			s := sha256.Sum256(raw)
			sum = s[:]
		}
		if actual := hex.EncodeToString(sum); actual != fingerprint {
			return errors.Errorf("server certificate fingerprint %s does not match %s", actual, fingerprint)
		}
		return nil
	}
}

// RequestWithCtx sends a request to the first reachable host.
// Hosts are only skipped on transport errors, a non 2xx answer is returned as *StatusError.
func (c *client) RequestWithCtx(ctx context.Context, httpMethod, rawPath string, payload io.Reader) ([]byte, error) {
	var body []byte
	if payload != nil {
		data, err := io.ReadAll(payload)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read request payload")
		}
		body = data
		if c.compress {
			if body, err = compress(data); err != nil {
				return nil, err
			}
		}
	}

	var allErrors *multierror.Error
	for _, endpoint := range c.endpoints {
		res, err := c.request(ctx, endpoint, httpMethod, rawPath, body)
		if err == nil {
			return res, nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) || ctx.Err() != nil {
			return nil, err
		}
		allErrors = multierror.Append(allErrors, err)
	}
	return nil, allErrors.ErrorOrNil()
}

func (c *client) request(ctx context.Context, endpoint, httpMethod, rawPath string, body []byte) ([]byte, error) {
	esURL, err := parseUrlNoEscape(endpoint, rawPath)
	if err != nil {
		return nil, err
	}
	var payload io.Reader
	if body != nil {
		payload = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, esURL, payload)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)
	req.Header.Add("Content-Type", "application/x-ndjson")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-Opaque-Id", c.opaqueID)
	if c.compress && body != nil {
		req.Header.Add("Content-Encoding", "gzip")
	}

	res, err := c.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to do request to %s", esURL)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		errorResponse, _ := io.ReadAll(res.Body)
		return nil, &StatusError{URL: esURL, StatusCode: res.StatusCode, Body: errorResponse}
	}

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read response body")
	}
	return resBody, nil
}

func (c *client) setAuth(req *http.Request) {
	switch {
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	case c.apiKey != "":
		req.Header.Add("Authorization", "ApiKey "+c.apiKey)
	case c.bearer != "":
		req.Header.Add("Authorization", "Bearer "+c.bearer)
	}
}

// Info returns the cluster information of the root endpoint.
func (c *client) Info(ctx context.Context) (*Info, error) {
	body, err := c.RequestWithCtx(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}
	info := &Info{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal cluster info")
	}
	return info, nil
}

// Search runs a search request against index and returns the raw response.
func (c *client) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	return c.RequestWithCtx(ctx, http.MethodPost, path.Join(index, "_search"), bytes.NewReader(body))
}

// Bulk sends a newline delimited bulk request.
// Errors of single items are part of the response and not returned as error.
func (c *client) Bulk(ctx context.Context, data []byte) (*BulkResponse, error) {
	body, err := c.RequestWithCtx(ctx, http.MethodPost, "_bulk", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bulkRes := &BulkResponse{}
	if err := json.Unmarshal(body, bulkRes); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal bulk response")
	}
	return bulkRes, nil
}

// CatIndices returns the names of all indices matching pattern.
func (c *client) CatIndices(ctx context.Context, pattern string) ([]string, error) {
	body, err := c.RequestWithCtx(ctx, http.MethodGet, fmt.Sprintf("_cat/indices/%s?h=index&format=json", pattern), nil)
	if err != nil {
		return nil, err
	}
	var items []struct {
		Index string `json:"index"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal index list")
	}
	indices := make([]string, 0, len(items))
	for _, item := range items {
		indices = append(indices, item.Index)
	}
	return indices, nil
}

func compress(data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "unable to compress payload")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "unable to compress payload")
	}
	return buf.Bytes(), nil
}

func parseUrlNoEscape(endpoint, rawPath string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	pathAndQuery, err := url.Parse(rawPath)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, pathAndQuery.Path)
	var result string
	if u.Path == "" || u.Path == "/" {
		result = u.Scheme + "://" + u.Host
	} else {
		result = u.Scheme + "://" + path.Join(u.Host, u.Path)
	}
	if pathAndQuery.RawQuery != "" {
		result += "?" + pathAndQuery.RawQuery
	}
	return result, nil
}
