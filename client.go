// Package synology is a thin client for the Synology DSM Web API, limited to
// the iSCSI target, LUN and LUN snapshot calls.
package synology

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// ClientConfig holds the connection settings for one DSM host.
type ClientConfig struct {
	ApiHost string
	ApiPort int

	// UseSSL selects https; VerifyTLS controls certificate verification.
	UseSSL    bool
	VerifyTLS bool
	CACertPEM string

	TimeoutSeconds int

	// "api" traces every request and response, "method" traces client calls.
	DebugTraceFlags map[string]bool
}

// Client issues DSM Web API requests. It holds no credentials: authenticated
// calls go through the Session returned by Login.
type Client struct {
	config     ClientConfig
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string

	// initErr is reported by Login so a bad CA bundle never degrades to an
	// unverified connection.
	initErr error
}

// Session is an authenticated DSM session. The zero value and a session that
// has been logged out reject every call with ErrNotLoggedIn.
type Session struct {
	client *Client
	sid    string
}

// NewAPIClient builds a client for config. Configuration problems are
// returned by the first Login.
func NewAPIClient(ctx context.Context, config ClientConfig) *Client {
	if config.ApiPort == 0 {
		config.ApiPort = DefaultHTTPSPort
		if !config.UseSSL {
			config.ApiPort = DefaultHTTPPort
		}
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = StorageAPITimeoutSeconds
	}

	c := &Client{
		config:    config,
		userAgent: userAgent(),
	}

	scheme := "https"
	if !config.UseSSL {
		scheme = "http"
	}
	c.baseURL = &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(config.ApiHost, strconv.Itoa(config.ApiPort)),
		Path:   "/webapi/",
	}

	tlsConfig := &tls.Config{
		MinVersion:         MinTLSVersion,
		InsecureSkipVerify: !config.VerifyTLS,
	}
	if config.CACertPEM != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(config.CACertPEM)) {
			c.initErr = errors.New("no valid certificates found in CA certificate PEM")
		}
		tlsConfig.RootCAs = pool
	}

	// DSM also sets an "id" cookie alongside the sid.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		c.initErr = fmt.Errorf("could not create cookie jar: %v", err)
	}

	c.httpClient = &http.Client{
		Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		Jar:     jar,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsConfig,
		},
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"url":       c.baseURL.String(),
		"verifyTLS": config.VerifyTLS,
	}).Debug("Created DSM API client.")

	return c
}

// BaseURL returns the Web API root, e.g. https://nas:5001/webapi/.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// InvokeAPI sends a GET for cgi with params and returns the raw reply. It does
// not interpret the DSM envelope.
func (c *Client) InvokeAPI(ctx context.Context, cgi string, params url.Values) (*http.Response, []byte, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: cgi})
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if c.config.DebugTraceFlags["api"] {
		LogHTTPRequest(req, nil)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}

	if c.config.DebugTraceFlags["api"] {
		LogHTTPResponse(ctx, resp, body)
	}
	return resp, body, nil
}

// call performs one Web API method and unwraps the envelope.
func (c *Client) call(ctx context.Context, cgi, api string, version int, method string, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api", api)
	params.Set("version", strconv.Itoa(version))
	params.Set("method", method)

	resp, body, err := c.InvokeAPI(ctx, cgi, params)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", api, method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: unexpected HTTP status %s", api, method, resp.Status)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s %s: could not parse response: %v", api, method, err)
	}
	if !envelope.Success {
		apiErr := &APIError{API: api, Method: method}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
		}
		return nil, apiErr
	}
	return envelope.Data, nil
}

func (c *Client) traceMethod(name string) {
	if c.config.DebugTraceFlags["method"] {
		log.WithField("Method", name).Debug(">>>> " + name)
	}
}

// Login authenticates and returns the session every other call goes through.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	c.traceMethod("Login")
	if c.initErr != nil {
		return nil, c.initErr
	}

	params := url.Values{}
	params.Set("account", username)
	params.Set("passwd", password)
	params.Set("session", authSessionName)
	params.Set("format", "sid")

	data, err := c.call(ctx, authCGI, apiAuth, apiAuthVersion, "login", params)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	var ld loginData
	if err := json.Unmarshal(data, &ld); err != nil {
		return nil, fmt.Errorf("login failed: could not parse response: %v", err)
	}
	if ld.SID == "" {
		return nil, errors.New("login failed: DSM returned an empty session id")
	}

	log.WithFields(log.Fields{"host": c.config.ApiHost, "user": username}).Debug("Logged in to DSM.")
	return &Session{client: c, sid: ld.SID}, nil
}

// LoggedIn reports whether the session can still issue calls.
func (s *Session) LoggedIn() bool {
	return s != nil && s.client != nil && s.sid != ""
}

// Logout releases the session. Transport failures are retried briefly since an
// abandoned sid stays valid on the NAS until it times out; a DSM rejection is
// returned at once. The session is unusable afterwards whatever the outcome.
// Logging out a session that is not logged in is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	if !s.LoggedIn() {
		return nil
	}
	s.client.traceMethod("Logout")

	sid := s.sid
	s.sid = ""

	op := func() error {
		params := url.Values{}
		params.Set("session", authSessionName)
		params.Set("_sid", sid)
		_, err := s.client.call(ctx, authCGI, apiAuth, apiAuthVersion, "logout", params)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	b.Reset()

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, logoutRetries), ctx)); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

const logoutRetries = 2

// request issues an authenticated entry.cgi call and decodes data into out.
func (s *Session) request(ctx context.Context, api string, version int, method string, params url.Values, out interface{}) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("_sid", s.sid)

	data, err := s.client.call(ctx, entryCGI, api, version, method, params)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: could not parse data: %v", api, method, err)
	}
	return nil
}
