package synology

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Query parameters that must never reach a log line.
var redactedParams = []string{"passwd", "_sid", "otp_code"}

func redactQuery(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for _, k := range redactedParams {
		if q.Has(k) {
			q.Set(k, "<redacted>")
		}
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}

func LogHTTPRequest(r *http.Request, body []byte) {
	fields := log.Fields{
		"method": r.Method,
		"url":    redactQuery(r.URL),
	}
	if len(body) > 0 {
		fields["body"] = string(body)
	}
	log.WithFields(fields).Debug("API request")
}

func LogHTTPResponse(ctx context.Context, r *http.Response, body []byte) {
	fields := log.Fields{
		"status": r.Status,
	}
	if r.Request != nil {
		fields["url"] = redactQuery(r.Request.URL)
	}
	// Login replies carry the sid.
	if r.Request == nil || !strings.HasSuffix(r.Request.URL.Path, authCGI) {
		fields["body"] = string(body)
	}
	log.WithContext(ctx).WithFields(fields).Debug("API response")
}

// firstNonEmpty returns the first argument that is not "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
