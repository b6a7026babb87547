package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// JSONMediaType is the only media type whose bodies are decoded by Get.
const JSONMediaType = "application/json"

// Session is a single persistent connection to the API host. Every request
// carries the currently active header set.
type Session struct {
	baseURL string // constant

	connectOnce sync.Once
	newClient   func() *http.Client
	hc          *http.Client

	header http.Header
}

// Response is the result of Session.Get. Exactly one of JSON and Body is
// meaningful: JSON holds the decoded body if the response was labeled as JSON,
// otherwise Body is the unconsumed response stream, which the caller must
// close.
type Response struct {
	Status        string
	StatusCode    int
	MediaType     string // Content-Type without parameters.
	ContentLength int64  // -1 if unknown.

	JSON any
	Body io.ReadCloser
}

// IsJSON returns true if the response body was decoded as JSON.
func (r *Response) IsJSON() bool {
	return r.MediaType == JSONMediaType
}

// OK returns true for 2xx status codes.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Option configures a Session.
type Option func(s *Session)

// WithClientFactory overrides how the session's http client is built on
// connect.
func WithClientFactory(fn func() *http.Client) Option {
	return func(s *Session) {
		s.newClient = fn
	}
}

// New returns a session for the given base url (scheme and host, e.g.
// "https://studip.uos.de"). It does not connect.
func New(baseURL string, opts ...Option) *Session {
	s := &Session{
		baseURL:   strings.TrimRight(baseURL, "/"),
		newClient: defaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 1,
		},
	}
}

// BasicAuth returns a header set containing only an HTTP Basic Authorization
// header for the given credentials.
func BasicAuth(username string, password string) http.Header {
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return http.Header{
		"Authorization": []string{"Basic " + auth},
	}
}

// Connect creates the session's http client. Only the first call has an
// effect; the client is reused for the lifetime of the session.
func (s *Session) Connect() {
	s.connectOnce.Do(func() {
		log.Debugf("connecting: base=%s", s.baseURL)
		s.hc = s.newClient()
	})
}

// SetHeaders replaces the active header set. Previously set headers are
// discarded, not merged.
func (s *Session) SetHeaders(h http.Header) {
	s.header = h.Clone()
}

// Get performs an http GET of the given path against the session's host. A
// JSON response is read fully and decoded; any other response is returned
// with its body unread. An empty path only primes the connection: no request
// is sent and Get returns nil, nil.
func (s *Session) Get(ctx context.Context, path string) (*Response, error) {
	s.Connect()
	if path == "" {
		return nil, nil
	}

	u := s.baseURL + path
	log.Debugf("get: %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rsp, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	r := &Response{
		Status:        rsp.Status,
		StatusCode:    rsp.StatusCode,
		MediaType:     mediaType(rsp.Header.Get("Content-Type")),
		ContentLength: rsp.ContentLength,
	}

	if !r.IsJSON() {
		r.Body = rsp.Body
		return r, nil
	}
	defer rsp.Body.Close()

	b, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: url=%s: %w", u, err)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("json response is not valid utf-8: url=%s", u)
	}

	err = json.Unmarshal(b, &r.JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode json response: url=%s: %w", u, err)
	}

	return r, nil
}

// mediaType strips any parameters from a Content-Type header value.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Fall back to a plain split for values mime rejects (e.g. trailing
		// garbage after the parameters).
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.ToLower(mt)
}
