// Package toggl implements ports.TogglAPI against the Toggl API v8 and
// the Reports API v2.
package toggl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"toggl-connector/internal/errs"
)

const (
	// DefaultBaseURL serves the v8 CRUD endpoints.
	DefaultBaseURL = "https://www.toggl.com"
	// DefaultReportsURL serves the Reports API v2.
	DefaultReportsURL = "https://toggl.com"

	// userAgent attributes API usage; sent as a query parameter on GET
	// and as a body field on POST/PUT.
	userAgent = "toggl_connector"
)

// Client is a thin HTTP wrapper over the Toggl API. The Authorization
// header is derived once from the API token and is read-only afterwards;
// a Client is scoped to one orchestrator invocation.
type Client struct {
	baseURL    string
	reportsURL string
	authHeader string
	http       *http.Client
	log        *slog.Logger
}

func NewClient(baseURL, reportsURL, apiToken string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if reportsURL == "" {
		reportsURL = DefaultReportsURL
	}
	// Basic auth: token:api_token
	auth := base64.StdEncoding.EncodeToString([]byte(apiToken + ":" + "api_token"))
	return &Client{
		baseURL:    baseURL,
		reportsURL: reportsURL,
		authHeader: "Basic " + auth,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// do issues one API request and decodes the JSON response into out.
// Only GET, POST and PUT are supported.
func (c *Client) do(ctx context.Context, op, method, rawURL string, query url.Values, body any, out any) error {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return errs.E(errs.KindUnsupportedMethod, op, nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return errs.E(errs.KindTransport, op, err)
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if method == http.MethodGet && q.Get("user_agent") == "" {
		q.Set("user_agent", userAgent)
	}
	u.RawQuery = q.Encode()

	var payload io.Reader
	if method != http.MethodGet {
		b, err := encodeBody(body)
		if err != nil {
			return errs.E(errs.KindDecode, op, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return errs.E(errs.KindTransport, op, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.E(errs.KindTransport, op, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.Remote(op, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.E(errs.KindDecode, op, err)
	}
	return nil
}

// encodeBody serializes a non-GET body, injecting the attribution field
// alongside the payload the way the v8 API expects.
func encodeBody(body any) ([]byte, error) {
	m := map[string]any{}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
	}
	if _, ok := m["user_agent"]; !ok {
		m["user_agent"] = userAgent
	}
	return json.Marshal(m)
}

func (c *Client) apiURL(path string) string    { return c.baseURL + path }
func (c *Client) reportURL(path string) string { return c.reportsURL + path }
