package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// Config configures the generateContent client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements ports.AnswerService against the Gemini
// generateContent endpoint.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                          "srimap",
			ReadTimeout:                   cfg.Timeout,
			WriteTimeout:                  cfg.Timeout,
			MaxIdleConnDuration:           time.Minute,
			NoDefaultUserAgentHeader:      true,
			DisableHeaderNamesNormalizing: true,
		},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the first
// candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &domain.RemoteServiceError{Kind: domain.RemoteUnavailable, Err: errors.New("api key not configured")}
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", &domain.RemoteServiceError{Kind: domain.RemoteMalformed, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	if err := ctx.Err(); err != nil {
		return "", &domain.RemoteServiceError{Kind: domain.RemoteNetwork, Err: err}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return "", &domain.RemoteServiceError{Kind: domain.RemoteNetwork, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return "", &domain.RemoteServiceError{Kind: kindForStatus(status), StatusCode: status, Err: errors.New(errorMessage(resp.Body()))}
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &domain.RemoteServiceError{Kind: domain.RemoteMalformed, StatusCode: status, Err: err}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == nil {
		return "", &domain.RemoteServiceError{Kind: domain.RemoteMalformed, StatusCode: status, Err: errors.New("no candidate text in response")}
	}
	return *out.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))
}

func kindForStatus(status int) domain.RemoteErrorKind {
	switch {
	case status == fasthttp.StatusUnauthorized:
		return domain.RemoteAuth
	case status == fasthttp.StatusForbidden:
		return domain.RemoteForbidden
	case status == fasthttp.StatusTooManyRequests:
		return domain.RemoteRateLimit
	case status >= 500:
		return domain.RemoteServer
	default:
		return domain.RemoteRejected
	}
}

func errorMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	if len(body) == 0 {
		return "empty response body"
	}
	return string(body)
}
