package httpsource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// Source implements ports.DatasetSource by fetching resources relative
// to a base URL.
type Source struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

// New creates a Source. A trailing slash on baseURL is optional.
func New(baseURL string, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "srimap",
			ReadTimeout:         timeout,
			MaxResponseBodySize: 256 << 20,
		},
	}
}

// URL returns the address of a resource.
func (s *Source) URL(resource string) string {
	return s.baseURL + "/" + url.PathEscape(resource)
}

// Fetch GETs a resource. 404 maps to domain.ErrNotFound and every other
// failure to domain.ErrNetwork.
func (s *Source) Fetch(ctx context.Context, resource string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.URL(resource))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/geo+json, application/json")

	timeout := s.timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrNetwork, resource, err)
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, resource)
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", domain.ErrNetwork, resource, status)
	}

	// resp is released on return; copy the body out.
	return append([]byte(nil), resp.Body()...), nil
}
