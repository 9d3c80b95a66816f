package enrichment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Website status values recorded on leads.
const (
	WebsiteActive      = "active"
	WebsiteNotFound    = "not_found"
	WebsiteUnreachable = "unreachable"
	WebsiteTimeout     = "timeout"
)

// WebsiteProber checks whether a lead's website still responds.
type WebsiteProber struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebsiteProber creates a prober. The caller's context bounds each
// request, so the client itself carries no timeout.
func NewWebsiteProber() *WebsiteProber {
	return &WebsiteProber{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// CheckWebsite probes the URL and returns a status string. An
// unreachable or slow site is a recorded outcome, never an error: only
// context cancellation aborts the run.
func (p *WebsiteProber) CheckWebsite(ctx context.Context, url string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return WebsiteUnreachable, nil
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return WebsiteTimeout, nil
		}
		return WebsiteUnreachable, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 400:
		return WebsiteActive, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return WebsiteNotFound, nil
	default:
		return WebsiteUnreachable, nil
	}
}
