/*
httpprovider.go - HTTP implementation of the holiday Provider contract

PURPOSE:
  Talks to a public-holidays REST service (Nager.Date-compatible:
  GET {base}/api/v3/PublicHolidays/{year}/{country}). The base URL and
  HTTP client are injectable so tests can point at an httptest server.

RETRY:
  Transient failures (5xx, 429, network errors) are retried with
  exponential backoff, respecting context cancellation. A definitive
  failure is returned to the Resolver, which caches and reports it as
  DataUnavailable without failing the run.
*/
package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/warp/payroll-engine/calendar"
)

// HTTPProvider implements Provider against a public-holidays HTTP API.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPProvider creates a provider for the given base URL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// wireHoliday is the provider's JSON representation of one holiday.
type wireHoliday struct {
	Date         string `json:"date"`
	LocalName    string `json:"localName"`
	Name         string `json:"name"`
	ObservedDate string `json:"observedDate,omitempty"`
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// FetchHolidays returns every public holiday for a country and year.
func (p *HTTPProvider) FetchHolidays(ctx context.Context, countryCode string, year int) ([]ProviderHoliday, error) {
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", p.BaseURL, year, countryCode)

	resp, err := p.doWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire []wireHoliday
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}

	holidays := make([]ProviderHoliday, 0, len(wire))
	for _, w := range wire {
		date, err := calendar.Parse(w.Date)
		if err != nil {
			continue
		}
		name := w.Name
		if name == "" {
			name = w.LocalName
		}
		h := ProviderHoliday{Date: date, Name: name}
		if w.ObservedDate != "" {
			if observed, err := calendar.Parse(w.ObservedDate); err == nil {
				h.ObservedDate = &observed
			}
		}
		holidays = append(holidays, h)
	}
	return holidays, nil
}

func (p *HTTPProvider) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries transient failures with exponential backoff.
func (p *HTTPProvider) doWithRetry(ctx context.Context, url string) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.do(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}
