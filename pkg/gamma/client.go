// Package gamma provides access to Polymarket's public REST APIs: Gamma
// (markets, events, tags, search), the Data API (trades) and the CLOB API
// (price history).
//
// Every operation comes in two forms. Fetch* returns the upstream error so
// HTTP handlers can map it to a status code. Get* never fails: the error is
// logged and an empty collection or nil entity is returned instead.
package gamma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"polymerit/pkg/config"
	"polymerit/pkg/metrics"
)

const (
	DefaultGammaURL = "https://gamma-api.polymarket.com"
	DefaultDataURL  = "https://data-api.polymarket.com"
	DefaultClobURL  = "https://clob.polymarket.com"

	maxBodyBytes = 8 << 20
)

// ErrNotFound is returned when upstream answers 404
var ErrNotFound = errors.New("not found upstream")

// StatusError is a non-2xx upstream response
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.Endpoint, e.StatusCode)
}

// Options configures a Client. Zero values fall back to the public endpoints.
type Options struct {
	GammaURL   string
	DataURL    string
	ClobURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	HTTPClient *http.Client
}

// OptionsFromConfig maps the upstream section of the service config
func OptionsFromConfig(cfg config.UpstreamConfig) Options {
	return Options{
		GammaURL:   cfg.GammaURL,
		DataURL:    cfg.DataURL,
		ClobURL:    cfg.ClobURL,
		Timeout:    cfg.Timeout,
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
	}
}

// Client talks to the Polymarket APIs
type Client struct {
	gammaURL string
	dataURL  string
	clobURL  string
	http     *http.Client
	limiter  *rate.Limiter
	log      *logrus.Entry
}

// NewClient creates a new upstream client
func NewClient(opts Options) *Client {
	if opts.GammaURL == "" {
		opts.GammaURL = DefaultGammaURL
	}
	if opts.DataURL == "" {
		opts.DataURL = DefaultDataURL
	}
	if opts.ClobURL == "" {
		opts.ClobURL = DefaultClobURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}

	return &Client{
		gammaURL: strings.TrimRight(opts.GammaURL, "/"),
		dataURL:  strings.TrimRight(opts.DataURL, "/"),
		clobURL:  strings.TrimRight(opts.ClobURL, "/"),
		http:     httpClient,
		limiter:  limiter,
		log:      logrus.WithField("component", "gamma"),
	}
}

// getJSON issues a single GET and decodes the body into dest
func (c *Client) getJSON(ctx context.Context, endpoint, base, path string, params url.Values, dest interface{}) error {
	start := time.Now()
	err := c.doGet(ctx, endpoint, base, path, params, dest)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.RecordUpstream(endpoint, outcome, time.Since(start))

	return err
}

func (c *Client) doGet(ctx context.Context, endpoint, base, path string, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", endpoint, err)
	}

	target := base + path
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s: create request failed: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dest); err != nil {
		return fmt.Errorf("%s: decode failed: %w", endpoint, err)
	}
	return nil
}

// logFailure is the single place where swallowed upstream errors surface
func (c *Client) logFailure(endpoint string, err error) {
	c.log.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"error":    err,
	}).Warn("upstream request failed")
}
