// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package emby lists library items from an Emby server.
package emby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/ManuGH/nfoscan/internal/metrics"
	"github.com/ManuGH/nfoscan/internal/platform/httpx"
	"github.com/ManuGH/nfoscan/internal/telemetry"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultPageSize          = 500
	DefaultRetries           = 2
	DefaultRequestsPerSecond = 5.0
	DefaultBreakerThreshold  = 3
	DefaultBreakerReset      = 30 * time.Second

	maxBodyBytes  = 64 << 20
	maxErrorBody  = 512
	opListItems   = "list_items"
	opPing        = "ping"
	tokenHeader   = "X-Emby-Token"
	backoffFactor = 500 * time.Millisecond
)

// DefaultItemTypes are the item types that carry a media file path.
var DefaultItemTypes = []string{"Movie", "Episode"}

// Config describes how to reach an Emby server.
type Config struct {
	Host              string
	APIKey            string
	UserID            string
	Timeout           time.Duration
	PageSize          int
	Retries           int
	RequestsPerSecond float64 // <= 0 disables pacing
	ItemTypes         []string
	BreakerThreshold  int
	BreakerReset      time.Duration

	// HTTPClient replaces the default hardened client.
	HTTPClient *http.Client
}

// Client talks to the Emby HTTP API. It implements library.Lister.
type Client struct {
	base      string
	apiKey    string
	userID    string
	pageSize  int
	retries   int
	itemTypes []string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *CircuitBreaker
	backoff   func(attempt int) time.Duration
	logger    zerolog.Logger
}

var _ library.Lister = (*Client)(nil)

// New creates a Client. Zero values in cfg fall back to the package defaults.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	retries := max(cfg.Retries, 0)
	itemTypes := cfg.ItemTypes
	if len(itemTypes) == 0 {
		itemTypes = DefaultItemTypes
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	reset := cfg.BreakerReset
	if reset <= 0 {
		reset = DefaultBreakerReset
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(timeout,
			httpx.WithResponseHeaderTimeout(timeout),
			httpx.WithTracing("emby"),
		)
	}

	base := strings.TrimRight(cfg.Host, "/")
	base = strings.TrimSuffix(base, "/emby")

	return &Client{
		base:      base,
		apiKey:    cfg.APIKey,
		userID:    cfg.UserID,
		pageSize:  pageSize,
		retries:   retries,
		itemTypes: itemTypes,
		http:      hc,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   NewCircuitBreaker(threshold, reset),
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * backoffFactor
		},
		logger: log.WithComponent("emby").With().Str(log.FieldBaseURL, redactURL(base)).Logger(),
	}
}

// BreakerState exposes the circuit breaker state for health checks.
func (c *Client) BreakerState() State {
	return c.breaker.State()
}

type itemsPage struct {
	Items            []library.Item `json:"Items"`
	TotalRecordCount int            `json:"TotalRecordCount"`
}

// ListItems returns every item of the configured types, paging through the
// /Items endpoint until TotalRecordCount is reached. Servers that omit the
// total (or send 0) are paged until a short or empty page.
func (c *Client) ListItems(ctx context.Context) ([]library.Item, error) {
	var items []library.Item
	err := c.breaker.Execute(func() error {
		var err error
		items, err = c.listAll(ctx)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		metrics.RecordEmbyRequest(opListItems, outcomeLabel(err), 0)
		return nil, &Error{Sentinel: ErrCircuitOpen, Operation: opListItems}
	}
	if err != nil {
		return nil, err
	}
	metrics.SetEmbyItemsListed(len(items))
	return items, nil
}

func (c *Client) listAll(ctx context.Context) ([]library.Item, error) {
	var all []library.Item
	start := 0
	for {
		page, err := c.fetchPage(ctx, start)
		if err != nil {
			return nil, err
		}
		if all == nil {
			all = make([]library.Item, 0, max(page.TotalRecordCount, len(page.Items)))
		}
		all = append(all, page.Items...)
		start += len(page.Items)

		c.logger.Debug().
			Str(log.FieldEvent, "emby.page").
			Int("start_index", start-len(page.Items)).
			Int("count", len(page.Items)).
			Int("total", page.TotalRecordCount).
			Msg("fetched item page")

		if lastPage(page, start, c.pageSize) {
			return all, nil
		}
	}
}

// lastPage reports whether paging is complete after page, with next being the
// StartIndex of the following request.
func lastPage(page *itemsPage, next, pageSize int) bool {
	if len(page.Items) == 0 {
		return true
	}
	if page.TotalRecordCount > 0 {
		return next >= page.TotalRecordCount
	}
	return len(page.Items) < pageSize
}

func (c *Client) fetchPage(ctx context.Context, start int) (*itemsPage, error) {
	ctx, span := telemetry.Tracer("nfoscan/emby").Start(ctx, "emby.list_items",
		trace.WithAttributes(telemetry.EmbyPageAttributes(start, c.pageSize)...))
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Warn().
				Str(log.FieldEvent, "emby.retry").
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("retrying item listing")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("emby: rate limiter: %w", err)
		}

		page, err := c.doPage(ctx, start)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	telemetry.RecordError(span, lastErr, outcomeLabel(lastErr))
	return nil, lastErr
}

func (c *Client) itemsURL(start int) string {
	path := "/emby/Items"
	if c.userID != "" {
		path = "/emby/Users/" + url.PathEscape(c.userID) + "/Items"
	}
	q := url.Values{}
	q.Set("Recursive", "true")
	q.Set("Fields", "Path")
	if len(c.itemTypes) > 0 {
		q.Set("IncludeItemTypes", strings.Join(c.itemTypes, ","))
	}
	q.Set("StartIndex", strconv.Itoa(start))
	q.Set("Limit", strconv.Itoa(c.pageSize))
	return c.base + path + "?" + q.Encode()
}

func (c *Client) doPage(ctx context.Context, start int) (*itemsPage, error) {
	began := time.Now()
	page, err := c.getPage(ctx, start)
	metrics.RecordEmbyRequest(opListItems, outcomeLabel(err), time.Since(began))
	return page, err
}

func (c *Client) getPage(ctx context.Context, start int) (*itemsPage, error) {
	res, err := c.get(ctx, opListItems, c.itemsURL(start), true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	dec := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes))
	dec.UseNumber()
	var page itemsPage
	if err := dec.Decode(&page); err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, Operation: opListItems, Status: res.StatusCode, Err: err}
	}
	return &page, nil
}

// Ping checks that the server answers its public system info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	began := time.Now()
	res, err := c.get(ctx, opPing, c.base+"/emby/System/Info/Public", false)
	metrics.RecordEmbyRequest(opPing, outcomeLabel(err), time.Since(began))
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxErrorBody))
	_ = res.Body.Close()
	return nil
}

// get performs the request and classifies failures. On success the caller owns
// the response body.
func (c *Client) get(ctx context.Context, op, rawURL string, auth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if auth && c.apiKey != "" {
		req.Header.Set(tokenHeader, c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, op, err)
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return res, nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	_ = res.Body.Close()
	e := &Error{
		Operation: op,
		Status:    res.StatusCode,
		Body:      strings.TrimSpace(string(body)),
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		e.Sentinel = ErrUnauthorized
	case res.StatusCode == http.StatusNotFound:
		e.Sentinel = ErrNotFound
	case res.StatusCode == http.StatusBadGateway ||
		res.StatusCode == http.StatusServiceUnavailable ||
		res.StatusCode == http.StatusGatewayTimeout:
		e.Sentinel = ErrUpstreamUnavailable
	case res.StatusCode >= 500:
		e.Sentinel = ErrUpstreamError
	default:
		e.Sentinel = ErrBadResponse
	}
	c.logger.Debug().
		Str(log.FieldOperation, op).
		Str("url", redactURL(rawURL)).
		Int("status", res.StatusCode).
		Msg("emby request rejected")
	return nil, e
}

func classifyTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("emby: %s: %w", op, ctx.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: stripURL(err)}
	}
	return &Error{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: stripURL(err)}
}

// stripURL drops the request URL from *url.Error so query parameters never
// reach logs.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

var secretParams = []string{"api_key", "X-Emby-Token", "x-emby-token"}

// redactURL removes credentials that users sometimes paste into the host URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	q := u.Query()
	changed := false
	for _, p := range secretParams {
		if q.Has(p) {
			q.Del(p)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
