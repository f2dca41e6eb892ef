// Package realtime fetches NYC Subway GTFS-realtime feeds, decodes the NYCT
// vendor extensions and normalizes trip updates into arrivals and stations.
package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"

	"subwayfeed/internal/feeds"
)

// maxErrorBody caps how much of a non-2xx body is logged.
const maxErrorBody = 1024

// DefaultMaxBody caps a decoded feed body. The largest NYCT feeds are a few MB.
const DefaultMaxBody = 32 << 20

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	APIKey    string        // sent as x-api-key when set
	Timeout   time.Duration // 0 = no client timeout
	// Concurrency bounds simultaneous fetches in FetchAll; 0 = one per feed.
	Concurrency int
	HTTPClient  *http.Client
	MaxBody     int64 // 0 = DefaultMaxBody
}

// Client fetches and decodes GTFS-realtime feeds.
type Client struct {
	baseURL     string
	userAgent   string
	apiKey      string
	concurrency int
	maxBody     int64
	client      *http.Client
	logger      *slog.Logger
}

// FeedResult is the tagged outcome of one fetch: Message is nil when the
// feed is absent for this cycle and Err says why.
type FeedResult struct {
	Feed        feeds.Feed
	Message     *gtfs.FeedMessage
	Version     string // NYCT subway version from the header extension
	AttemptedAt time.Time
	Err         error
}

// OK reports whether the feed produced a message.
func (r FeedResult) OK() bool {
	return r.Message != nil
}

// NewClient creates a feed client.
func NewClient(opts ClientOptions, logger *slog.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		apiKey:      opts.APIKey,
		concurrency: opts.Concurrency,
		maxBody:     opts.MaxBody,
		client:      hc,
		logger:      logger,
	}
}

// URL returns the absolute endpoint for feed.
func (c *Client) URL(feed feeds.Feed) string {
	return c.baseURL + "/" + strings.TrimLeft(feed.Path, "/")
}

// FetchAll fetches every feed concurrently and returns once all have
// settled, in the order given. A failing feed never affects the others.
func (c *Client) FetchAll(ctx context.Context, fs []feeds.Feed) []FeedResult {
	results := make([]FeedResult, len(fs))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, f := range fs {
		g.Go(func() error {
			results[i] = c.Fetch(ctx, f)
			return nil
		})
	}
	g.Wait()
	return results
}

// Fetch performs one GET and decodes the body. Failures, panics included,
// are logged and reported in the result, never returned or raised.
func (c *Client) Fetch(ctx context.Context, feed feeds.Feed) (res FeedResult) {
	res = FeedResult{Feed: feed, AttemptedAt: time.Now().UTC()}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fetch feed panicked", "feed", feed.ID, "panic", r)
			res.Message = nil
			res.Version = ""
			res.Err = fmt.Errorf("fetch %s panicked: %v", feed.ID, r)
		}
	}()
	logger := c.logger.With("feed", feed.ID)

	msg, err := c.fetch(ctx, feed, logger)
	if err != nil {
		res.Err = err
		return res
	}
	res.Message = msg
	if h := HeaderExtension(msg.GetHeader()); h != nil {
		res.Version = h.SubwayVersion
	}
	return res
}

func (c *Client) fetch(ctx context.Context, feed feeds.Feed, logger *slog.Logger) (*gtfs.FeedMessage, error) {
	logger.Info("fetching feed")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(feed), nil)
	if err != nil {
		logger.Error("create feed request", "error", err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/x-protobuf")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("fetch feed failed", "error", err)
		return nil, fmt.Errorf("fetch %s: %w", feed.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Warn("feed returned non-2xx", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("fetch %s: HTTP %d", feed.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		logger.Error("read feed body", "error", err)
		return nil, fmt.Errorf("read %s body: %w", feed.ID, err)
	}
	if int64(len(body)) > c.maxBody {
		logger.Error("feed body too large", "limit", c.maxBody)
		return nil, fmt.Errorf("read %s body: exceeds %d bytes", feed.ID, c.maxBody)
	}

	msg := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, msg); err != nil {
		logger.Error("parse feed protobuf", "error", err, "bytes", len(body))
		return nil, fmt.Errorf("decode %s: %w", feed.ID, err)
	}
	return msg, nil
}
