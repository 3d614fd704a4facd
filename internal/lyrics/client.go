// Package lyrics looks up lyrics on an LRCLIB server and reconciles them with
// local lyric files and the disk cache.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"musicdeck.dev/musicdeck/internal/config"
	"musicdeck.dev/musicdeck/internal/logger"
)

const (
	SourceGet    = "lrclib:get"
	SourceSearch = "lrclib:search"

	// search hits within this distance of the track duration are preferred
	durationTolerance = 3 * time.Second
)

// Record is one entry returned by the LRCLIB api.
type Record struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

func (r *Record) HasSynced() bool {
	return strings.TrimSpace(r.SyncedLyrics) != ""
}

func (r *Record) HasPlain() bool {
	return strings.TrimSpace(r.PlainLyrics) != ""
}

type Query struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Result is the lyrics picked for a query. Lyrics holds LRC text when Synced
// is set and plain text otherwise; it is empty for instrumentals.
type Result struct {
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     time.Duration
	Instrumental bool
	Lyrics       string
	Synced       bool
	Source       string
}

type ClientConfig struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// ConfigFrom copies the lyrics server settings out of the app config.
func ConfigFrom(cfg *config.Config, log *slog.Logger) ClientConfig {
	return ClientConfig{
		BaseURL:    cfg.LrclibURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		Logger:     log,
	}
}

type Client struct {
	baseURL    string
	userAgent  string
	maxRetries int
	backoff    time.Duration
	http       *http.Client
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultLrclibURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", cfg.BaseURL, ErrUnsupportedScheme)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultHTTPTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient(cfg.Timeout)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		http:       cfg.HTTPClient,
		log:        cfg.Logger.With("component", "lrclib"),
		sleep:      sleepContext,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Get asks for an exact match. A 404 is reported as ErrNotFound.
func (c *Client) Get(ctx context.Context, q Query) (*Record, error) {
	if q.Title == "" || q.Artist == "" {
		return nil, ErrInvalidQuery
	}

	params := url.Values{}
	params.Set("track_name", q.Title)
	params.Set("artist_name", q.Artist)
	if q.Album != "" {
		params.Set("album_name", q.Album)
	}
	if secs := int64(q.Duration / time.Second); secs > 0 {
		params.Set("duration", strconv.FormatInt(secs, 10))
	}

	var record Record
	if err := c.getJSON(ctx, "get", params, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (c *Client) Search(ctx context.Context, q string) ([]Record, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrInvalidQuery
	}

	params := url.Values{}
	params.Set("q", q)

	var records []Record
	if err := c.getJSON(ctx, "search", params, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// Fetch cleans up the query, tries an exact match and falls back to a
// search. Transient failures are retried with a linear backoff, a clean
// miss is not.
func (c *Client) Fetch(ctx context.Context, q Query) (*Result, error) {
	title, artist := CleanupMetadata(q.Title, q.Artist)
	if title == "" {
		return nil, ErrInvalidQuery
	}

	clean := Query{Title: title, Artist: artist, Album: strings.TrimSpace(q.Album), Duration: q.Duration}
	attempts := c.maxRetries + 1

	c.log.Debug("fetching lyrics", "title", title, "artist", artist)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(attempt)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		result, err := c.fetchOnce(ctx, clean)
		if err == nil {
			return result, nil
		}

		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		c.log.Warn("lyrics fetch attempt failed", "attempt", attempt+1, "error", err)
	}

	c.log.Error("all lyrics fetch attempts failed", "attempts", attempts, "error", lastErr)
	return nil, &FetchError{Attempts: attempts, Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, q Query) (*Result, error) {
	// /get needs an artist
	if q.Artist != "" {
		record, err := c.Get(ctx, q)
		switch {
		case err == nil:
			if result := resultFromRecord(record, SourceGet); result != nil {
				return result, nil
			}
		case errors.Is(err, ErrNotFound):
		case isTransient(err) || ctx.Err() != nil:
			return nil, err
		default:
			c.log.Debug("exact lookup failed, searching", "error", err)
		}
	}

	records, err := c.Search(ctx, searchQuery(q.Title, q.Artist))
	if err != nil {
		return nil, err
	}

	if record := pickRecord(records, q.Duration); record != nil {
		return resultFromRecord(record, SourceSearch), nil
	}

	return nil, ErrNotFound
}

// pickRecord prefers synced lyrics close to the wanted duration, then any
// synced lyrics, then plain lyrics.
func pickRecord(records []Record, duration time.Duration) *Record {
	if duration > 0 {
		for i := range records {
			r := &records[i]
			delta := math.Abs(r.Duration - duration.Seconds())
			if r.HasSynced() && delta <= durationTolerance.Seconds() {
				return r
			}
		}
	}

	for i := range records {
		if records[i].HasSynced() {
			return &records[i]
		}
	}

	for i := range records {
		if records[i].HasPlain() {
			return &records[i]
		}
	}

	return nil
}

func resultFromRecord(r *Record, source string) *Result {
	result := &Result{
		TrackName:    r.TrackName,
		ArtistName:   r.ArtistName,
		AlbumName:    r.AlbumName,
		Duration:     time.Duration(r.Duration * float64(time.Second)),
		Instrumental: r.Instrumental,
		Source:       source,
	}

	switch {
	case r.HasSynced():
		result.Lyrics = r.SyncedLyrics
		result.Synced = true
	case r.HasPlain():
		result.Lyrics = r.PlainLyrics
	case r.Instrumental:
	default:
		return nil
	}

	return result
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, into any) error {
	requestURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("failed to decode lrclib json: %w", err)
	}

	return nil
}

func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	// *url.Error satisfies net.Error itself, so look inside it
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || errors.As(urlErr.Err, &netErr)
	}

	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
