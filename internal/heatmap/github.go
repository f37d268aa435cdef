package heatmap

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultGitHubURL = "https://github.com"
	DefaultTTL       = 6 * time.Hour

	maxPageBytes = 4 << 20
	fetchTimeout = 15 * time.Second
)

// Cache stores fetched calendars between requests.
type Cache interface {
	LoadCalendar(ctx context.Context, username string) (Calendar, bool, error)
	SaveCalendar(ctx context.Context, cal Calendar) error
}

// StatusError is a non-2xx answer from GitHub.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("heatmap: GET %s: HTTP %d", e.URL, e.StatusCode)
}

// GitHub renders heatmaps from the public contributions calendar.
//
// Calendars are cached for TTL. Concurrent requests for the same user share
// a single fetch.
type GitHub struct {
	BaseURL string
	Client  *http.Client
	Cache   Cache
	TTL     time.Duration
	Log     *zap.Logger

	now   func() time.Time
	group singleflight.Group
}

func NewGitHub(baseURL string, client *http.Client, cache Cache, ttl time.Duration, log *zap.Logger) *GitHub {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGitHubURL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GitHub{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  client,
		Cache:   cache,
		TTL:     ttl,
		Log:     log,
		now:     time.Now,
	}
}

// Available reports whether the adapter has what it needs to fetch.
func (g *GitHub) Available() bool {
	if g == nil || g.Client == nil {
		return false
	}
	u, err := url.Parse(g.BaseURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (g *GitHub) RenderHeatmap(ctx context.Context, username string, palette Palette) (template.HTML, error) {
	cal, err := g.Calendar(ctx, username)
	if err != nil {
		return "", err
	}
	return RenderSVG(cal, palette), nil
}

// Calendar returns the user's calendar from cache when fresh, otherwise
// fetches it.
func (g *GitHub) Calendar(ctx context.Context, username string) (Calendar, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return Calendar{}, ErrUnavailable
	}

	if g.Cache != nil {
		cal, ok, err := g.Cache.LoadCalendar(ctx, username)
		if err != nil {
			g.Log.Warn("heatmap cache read failed", zap.String("username", username), zap.Error(err))
		} else if ok && g.clock().Sub(cal.FetchedAt) < g.TTL {
			return cal, nil
		}
	}

	// The fetch is shared, so it must outlive whichever caller started it.
	ch := g.group.DoChan(strings.ToLower(username), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return g.fetchCalendar(fctx, username)
	})
	select {
	case <-ctx.Done():
		return Calendar{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Calendar{}, res.Err
		}
		if res.Shared {
			g.Log.Debug("heatmap fetch shared", zap.String("username", username))
		}
		return res.Val.(Calendar), nil
	}
}

func (g *GitHub) fetchCalendar(ctx context.Context, username string) (Calendar, error) {
	body, err := g.Fetch(ctx, username)
	if err != nil {
		return Calendar{}, err
	}
	cal, err := Parse(body)
	if err != nil {
		return Calendar{}, fmt.Errorf("parse calendar for %s: %w", username, err)
	}
	cal.Username = username
	cal.FetchedAt = g.clock()

	if g.Cache != nil {
		if err := g.Cache.SaveCalendar(ctx, cal); err != nil {
			g.Log.Warn("heatmap cache write failed", zap.String("username", username), zap.Error(err))
		}
	}
	g.Log.Info("heatmap fetched",
		zap.String("username", username),
		zap.Int("days", len(cal.Days)),
		zap.Int("total", cal.Total))
	return cal, nil
}

// Fetch downloads the raw contributions fragment.
func (g *GitHub) Fetch(ctx context.Context, username string) ([]byte, error) {
	if !g.Available() {
		return nil, ErrUnavailable
	}
	u := g.BaseURL + "/users/" + url.PathEscape(username) + "/contributions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch contributions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

func (g *GitHub) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}
