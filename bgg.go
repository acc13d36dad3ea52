package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// BaseURL is the root of the BoardGameGeek XML API2.
const BaseURL = "https://boardgamegeek.com/xmlapi2/"

// Play is a single logged play from a user's BGG play history.
type Play struct {
	Date     time.Time
	GameID   int
	GameName string
	Comment  string
	// Length is the logged play time in minutes.
	Length int
}

// XML payload shapes for the two API endpoints we consume.

type playsDoc struct {
	XMLName  xml.Name    `xml:"plays"`
	Username string      `xml:"username,attr"`
	Total    int         `xml:"total,attr"`
	Plays    []playEntry `xml:"play"`
}

type playEntry struct {
	Date     string `xml:"date,attr"`
	Length   int    `xml:"length,attr"`
	Comments string `xml:"comments"`
	Item     struct {
		ObjectID int    `xml:"objectid,attr"`
		Name     string `xml:"name,attr"`
	} `xml:"item"`
}

type thingDoc struct {
	XMLName xml.Name `xml:"items"`
	Items   []struct {
		ID        int    `xml:"id,attr"`
		Thumbnail string `xml:"thumbnail"`
	} `xml:"item"`
}

// BGGClient talks to the BGG XML API2. Successful responses are cached
// (BGG throttles aggressively, and play histories change slowly), outbound
// calls are rate-limited, and the whole thing sits behind a circuit breaker
// so a down API fails fast instead of stacking up blocked handlers.
type BGGClient struct {
	baseURL string
	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cache   *ResponseCache
}

// NewBGGClient returns a client for the given API base URL. cache may be
// nil, in which case every call goes to the network.
func NewBGGClient(baseURL string, cache *ResponseCache) *BGGClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 5
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 15 * time.Second
	rc.Logger = nil
	// BGG answers 202 while it queues a plays export; retry until the
	// real payload is ready, on top of the default transient-error policy.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusAccepted {
			return true, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return &BGGClient{
		baseURL: baseURL,
		http:    rc,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "bgg-api",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		cache:   cache,
	}
}

// get performs a GET against the API, going through the cache first.
func (c *BGGClient) get(ctx context.Context, uri string, params url.Values) ([]byte, error) {
	u := c.baseURL + uri
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, u); err != nil {
			slog.WarnContext(ctx, "cache read failed", "url", u, "err", err)
		} else if ok {
			slog.DebugContext(ctx, "cache hit", "url", u)
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("bgg api: %s returned status %d", uri, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	body := res.([]byte)

	if c.cache != nil {
		if err := c.cache.Set(ctx, u, body); err != nil {
			slog.WarnContext(ctx, "cache write failed", "url", u, "err", err)
		}
	}
	return body, nil
}

// FetchPlays fetches and parses the play history for username. The API
// returns plays newest first; that order is preserved.
func (c *BGGClient) FetchPlays(ctx context.Context, username string) ([]Play, error) {
	slog.InfoContext(ctx, "fetching plays from the BGG API", "username", username)

	params := url.Values{"username": []string{username}}
	body, err := c.get(ctx, "plays", params)
	if err != nil {
		return nil, fmt.Errorf("fetching plays for %q: %w", username, err)
	}

	var doc playsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing plays for %q: %w", username, err)
	}

	plays := make([]Play, 0, len(doc.Plays))
	for _, entry := range doc.Plays {
		date, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			slog.DebugContext(ctx, "skipping play with bad date", "date", entry.Date, "err", err)
			continue
		}
		play := Play{
			Date:     date,
			GameID:   entry.Item.ObjectID,
			GameName: entry.Item.Name,
			Comment:  entry.Comments,
			Length:   entry.Length,
		}
		slog.DebugContext(ctx, "play parsed", "game", play.GameName, "date", entry.Date)
		plays = append(plays, play)
	}

	slog.InfoContext(ctx, "plays fetched", "username", username, "count", len(plays))
	return plays, nil
}

// Thumbnail returns the thumbnail URL for the given game.
func (c *BGGClient) Thumbnail(ctx context.Context, gameID int) (string, error) {
	params := url.Values{"id": []string{fmt.Sprint(gameID)}}
	body, err := c.get(ctx, "thing", params)
	if err != nil {
		return "", fmt.Errorf("fetching thing %d: %w", gameID, err)
	}

	var doc thingDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parsing thing %d: %w", gameID, err)
	}
	if len(doc.Items) == 0 {
		return "", fmt.Errorf("thing %d: no items in response", gameID)
	}
	return doc.Items[0].Thumbnail, nil
}
