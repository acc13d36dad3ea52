package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playsXML = `<?xml version="1.0" encoding="utf-8"?>
<plays username="mikko" userid="123" total="3" page="1">
  <play id="101" date="2020-05-20" quantity="1" length="120" location="">
    <item name="Spirit Island" objecttype="thing" objectid="162886">
      <subtypes><subtype value="boardgame"/></subtypes>
    </item>
    <comments>Won on level 4</comments>
  </play>
  <play id="102" date="2020-05-19" quantity="1" length="70" location="">
    <item name="Wingspan" objecttype="thing" objectid="266192">
      <subtypes><subtype value="boardgame"/></subtypes>
    </item>
  </play>
  <play id="103" date="not-a-date" quantity="1" length="40" location="">
    <item name="Azul" objecttype="thing" objectid="230802">
      <subtypes><subtype value="boardgame"/></subtypes>
    </item>
  </play>
</plays>`

const thingXML = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
  <item type="boardgame" id="162886">
    <thumbnail>https://example.com/spirit-thumb.jpg</thumbnail>
    <name type="primary" value="Spirit Island"/>
  </item>
</items>`

// newTestClient points a client with fast retry timing at srv.
func newTestClient(srv *httptest.Server, cache *ResponseCache) *BGGClient {
	c := NewBGGClient(srv.URL+"/", cache)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = 5 * time.Millisecond
	return c
}

func TestFetchPlays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plays", r.URL.Path)
		assert.Equal(t, "mikko", r.URL.Query().Get("username"))
		w.Write([]byte(playsXML))
	}))
	defer srv.Close()

	plays, err := newTestClient(srv, nil).FetchPlays(context.Background(), "mikko")
	require.NoError(t, err)
	// The play with an unparseable date is skipped.
	require.Len(t, plays, 2)

	assert.Equal(t, "Spirit Island", plays[0].GameName)
	assert.Equal(t, 162886, plays[0].GameID)
	assert.Equal(t, "Won on level 4", plays[0].Comment)
	assert.Equal(t, 120, plays[0].Length)
	assert.Equal(t, time.Date(2020, 5, 20, 0, 0, 0, 0, time.UTC), plays[0].Date)

	assert.Equal(t, "Wingspan", plays[1].GameName)
	assert.Empty(t, plays[1].Comment)
}

func TestFetchPlaysRetriesQueuedExport(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(playsXML))
	}))
	defer srv.Close()

	plays, err := newTestClient(srv, nil).FetchPlays(context.Background(), "mikko")
	require.NoError(t, err)
	assert.Len(t, plays, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPlaysTerminalStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchPlays(context.Background(), "nobody")
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/thing", r.URL.Path)
		assert.Equal(t, "162886", r.URL.Query().Get("id"))
		w.Write([]byte(thingXML))
	}))
	defer srv.Close()

	url, err := newTestClient(srv, nil).Thumbnail(context.Background(), 162886)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/spirit-thumb.jpg", url)
}

func TestGetUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(playsXML))
	}))
	defer srv.Close()

	cache, err := NewResponseCache(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	client := newTestClient(srv, cache)
	for i := 0; i < 3; i++ {
		_, err := client.FetchPlays(context.Background(), "mikko")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}
