package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCloses(t *testing.T) {
	day1 := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.Equal(t, "30d", r.URL.Query().Get("range"))
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d],
			"indicators":{"quote":[{"close":[150.5,0]}]}}],"error":null}}`,
			day1.Unix(), day2.Unix())
	}))
	defer ts.Close()

	fetcher := NewFetcher(ts.URL, 5*time.Second)
	closes, err := fetcher.DailyCloses(context.Background(), "AAPL", 30)
	require.NoError(t, err)

	// The zero close on day two is dropped.
	require.Len(t, closes, 1)
	assert.Equal(t, 150.5, closes[day1])
}

func TestDailyClosesEmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer ts.Close()

	fetcher := NewFetcher(ts.URL, 5*time.Second)
	_, err := fetcher.DailyCloses(context.Background(), "GHOST", 30)
	assert.Error(t, err)
}

func TestDailyClosesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	fetcher := NewFetcher(ts.URL, 5*time.Second)
	_, err := fetcher.DailyCloses(context.Background(), "AAPL", 30)
	assert.Error(t, err)
}
