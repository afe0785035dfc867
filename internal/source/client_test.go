package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosight/gazetrace/internal/config"
)

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/trials", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"_id":"t1","test":"vero","timestamp":"2019-03-01T10:00:00Z"}]`))
	})
	mux.HandleFunc("/trial/t1/meta", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Write([]byte(`{"_id":"t1","startTime":"2019-03-01T10:00:00Z","endTime":"2019-03-01T10:05:00Z"}`))
	})
	mux.HandleFunc("/trial/t1/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"type":"scroll","timestamp":"2019-03-01T10:00:01Z","position":50}]`))
	})
	mux.HandleFunc("/trial/t1/gaze/fixations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"timestamp":{"LocalTimeStamp":"2019-03-01T10:00:02Z"},"x":1,"y":2,"duration":90}]`))
	})
	mux.HandleFunc("/trial/t1/gaze/saccades", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"timestamp":"2019-03-01T10:00:02Z","saccadicAmplitude":3.5}]`))
	})
	mux.HandleFunc("/trial/t1/stats", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Write([]byte(`{"fixations":{"count":2}}`))
	})
	mux.HandleFunc("/trial/t1/stats/1000-5000", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fixations":{"count":1}}`))
	})
	mux.HandleFunc("/tests", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["vero-map","vero-grid"]`))
	})
	mux.HandleFunc("/trial/missing/meta", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such trial"}`))
	})
	mux.HandleFunc("/trial/broken/meta", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(url string) *Client {
	return NewClient(config.SourceConfig{BaseURL: url + "/", Timeout: 5 * time.Second})
}

func TestClient_Trials(t *testing.T) {
	var hits int32
	c := newClient(newTestServer(t, &hits).URL)

	list, err := c.Trials(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Timestamp.IsText())
	assert.Equal(t, int64(1551434400000), list[0].Timestamp.Instant().UnixMilli())
}

func TestClient_MetaIsCached(t *testing.T) {
	var hits int32
	c := newClient(newTestServer(t, &hits).URL)
	ctx := context.Background()

	meta, err := c.Meta(ctx, "t1")
	require.NoError(t, err)
	d, ok := meta.DurationMillis()
	require.True(t, ok)
	assert.Equal(t, int64(300_000), d)

	_, err = c.Meta(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	c.Forget("t1")
	_, err = c.Meta(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_EventsAndFixations(t *testing.T) {
	var hits int32
	c := newClient(newTestServer(t, &hits).URL)
	ctx := context.Background()

	records, err := c.Events(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Timestamp.IsText())
	assert.Equal(t, float64(50), records[0].Position)

	fixations, err := c.Fixations(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, fixations, 1)
	assert.Equal(t, int64(1551434402000), fixations[0].Timestamp.UnixMilli())
	assert.Equal(t, float64(90), fixations[0].Duration)

	saccades, err := c.SaccadeFixations(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, saccades, 1)
	assert.Equal(t, 3.5, saccades[0].SaccadicAmplitude)
	assert.True(t, saccades[0].Timestamp.Valid())
}

func TestClient_Errors(t *testing.T) {
	var hits int32
	c := newClient(newTestServer(t, &hits).URL)
	ctx := context.Background()

	_, err := c.Meta(ctx, "missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, `"trial/missing/meta" returned "no such trial" [Not Found]`, err.Error())

	_, err = c.Meta(ctx, "broken")
	assert.EqualError(t, err, `"trial/broken/meta" returned "Internal Server Error" [Internal Server Error]`)

	_, err = c.Events(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyTrialID)
}

func TestClient_Stats(t *testing.T) {
	var hits int32
	c := newClient(newTestServer(t, &hits).URL)
	ctx := context.Background()

	stats, err := c.Stats(ctx, "t1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fixations":{"count":2}}`, string(stats))

	_, err = c.Stats(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	chunk, err := c.ChunkStats(ctx, "t1", 1000, 5000)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fixations":{"count":1}}`, string(chunk))

	_, err = c.ChunkStats(ctx, "t1", 0, 1)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)

	tests, err := c.Tests(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `["vero-map","vero-grid"]`, string(tests))
}
