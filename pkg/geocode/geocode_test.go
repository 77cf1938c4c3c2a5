package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igosint/pkg/config"
	errs "igosint/pkg/errors"
	"igosint/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().Geocoder
	cfg.Endpoint = srv.URL
	cfg.RequestsPerSecond = 1000
	return NewClient(cfg, &retry.Policy{MaxAttempts: 1}, nil)
}

func TestClientReverse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "48.8584", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.2945", r.URL.Query().Get("lon"))
		assert.Equal(t, "igosint", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"display_name":"Tour Eiffel, Paris, France","lat":"48.85826","lon":"2.29450"}`))
	})

	p, err := c.Reverse(context.Background(), 48.8584, 2.2945)
	require.NoError(t, err)
	assert.Equal(t, "Tour Eiffel, Paris, France", p.Address)
	assert.InDelta(t, 48.85826, p.Lat, 1e-9)
	assert.InDelta(t, 2.2945, p.Lng, 1e-9)
}

func TestClientReverseErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("lat") {
		case "1":
			w.Write([]byte(`{"error":"Unable to geocode"}`))
		case "2":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`not json`))
		}
	})

	_, err := c.Reverse(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = c.Reverse(context.Background(), 2, 0)
	assert.Equal(t, errs.ErrorTypeRateLimit, errs.TypeOf(err))

	_, err = c.Reverse(context.Background(), 3, 0)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

type countingReverser struct {
	calls atomic.Int32
	err   error
}

func (c *countingReverser) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &Place{Address: "somewhere", Lat: lat, Lng: lng}, nil
}

func TestCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "geocode.db")
	next := &countingReverser{}

	c, err := OpenCache(path, next, nil)
	require.NoError(t, err)

	ctx := context.Background()
	p1, err := c.Reverse(ctx, 10.123456, 20.654321)
	require.NoError(t, err)
	p2, err := c.Reverse(ctx, 10.123456, 20.654321)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.EqualValues(t, 1, next.calls.Load())
	require.NoError(t, c.Close())

	// answers survive reopening
	c, err = OpenCache(path, next, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Reverse(ctx, 10.123456, 20.654321)
	require.NoError(t, err)
	assert.EqualValues(t, 1, next.calls.Load())

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	next := &countingReverser{err: errors.New("offline")}
	c, err := OpenCache(filepath.Join(t.TempDir(), "geocode.db"), next, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Reverse(context.Background(), 1, 2)
	assert.Error(t, err)

	n, err := c.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
