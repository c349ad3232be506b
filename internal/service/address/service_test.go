package address

import (
	"OrderFlow/internal/config"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	return newTestServiceTTL(t, 0, handler)
}

func newTestServiceTTL(t *testing.T, ttl time.Duration, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &config.Config{}
	conf.AMap.Key = "test-key"
	conf.AMap.BaseURL = srv.URL
	conf.AMap.CacheTTL = ttl
	return NewAddressService(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestService_SearchLimitsAndCaches(t *testing.T) {
	var calls atomic.Int32
	svc := newTestServiceTTL(t, 200*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v3/assistant/inputtips", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "世纪大道", r.URL.Query().Get("keywords"))

		tips := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			tips = append(tips, fmt.Sprintf(`{"id":"B%d","name":"世纪大道%d号","district":"上海市浦东新区","address":"世纪大道"}`, i, i))
		}
		_, _ = fmt.Fprintf(w, `{"status":"1","info":"OK","tips":[%s]}`, strings.Join(tips, ","))
	})

	got, err := svc.Search(context.Background(), " 世纪大道 ")
	require.NoError(t, err)
	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, "B0", got[0].PlaceID)
	assert.Equal(t, "世纪大道0号, 世纪大道, 上海市浦东新区", got[0].Description)
	assert.Equal(t, "世纪大道, 上海市浦东新区", got[0].SecondaryText)

	_, err = svc.Search(context.Background(), "世纪大道")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	time.Sleep(300 * time.Millisecond)
	_, err = svc.Search(context.Background(), "世纪大道")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestService_ShortQuerySkipsLookup(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected lookup")
	})

	got, err := svc.Search(context.Background(), "上")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_EmptyAddressArray(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"1","tips":[{"id":"","name":"人民广场","district":"上海市黄浦区","address":[]}]}`))
	})

	got, err := svc.Search(context.Background(), "人民广场")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "人民广场_0", got[0].PlaceID)
	assert.Equal(t, "人民广场, 上海市黄浦区", got[0].Description)
}

func TestService_RejectedLookupIsEmpty(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","info":"INVALID_USER_KEY"}`))
	})

	got, err := svc.Search(context.Background(), "人民广场")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_CacheIsBounded(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprintf(w, `{"status":"1","tips":[{"id":"B1","name":"%s","address":"x"}]}`, r.URL.Query().Get("keywords"))
	})
	ctx := context.Background()

	for i := 0; i <= maxCacheEntries; i++ {
		_, err := svc.Search(ctx, fmt.Sprintf("街道%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, maxCacheEntries, svc.cache.Len())
	assert.EqualValues(t, maxCacheEntries+1, calls.Load())

	// the oldest query was evicted, the newest is still served from memory
	_, err := svc.Search(ctx, fmt.Sprintf("街道%d", maxCacheEntries))
	require.NoError(t, err)
	assert.EqualValues(t, maxCacheEntries+1, calls.Load())

	_, err = svc.Search(ctx, "街道0")
	require.NoError(t, err)
	assert.EqualValues(t, maxCacheEntries+2, calls.Load())
	assert.Equal(t, maxCacheEntries, svc.cache.Len())
}
