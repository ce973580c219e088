package openwrap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type captureLoaderListener struct {
	received chan *AdResponse
	failed   chan transportFailure
}

func newCaptureLoaderListener() *captureLoaderListener {
	return &captureLoaderListener{
		received: make(chan *AdResponse, 2),
		failed:   make(chan transportFailure, 2),
	}
}

func (l *captureLoaderListener) OnAdReceived(resp *AdResponse) { l.received <- resp }
func (l *captureLoaderListener) OnAdFailed(code int, message string) {
	l.failed <- transportFailure{code: code, message: message}
}

func newTestLoader(source IdentifierSource) (*AdsLoader, *captureLoaderListener) {
	cfg := NewConfiguration()
	provider := newTestProvider(source)
	loader := NewAdsLoader(cfg, provider, newTestClient(), zap.NewNop())
	listener := newCaptureLoaderListener()
	loader.SetListener(listener)
	return loader, listener
}

func waitReceived(t *testing.T, listener *captureLoaderListener) *AdResponse {
	t.Helper()
	select {
	case resp := <-listener.received:
		return resp
	case f := <-listener.failed:
		t.Fatalf("unexpected failure: %d %s", f.code, f.message)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ad")
	}
	return nil
}

func TestAdsLoaderDeliversAdWithIdentifier(t *testing.T) {
	queries := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		w.Write([]byte(`{"targeting":{"pwtbst":"1"}}`))
	}))
	defer server.Close()

	loader, listener := newTestLoader(&fakeSource{info: &AdvertisingInfo{ID: "abc123"}})
	assert.Equal(t, StateIdle, loader.State())

	loader.Load(context.Background(), requestFor(server.URL))

	resp := waitReceived(t, listener)
	assert.Equal(t, "1", resp.TargetingValues()["pwtbst"])
	assert.Equal(t, StateDelivered, loader.State())

	q := <-queries
	assert.Equal(t, "abc123", q.Get(keyIFA))
	assert.Equal(t, "0", q.Get(keyLMT))
}

func TestAdsLoaderProceedsWithoutIdentifier(t *testing.T) {
	queries := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		w.Write([]byte(`{"targeting":{}}`))
	}))
	defer server.Close()

	loader, listener := newTestLoader(&fakeSource{err: fmt.Errorf("resolver unavailable")})
	loader.Load(context.Background(), requestFor(server.URL))

	// Identifier failure must not abort the load.
	waitReceived(t, listener)

	q := <-queries
	assert.Empty(t, q.Get(keyIFA))
	assert.Empty(t, q.Get(keyIFAMD5))
	assert.Empty(t, q.Get(keyIFASHA1))
}

func TestAdsLoaderReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	loader, listener := newTestLoader(&fakeSource{info: &AdvertisingInfo{ID: "abc123"}})
	loader.Load(context.Background(), requestFor(server.URL))

	select {
	case f := <-listener.failed:
		assert.Equal(t, http.StatusNotFound, f.code)
	case <-listener.received:
		t.Fatal("expected failure, got ad")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for failure")
	}
	assert.Equal(t, StateFailed, loader.State())
}

func TestAdsLoaderInvalidateSuppressesCallbacks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte(`{}`))
	}))
	defer server.Close()
	defer close(release)

	loader, listener := newTestLoader(&fakeSource{info: &AdvertisingInfo{ID: "abc123"}})
	loader.Load(context.Background(), requestFor(server.URL))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}
	loader.Invalidate()
	assert.Equal(t, StateCancelled, loader.State())

	select {
	case <-listener.received:
		t.Fatal("invalidated load delivered an ad")
	case f := <-listener.failed:
		t.Fatalf("invalidated load delivered a failure: %d %s", f.code, f.message)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestAdsLoaderSupersedesInFlightLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			w.Write([]byte(`{"targeting":{"seq":"1"}}`))
			return
		}
		w.Write([]byte(`{"targeting":{"seq":"2"}}`))
	}))
	defer server.Close()
	defer close(release)

	loader, listener := newTestLoader(&fakeSource{info: &AdvertisingInfo{ID: "abc123"}})

	loader.Load(context.Background(), requestFor(server.URL))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the server")
	}

	loader.Load(context.Background(), requestFor(server.URL))

	resp := waitReceived(t, listener)
	assert.Equal(t, "2", resp.TargetingValues()["seq"], "only the superseding load reports")
	assert.Equal(t, StateDelivered, loader.State())

	// The superseded load stays silent even if its response arrives late.
	select {
	case resp := <-listener.received:
		t.Fatalf("superseded load delivered an ad: %s", resp.Body())
	case f := <-listener.failed:
		t.Fatalf("superseded load delivered a failure: %d %s", f.code, f.message)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestAdsLoaderReusableAfterDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"targeting":{"pwtbst":"1"}}`))
	}))
	defer server.Close()

	loader, listener := newTestLoader(&fakeSource{info: &AdvertisingInfo{ID: "abc123"}})

	loader.Load(context.Background(), requestFor(server.URL))
	waitReceived(t, listener)

	loader.Load(context.Background(), requestFor(server.URL))
	waitReceived(t, listener)
	assert.Equal(t, StateDelivered, loader.State())
}

func TestLoaderStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "delivered", StateDelivered.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "unknown", LoaderState(99).String())
}
