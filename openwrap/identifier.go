package openwrap

import (
	"context"
	"sync"

	"github.com/patrickwarner/openwrap-client/observability"
	"go.uber.org/zap"
)

// AdvertisingInfo is a resolved device advertising identifier together with
// the user's limit-ad-tracking choice.
type AdvertisingInfo struct {
	ID              string
	LimitAdTracking bool
}

// IdentifierSource performs the platform-specific identifier lookup. On
// Android this would be the Play-services advertising id client; on other
// platforms it is whatever the host can provide.
type IdentifierSource interface {
	AdvertisingInfo(ctx context.Context) (*AdvertisingInfo, error)
}

// StaticIdentifierSource serves a fixed identifier (or a fixed error).
// Useful for demos and tests.
type StaticIdentifierSource struct {
	Info *AdvertisingInfo
	Err  error
}

func (s *StaticIdentifierSource) AdvertisingInfo(ctx context.Context) (*AdvertisingInfo, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Info, nil
}

// IdentifierListener receives the outcome of a single Resolve call.
type IdentifierListener interface {
	// OnResolved delivers the identifier. For a cache hit it is invoked
	// synchronously from Resolve.
	OnResolved(info *AdvertisingInfo)

	// OnFailed reports that no identifier could be obtained. Callers are
	// expected to proceed without one.
	OnFailed(err error)
}

// IdentifierProvider resolves the advertising identifier asynchronously and
// caches the last successful result for the process lifetime.
//
// On a cache miss, Resolve starts a background lookup and reports its
// outcome to the listener. On a cache hit, the listener is served the cached
// value immediately and a second lookup is started purely to refresh the
// cache; its outcome is not reported. The cache is last-write-wins.
type IdentifierProvider struct {
	source  IdentifierSource
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	mu     sync.RWMutex
	cached *AdvertisingInfo
}

// NewIdentifierProvider constructs a provider over the given source.
func NewIdentifierProvider(source IdentifierSource, logger *zap.Logger, metrics observability.MetricsRegistry) *IdentifierProvider {
	return &IdentifierProvider{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Cached returns the currently cached identifier, or nil.
func (p *IdentifierProvider) Cached() *AdvertisingInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cached
}

// Resolve serves exactly one listener. Arbitrarily many calls may be in
// flight concurrently; each gets its own background lookup or the cached
// value.
func (p *IdentifierProvider) Resolve(ctx context.Context, listener IdentifierListener) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()

	if cached != nil {
		// Refresh for future calls, answer this one from cache.
		go p.fetch(ctx, nil)
		listener.OnResolved(cached)
		return
	}

	go p.fetch(ctx, listener)
}

func (p *IdentifierProvider) fetch(ctx context.Context, listener IdentifierListener) {
	info, err := p.source.AdvertisingInfo(ctx)
	if err != nil || info == nil {
		if err == nil {
			err = errEmptyIdentifier
		}
		resErr := &IdentifierResolutionError{Cause: err}
		p.logger.Warn("advertising identifier lookup failed", zap.Error(resErr))
		p.metrics.IncrementIdentifierResolutions("failure")
		if listener != nil {
			listener.OnFailed(resErr)
		}
		return
	}

	p.mu.Lock()
	p.cached = info
	p.mu.Unlock()

	p.logger.Debug("advertising identifier resolved",
		zap.Bool("lmt", info.LimitAdTracking))
	p.metrics.IncrementIdentifierResolutions("success")

	if listener != nil {
		listener.OnResolved(info)
	}
}
