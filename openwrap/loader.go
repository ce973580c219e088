package openwrap

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LoaderState is the observable lifecycle of an AdsLoader. Terminal states
// (Delivered, Failed, Cancelled) are re-enterable: the next Load starts a
// fresh cycle.
type LoaderState int

const (
	StateIdle LoaderState = iota
	StateLoading
	StateDelivered
	StateFailed
	StateCancelled
)

func (s LoaderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// LoaderListener receives the final outcome of a load cycle. Neither
// callback fires for a load that was invalidated or superseded.
type LoaderListener interface {
	OnAdReceived(resp *AdResponse)
	OnAdFailed(code int, message string)
}

// AdsLoader orchestrates one ad load at a time: it drives identifier
// resolution, dispatches the request through the shared NetworkClient, and
// forwards the outcome to the listener. Late callbacks from superseded loads
// are discarded by identity comparison.
//
// A Load while another is in flight invalidates the previous request first;
// its listener callbacks are suppressed.
type AdsLoader struct {
	cfg      *Configuration
	provider *IdentifierProvider
	client   *NetworkClient
	logger   *zap.Logger

	mu       sync.Mutex
	state    LoaderState
	current  *AdRequest
	listener LoaderListener
}

// NewAdsLoader constructs a loader over a shared configuration, identifier
// provider and network client. Several loaders may share one client.
func NewAdsLoader(cfg *Configuration, provider *IdentifierProvider, client *NetworkClient, logger *zap.Logger) *AdsLoader {
	return &AdsLoader{
		cfg:      cfg,
		provider: provider,
		client:   client,
		logger:   logger,
	}
}

// SetListener installs the callback target for load outcomes.
func (l *AdsLoader) SetListener(listener LoaderListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listener = listener
}

// State returns the loader's current lifecycle state.
func (l *AdsLoader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load starts an ad load for req. Identifier resolution always completes
// (successfully or not) before dispatch; a missing identifier never aborts
// the load. If a previous load is still in flight it is invalidated first.
func (l *AdsLoader) Load(ctx context.Context, req *AdRequest) {
	l.mu.Lock()
	if l.state == StateLoading && l.current != nil {
		l.logger.Debug("superseding in-flight ad request",
			zap.String("request_id", l.current.ID().String()))
		l.client.Cancel(l.current)
	}
	l.current = req
	l.state = StateLoading
	l.mu.Unlock()

	l.provider.Resolve(ctx, &identifierRelay{loader: l, ctx: ctx, req: req})
}

// Invalidate cancels the in-flight load, if any, and clears its identity so
// no callback is delivered for it. Safe to call when idle.
func (l *AdsLoader) Invalidate() {
	l.mu.Lock()
	req := l.current
	if req != nil {
		l.current = nil
		l.state = StateCancelled
	}
	l.mu.Unlock()

	if req != nil {
		l.client.Cancel(req)
		l.logger.Debug("ad load invalidated",
			zap.String("request_id", req.ID().String()))
	}
}

// dispatch forwards the request to the network client, unless it has been
// superseded or invalidated while the identifier was resolving.
func (l *AdsLoader) dispatch(ctx context.Context, req *AdRequest) {
	l.mu.Lock()
	current := l.current
	l.mu.Unlock()

	if current == nil || current.ID() != req.ID() {
		l.logger.Debug("dropping superseded ad request before dispatch",
			zap.String("request_id", req.ID().String()))
		return
	}

	l.client.Send(ctx, req, l.cfg, &responseRelay{loader: l, req: req})
}

// finish resolves one load cycle. It reports whether the completing request
// is still the current identity; stale completions are dropped.
func (l *AdsLoader) finish(req *AdRequest, state LoaderState) (LoaderListener, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil || l.current.ID() != req.ID() {
		return nil, false
	}
	l.current = nil
	l.state = state
	return l.listener, true
}

// identifierRelay carries one load cycle through identifier resolution.
type identifierRelay struct {
	loader *AdsLoader
	ctx    context.Context
	req    *AdRequest
}

func (r *identifierRelay) OnResolved(info *AdvertisingInfo) {
	r.req.setAdvertisingInfo(info)
	r.loader.dispatch(r.ctx, r.req)
}

func (r *identifierRelay) OnFailed(err error) {
	// Resolution failure is non-fatal; the request goes out without an
	// identifier.
	r.loader.logger.Debug("proceeding without advertising identifier", zap.Error(err))
	r.loader.dispatch(r.ctx, r.req)
}

// responseRelay correlates a network outcome back to the loader.
type responseRelay struct {
	loader *AdsLoader
	req    *AdRequest
}

func (r *responseRelay) OnSuccess(resp *AdResponse) {
	listener, ok := r.loader.finish(r.req, StateDelivered)
	if !ok {
		r.loader.logger.Debug("dropping stale ad response",
			zap.String("request_id", r.req.ID().String()))
		return
	}
	if listener != nil {
		listener.OnAdReceived(resp)
	}
}

func (r *responseRelay) OnFailure(code int, message string) {
	listener, ok := r.loader.finish(r.req, StateFailed)
	if !ok {
		r.loader.logger.Debug("dropping stale ad failure",
			zap.String("request_id", r.req.ID().String()))
		return
	}
	if listener != nil {
		listener.OnAdFailed(code, message)
	}
}
