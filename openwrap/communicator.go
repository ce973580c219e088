package openwrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/patrickwarner/openwrap-client/observability"
	"go.uber.org/zap"
)

// defaultMaxTries bounds the automatic retry of transient failures: one
// initial attempt plus one retry, matching the upstream default policy.
const defaultMaxTries = 2

// Requester is the capability NetworkClient needs from a request: a stable
// identity for cancellation tagging, a rendered URL, and the timeout that
// governs the dispatch. AdRequest satisfies it; tests can substitute fakes.
type Requester interface {
	ID() uuid.UUID
	BuildURL(cfg *Configuration) (string, error)
	Timeout() time.Duration
}

// ResponseListener receives the outcome of a Send. Exactly one of the two
// callbacks fires per dispatch, unless the operation was cancelled, in which
// case neither does.
type ResponseListener interface {
	OnSuccess(resp *AdResponse)

	// OnFailure reports the numeric error code (HTTP status when the server
	// answered, otherwise the transport taxonomy code) and a message.
	OnFailure(code int, message string)
}

// operation is one in-flight dispatch, cancellable through its context.
type operation struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NetworkClient is a shared HTTP GET dispatcher for OpenWrap requests. It
// tags every operation with the request identity so Cancel can abort all
// operations for a given request, and maps transport failures onto the fixed
// error-code taxonomy. A single client is safe for concurrent Send and
// Cancel calls from multiple loaders.
type NetworkClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
	maxTries   uint
	newBackOff func() backoff.BackOff

	mu       sync.Mutex
	inflight map[uuid.UUID]map[*operation]struct{}
}

// NewNetworkClient constructs a dispatcher. Per-request timeouts are applied
// through contexts, so the underlying http.Client carries no global timeout.
func NewNetworkClient(logger *zap.Logger, metrics observability.MetricsRegistry) *NetworkClient {
	return &NetworkClient{
		httpClient: &http.Client{},
		logger:     logger,
		metrics:    metrics,
		maxTries:   defaultMaxTries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		inflight:   make(map[uuid.UUID]map[*operation]struct{}),
	}
}

// Send dispatches the request in the background and reports through
// listener. The request timeout bounds the whole dispatch including retries.
// Cancellation, whether through Cancel or the parent context, suppresses
// both callbacks; an operation already delivering at cancel time may still
// complete (best effort).
func (c *NetworkClient) Send(ctx context.Context, req Requester, cfg *Configuration, listener ResponseListener) {
	go c.dispatch(ctx, req, cfg, listener)
}

// Cancel aborts every queued or in-flight operation tagged with the
// request's identity. No-op when none are outstanding.
func (c *NetworkClient) Cancel(req Requester) {
	c.mu.Lock()
	ops := c.inflight[req.ID()]
	delete(c.inflight, req.ID())
	c.mu.Unlock()

	for op := range ops {
		op.cancelled.Store(true)
		op.cancel()
	}
	if len(ops) > 0 {
		c.logger.Debug("cancelled ad request operations",
			zap.String("request_id", req.ID().String()),
			zap.Int("operations", len(ops)))
	}
}

func (c *NetworkClient) dispatch(ctx context.Context, req Requester, cfg *Configuration, listener ResponseListener) {
	start := time.Now()

	u, err := req.BuildURL(cfg)
	if err != nil {
		c.logger.Error("failed to build request URL", zap.Error(err))
		c.metrics.IncrementAdRequests("failure")
		listener.OnFailure(CodeNetworkError, err.Error())
		return
	}
	c.logger.Debug("dispatching ad request",
		zap.String("request_id", req.ID().String()),
		zap.String("url", u))

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	op := &operation{cancel: cancel}
	c.register(req.ID(), op)
	defer c.unregister(req.ID(), op)

	reqCtx, cancelTimeout := context.WithTimeout(opCtx, req.Timeout())
	defer cancelTimeout()

	var attempts int
	resp, err := backoff.Retry(reqCtx, func() (*AdResponse, error) {
		attempts++
		if attempts > 1 {
			c.metrics.IncrementRetries()
		}
		return c.fetch(reqCtx, u)
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(c.maxTries))

	c.metrics.RecordAdRequestLatency(time.Since(start))

	if err != nil {
		if op.cancelled.Load() || ctx.Err() != nil {
			// Cancelled loads deliver no callback at all.
			c.logger.Debug("ad request cancelled",
				zap.String("request_id", req.ID().String()))
			c.metrics.IncrementAdRequests("cancelled")
			return
		}
		te := classifyTransportError(err)
		c.logger.Warn("ad request failed",
			zap.String("request_id", req.ID().String()),
			zap.Int("code", te.Code),
			zap.Error(err))
		c.metrics.IncrementAdRequests("failure")
		listener.OnFailure(te.Code, te.Message)
		return
	}

	c.logger.Debug("ad request succeeded",
		zap.String("request_id", req.ID().String()),
		zap.Duration("elapsed", time.Since(start)))
	c.metrics.IncrementAdRequests("success")
	listener.OnSuccess(resp)
}

// fetch performs a single GET attempt. Transient failures (connection
// errors, timeouts, 5xx) are returned retryable; everything else is marked
// permanent so the retry loop stops immediately.
func (c *NetworkClient) fetch(ctx context.Context, u string) (*AdResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		serr := &statusError{code: resp.StatusCode, message: string(body)}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	parsed, perr := ParseAdResponse(body)
	if perr != nil {
		return nil, backoff.Permanent(&TransportError{Code: CodeParseError, Message: perr.Error()})
	}
	return parsed, nil
}

func (c *NetworkClient) register(id uuid.UUID, op *operation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := c.inflight[id]
	if ops == nil {
		ops = make(map[*operation]struct{})
		c.inflight[id] = ops
	}
	ops[op] = struct{}{}
}

func (c *NetworkClient) unregister(id uuid.UUID, op *operation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := c.inflight[id]
	delete(ops, op)
	if len(ops) == 0 {
		delete(c.inflight, id)
	}
}
