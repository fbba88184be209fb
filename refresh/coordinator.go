package refresh

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
)

const (
	// DefaultRefreshPath is the token refresh endpoint.
	DefaultRefreshPath = "/api/auth/refresh/"
	// DefaultBuffer triggers an early refresh when a JWT access token is
	// this close to its exp claim.
	DefaultBuffer = 30 * time.Second
)

// Sender is the dispatcher surface the coordinator drives.
type Sender interface {
	Send(ctx context.Context, spec *httpclient.RequestConfig) (dto.Response, error)
}

type State int

const (
	StateIdle State = iota
	StateRefreshing
	StateFailed
)

// SessionEvent is emitted exactly once per terminal refresh failure so the
// caller can drop to the login screen.
type SessionEvent struct {
	Reason string
	At     time.Time
}

type outcome struct {
	resp dto.Response
	err  error
}

// pendingRecord is one request that hit 401 while a refresh was (or became)
// in flight. It is replayed at most once and never re-queued.
type pendingRecord struct {
	ctx       context.Context
	spec      *httpclient.RequestConfig
	done      chan outcome
	cancelled atomic.Bool
}

func (r *pendingRecord) resolve(out outcome) {
	// done is buffered; the waiter may already have left on cancellation.
	select {
	case r.done <- out:
	default:
	}
}

// Coordinator owns the credential refresh lifecycle. It is the only writer of
// the access token outside explicit login/logout. All requests flow through
// Do: on a 401 the first failing request starts exactly one refresh call,
// later 401s queue behind it, and the queue is replayed FIFO with the new
// credential, each record exactly once.
type Coordinator struct {
	sender      Sender
	creds       dto.CredentialStore
	refreshPath string
	buffer      time.Duration
	log         zerolog.Logger

	mu    sync.Mutex
	state State
	queue []*pendingRecord
	// generation counts successful refreshes so a 401 raced by a completed
	// refresh replays with the new credential instead of starting another
	// refresh cycle.
	generation uint64

	muListeners sync.Mutex
	listeners   []chan SessionEvent
}

func NewCoordinator(sender Sender, creds dto.CredentialStore, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		sender:      sender,
		creds:       creds,
		refreshPath: DefaultRefreshPath,
		buffer:      DefaultBuffer,
		log:         log,
	}
}

func (c *Coordinator) WithRefreshPath(path string) *Coordinator {
	c.refreshPath = path
	return c
}

func (c *Coordinator) WithBuffer(d time.Duration) *Coordinator {
	c.buffer = d
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset returns the coordinator to Idle after a successful login.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
}

// Do dispatches one request with expiry handling. The returned error is
// always a classified *faults.Failure when non-nil.
func (c *Coordinator) Do(ctx context.Context, spec *httpclient.RequestConfig) (dto.Response, error) {
	if !spec.SkipAuth {
		c.ensureFresh(ctx)
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	resp, err := c.sender.Send(ctx, spec)
	if err == nil || spec.SkipAuth || !faults.Is(err, faults.KindUnauthorized) {
		return resp, err
	}
	return c.enqueueAndWait(ctx, spec, gen)
}

// enqueueAndWait queues the failed request behind the (possibly just
// started) refresh and blocks until it is replayed or the session ends.
func (c *Coordinator) enqueueAndWait(ctx context.Context, spec *httpclient.RequestConfig, gen uint64) (dto.Response, error) {
	rec := &pendingRecord{ctx: ctx, spec: spec, done: make(chan outcome, 1)}

	c.mu.Lock()
	if c.generation != gen && c.state == StateIdle {
		// The credential was already refreshed while this request was in
		// flight; replay directly, no second refresh cycle.
		c.mu.Unlock()
		c.replay(rec)
		out := <-rec.done
		return out.resp, out.err
	}
	switch c.state {
	case StateFailed:
		c.mu.Unlock()
		return dto.Response{}, faults.SessionExpired(errors.New("session already ended"))
	case StateRefreshing:
		c.queue = append(c.queue, rec)
		c.mu.Unlock()
	default: // StateIdle: this request starts the single refresh
		c.state = StateRefreshing
		c.queue = append(c.queue, rec)
		c.mu.Unlock()
		go c.runRefresh(ctx)
	}

	select {
	case out := <-rec.done:
		return out.resp, out.err
	case <-ctx.Done():
		rec.cancelled.Store(true)
		return dto.Response{}, faults.Cancelled(ctx.Err())
	}
}

// runRefresh issues the single in-flight refresh call and then drains the
// queue. It must only be entered from a StateIdle -> StateRefreshing
// transition.
func (c *Coordinator) runRefresh(trigger context.Context) {
	// The refresh outcome is shared by every queued request, so it must not
	// die with whichever caller happened to start it.
	ctx := context.WithoutCancel(trigger)

	pair, ok := c.creds.Get()
	if !ok || pair.RefreshToken == "" {
		c.failSession(errors.New("no refresh credential"))
		return
	}

	var result dto.RefreshResult
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath(c.refreshPath).
		WithBody(map[string]interface{}{"refresh": pair.RefreshToken}).
		WithSkipAuth().
		WithInto(&result)

	if _, err := c.sender.Send(ctx, &spec); err != nil {
		c.failSession(err)
		return
	}
	if result.Access == "" {
		c.failSession(errors.New("refresh response missing access token"))
		return
	}

	pair.AccessToken = result.Access
	if err := c.creds.Set(pair); err != nil {
		c.log.Warn().Err(err).Msg("store refreshed credential")
	}

	c.mu.Lock()
	c.state = StateIdle
	c.generation++
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	c.log.Debug().Int("queued", len(queue)).Msg("credential refreshed, replaying queue")
	for _, rec := range queue {
		c.replay(rec)
	}
}

// replay re-dispatches one queued record with the new credential. A second
// 401 here is terminal: the record is never queued again.
func (c *Coordinator) replay(rec *pendingRecord) {
	if rec.cancelled.Load() || rec.ctx.Err() != nil {
		rec.resolve(outcome{err: faults.Cancelled(rec.ctx.Err())})
		return
	}

	resp, err := c.sender.Send(rec.ctx, rec.spec)
	if faults.Is(err, faults.KindUnauthorized) {
		err = faults.SessionExpired(err)
	}
	rec.resolve(outcome{resp: resp, err: err})
}

// failSession is the Refreshing -> Failed transition: every queued record is
// rejected, the credential store is cleared, and the session-ended signal
// goes out once.
func (c *Coordinator) failSession(cause error) {
	c.mu.Lock()
	c.state = StateFailed
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	if err := c.creds.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("clear credentials after refresh failure")
	}
	c.log.Info().Err(cause).Msg("session ended, refresh rejected")
	c.emit(SessionEvent{Reason: "refresh_failed", At: time.Now()})

	for _, rec := range queue {
		rec.resolve(outcome{err: faults.SessionExpired(cause)})
	}
}

// ensureFresh refreshes proactively when the access token is a JWT whose exp
// is inside the buffer. Reactive 401 handling remains authoritative; opaque
// tokens simply skip this.
func (c *Coordinator) ensureFresh(ctx context.Context) {
	pair, ok := c.creds.Get()
	if !ok || pair.RefreshToken == "" {
		return
	}
	exp, ok := tokenExpiry(pair.AccessToken)
	if !ok || time.Until(exp) > c.buffer {
		return
	}

	c.mu.Lock()
	if c.state != StateIdle {
		// A refresh is already in flight (or the session ended); the
		// request will queue on 401 like any other.
		c.mu.Unlock()
		return
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	// Synchronous: the caller should go out with the fresh credential.
	c.runRefresh(ctx)
}
