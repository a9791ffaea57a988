// Package retryqueue keeps mutating API calls that could not reach the server
// and replays them, oldest first, once connectivity returns.
//
// Delivery is at-least-once. Every queued request carries an idempotency key
// so the server can recognize a replay of a request it already applied.
package retryqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"

	"github.com/google/uuid"
)

// ErrQueued is returned by Do when a mutation could not be sent and was
// stored for later delivery.
var ErrQueued = errors.New("request queued for later delivery")

// Item is one pending mutation.
type Item struct {
	ID             uuid.UUID
	Operation      string
	Method         string
	Path           string
	Payload        json.RawMessage
	IdempotencyKey string
	EnqueuedAt     time.Time
	RetryCount     int
}

// Request describes one API call.
type Request struct {
	// Operation names the intent, e.g. "create_order"; kept for logs.
	Operation      string          `json:"operation"`
	Method         string          `json:"method"`
	Path           string          `json:"path"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type Response struct {
	StatusCode int
	Body       []byte
}

// Sender performs a request. A non-nil error means the server was not
// reached; any HTTP response, including error statuses, is returned as is.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// RejectedError is an application-level refusal by the server.
type RejectedError struct {
	StatusCode int
	Body       []byte
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request rejected with status %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	RetryDelay time.Duration
	MaxRetries int
}

type Queue struct {
	store      *Store
	sender     Sender
	logger     logger.Logger
	retryDelay time.Duration
	maxRetries int

	online   atomic.Bool
	draining sync.Mutex
	wake     chan struct{}
}

func New(store *Store, sender Sender, logger logger.Logger, opts Options) *Queue {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	q := &Queue{
		store:      store,
		sender:     sender,
		logger:     logger,
		retryDelay: opts.RetryDelay,
		maxRetries: opts.MaxRetries,
		wake:       make(chan struct{}, 1),
	}
	q.online.Store(true)
	return q
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// Do sends req. Reads are passed through untouched. A mutation that fails at
// the network level is enqueued and ErrQueued is returned; an error response
// from the server comes back as *RejectedError and is not queued.
func (q *Queue) Do(ctx context.Context, req Request) (*Response, error) {
	if !isMutation(req.Method) {
		return q.send(ctx, req)
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	resp, err := q.sender.Send(ctx, req)
	if err != nil {
		q.SetOnline(false)
		if _, qerr := q.Enqueue(ctx, req); qerr != nil {
			return nil, fmt.Errorf("failed to queue request after network error %v: %w", err, qerr)
		}
		return nil, ErrQueued
	}
	q.SetOnline(true)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func (q *Queue) send(ctx context.Context, req Request) (*Response, error) {
	resp, err := q.sender.Send(ctx, req)
	if err != nil {
		q.SetOnline(false)
		return nil, err
	}
	q.SetOnline(true)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

// Enqueue stores req at the tail. When online it also kicks the drain loop.
func (q *Queue) Enqueue(ctx context.Context, req Request) (Item, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	item := Item{
		ID:             uuid.New(),
		Operation:      req.Operation,
		Method:         req.Method,
		Path:           req.Path,
		Payload:        req.Payload,
		IdempotencyKey: req.IdempotencyKey,
		EnqueuedAt:     time.Now().UTC(),
	}
	if err := q.store.Append(ctx, item); err != nil {
		return Item{}, err
	}

	q.logger.Info("retry_item_queued", "Request queued for later delivery", "", map[string]interface{}{
		"item_id":   item.ID.String(),
		"operation": item.Operation,
	})

	if q.Online() {
		q.trigger()
	}
	return item, nil
}

func (q *Queue) Online() bool {
	return q.online.Load()
}

// SetOnline records connectivity. Going from offline to online starts a drain.
func (q *Queue) SetOnline(online bool) {
	was := q.online.Swap(online)
	if online && !was {
		q.logger.Info("connectivity_restored", "Connectivity restored", "", nil)
		q.trigger()
	}
}

func (q *Queue) Depth(ctx context.Context) (int, error) {
	return q.store.Count(ctx)
}

func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	return q.store.List(ctx)
}

func (q *Queue) Clear(ctx context.Context) error {
	return q.store.Clear(ctx)
}

func (q *Queue) trigger() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run drains whenever a trigger fires, until ctx is canceled.
func (q *Queue) Run(ctx context.Context) error {
	q.trigger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.wake:
			if err := q.Drain(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error("drain_failed", "Queue drain stopped", "", nil, err)
			}
		}
	}
}

// Drain replays queued items strictly in order, one at a time. Only one drain
// runs at a time; a call made while another is active returns immediately.
func (q *Queue) Drain(ctx context.Context) error {
	if !q.draining.TryLock() {
		return nil
	}
	defer q.draining.Unlock()

	for {
		item, err := q.store.Head(ctx)
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}

		resp, err := q.sender.Send(ctx, Request{
			Operation:      item.Operation,
			Method:         item.Method,
			Path:           item.Path,
			Payload:        item.Payload,
			IdempotencyKey: item.IdempotencyKey,
		})

		switch {
		case err == nil && resp.StatusCode < http.StatusBadRequest:
			q.online.Store(true)
			if err := q.store.Remove(ctx, item.ID); err != nil {
				return err
			}
			q.logger.Info("retry_item_sent", "Queued request delivered", "", map[string]interface{}{
				"item_id":   item.ID.String(),
				"operation": item.Operation,
			})

		case err == nil && resp.StatusCode < http.StatusInternalServerError:
			// the server refused it; replaying will not change the answer
			if err := q.store.Remove(ctx, item.ID); err != nil {
				return err
			}
			q.logger.Error("retry_item_rejected", "Queued request rejected by server, dropped", "", map[string]interface{}{
				"item_id":     item.ID.String(),
				"operation":   item.Operation,
				"status_code": resp.StatusCode,
			}, &RejectedError{StatusCode: resp.StatusCode, Body: resp.Body})

		default:
			if err == nil {
				err = &RejectedError{StatusCode: resp.StatusCode, Body: resp.Body}
			}
			if stop, ferr := q.fail(ctx, item, err); stop || ferr != nil {
				return ferr
			}
		}
	}
}

// fail counts a failed attempt on the head item. It drops the item once the
// retry budget is spent, otherwise it waits retryDelay before the next try.
// stop reports that ctx ended while waiting.
func (q *Queue) fail(ctx context.Context, item *Item, cause error) (stop bool, err error) {
	n, err := q.store.IncrementRetry(ctx, item.ID)
	if err != nil {
		return true, err
	}

	details := map[string]interface{}{
		"item_id":     item.ID.String(),
		"operation":   item.Operation,
		"retry_count": n,
	}
	if n >= q.maxRetries {
		if err := q.store.Remove(ctx, item.ID); err != nil {
			return true, err
		}
		q.logger.Error("retry_item_dropped", "Queued request dropped after repeated failures", "", details, cause)
		return false, nil
	}

	q.logger.Debug("retry_item_failed", cause.Error(), "", details)

	select {
	case <-ctx.Done():
		return true, nil
	case <-time.After(q.retryDelay):
		return false, nil
	}
}

// WatchConnectivity probes the API health endpoint every interval. A probe
// that reaches the server marks the queue online, which starts a drain.
func (q *Queue) WatchConnectivity(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = q.send(ctx, Request{Operation: "health_probe", Method: http.MethodGet, Path: "/healthz"})
		}
	}
}
