package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ViewGateway records view events against the remote service.
type ViewGateway interface {
	RecordView(ctx context.Context, token, postID, userID string) error
}

// ViewRecorderConfig controls the concurrency characteristics of the recorder.
type ViewRecorderConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

type viewEvent struct {
	postID string
	userID string
	token  string
}

// ViewRecorder dispatches post-view events through a background worker pool.
// Recording is best-effort: it never blocks the caller, and events are
// dropped when the queue is full.
type ViewRecorder struct {
	gateway ViewGateway
	session Session
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan viewEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewViewRecorder starts the worker pool.
func NewViewRecorder(gateway ViewGateway, session Session, cfg ViewRecorderConfig, logger *slog.Logger) *ViewRecorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &ViewRecorder{
		gateway: gateway,
		session: session,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan viewEvent, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Record enqueues a view event for the current viewer. It reports whether
// the event was accepted; a full queue or a closed recorder drops it.
func (r *ViewRecorder) Record(postID string) bool {
	user, tokens, active := r.session.Current()
	if !active {
		return false
	}

	event := viewEvent{postID: postID, userID: user.ID, token: tokens.AccessToken}

	select {
	case <-r.ctx.Done():
		return false
	case r.jobs <- event:
		return true
	default:
		r.logger.Debug("view queue full, dropping event", "postId", postID)
		return false
	}
}

// Shutdown stops accepting events and waits for in-flight deliveries.
func (r *ViewRecorder) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
		close(r.jobs)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *ViewRecorder) worker() {
	defer r.wg.Done()

	for event := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.gateway.RecordView(ctx, event.token, event.postID, event.userID); err != nil {
			r.logger.Warn("record view", "postId", event.postID, "error", err)
		}
		cancel()
	}
}
