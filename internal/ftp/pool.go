package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	goftp "github.com/jlaffaye/ftp"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	"github.com/dl-alexandre/ftpfetch/internal/logging"
	"github.com/dl-alexandre/ftpfetch/internal/sync/scanner"
	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

// Pool lends out at most size sessions at a time. It satisfies
// scanner.Lister and executor.Fetcher.
type Pool struct {
	cfg    Config
	dial   Dialer
	logger logging.Logger

	idle  chan Conn
	slots chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool that dials with cfg.
func NewPool(cfg Config, size int, logger logging.Logger) *Pool {
	return NewPoolWithDialer(cfg, size, NewDialer(cfg), logger)
}

// NewPoolWithDialer creates a pool that opens sessions with dial.
func NewPoolWithDialer(cfg Config, size int, dial Dialer, logger logging.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Duration(utils.DefaultRetryDelayMs) * time.Millisecond
	}
	return &Pool{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
		idle:   make(chan Conn, size),
		slots:  make(chan struct{}, size),
	}
}

func (p *Pool) acquire(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.New("ftp pool is closed")
	}

	select {
	case c := <-p.idle:
		return c, nil
	default:
	}

	select {
	case c := <-p.idle:
		return c, nil
	case p.slots <- struct{}{}:
		p.logger.Debug("Opening FTP session", logging.F("server", p.cfg.String()))
		c, err := p.dial(ctx)
		if err != nil {
			<-p.slots
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns c to the pool, or drops it when the session is unusable.
func (p *Pool) release(c Conn, broken bool) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if broken || closed {
		_ = c.Quit()
		<-p.slots
		return
	}
	p.idle <- c
}

// Close logs out of every idle session. Sessions still lent out are closed
// when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case c := <-p.idle:
			if err := c.Quit(); err != nil {
				errs = append(errs, err)
			}
			<-p.slots
		default:
			return errors.Join(errs...)
		}
	}
}

// List returns the immediate children of remotePath.
func (p *Pool) List(ctx context.Context, remotePath string) ([]scanner.Item, error) {
	return withRetry(ctx, p, "list", remotePath, syncerr.IsRetryableFTP, func(c Conn) ([]scanner.Item, error) {
		entries, err := c.List(remotePath)
		if err != nil {
			return nil, err
		}
		items := make([]scanner.Item, 0, len(entries))
		for _, e := range entries {
			items = append(items, toItem(e))
		}
		return items, nil
	})
}

// Fetch streams remotePath into w. A transfer that already wrote bytes is
// not retried, since w cannot be rewound.
func (p *Pool) Fetch(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	var written int64
	canRetry := func(err error) bool {
		return written == 0 && syncerr.IsRetryableFTP(err)
	}
	return withRetry(ctx, p, "retr", remotePath, canRetry, func(c Conn) (int64, error) {
		r, err := c.Retr(remotePath)
		if err != nil {
			return 0, err
		}
		n, copyErr := io.Copy(w, r)
		written += n
		closeErr := r.Close()
		if copyErr != nil {
			return written, copyErr
		}
		if closeErr != nil {
			return written, closeErr
		}
		return written, nil
	})
}

func toItem(e *goftp.Entry) scanner.Item {
	item := scanner.Item{
		Name:    e.Name,
		Size:    int64(e.Size),
		ModTime: e.Time,
	}
	switch e.Type {
	case goftp.EntryTypeFile:
		item.Kind = scanner.ItemFile
	case goftp.EntryTypeFolder:
		item.Kind = scanner.ItemDir
	case goftp.EntryTypeLink:
		item.Kind = scanner.ItemLink
	default:
		item.Kind = scanner.ItemOther
	}
	return item
}

// sessionBroken reports whether the control connection should be dropped
// after err. Permanent replies leave the session usable.
func sessionBroken(err error) bool {
	if err == nil {
		return false
	}
	code := syncerr.FTPStatus(err)
	return code == 0 || code == 421
}

// withRetry runs fn on a pooled session, retrying transient failures with
// exponential backoff on a fresh or idle session.
func withRetry[T any](ctx context.Context, p *Pool, op, path string, canRetry func(error) bool, fn func(Conn) (T, error)) (T, error) {
	var result T
	var lastErr error

	logger := p.logger.WithContext(ctx)
	start := time.Now()

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying FTP operation",
				logging.F("op", op),
				logging.F("path", path),
				logging.F("attempt", attempt),
				logging.F("maxRetries", p.cfg.MaxRetries),
			)
		}

		c, err := p.acquire(ctx)
		if err != nil {
			lastErr = err
			op := op
			if syncerr.FTPStatus(err) == 530 {
				op = "login"
			}
			if !syncerr.IsRetryableFTP(err) {
				return result, syncerr.ClassifyFTPError(op, path, err, p.logger)
			}
		} else {
			result, lastErr = fn(c)
			p.release(c, sessionBroken(lastErr))
			if lastErr == nil {
				logger.Debug("FTP operation completed",
					logging.F("op", op),
					logging.F("path", path),
					logging.F("duration_ms", time.Since(start).Milliseconds()),
					logging.F("attempts", attempt+1),
				)
				return result, nil
			}
			if !canRetry(lastErr) {
				return result, syncerr.ClassifyFTPError(op, path, lastErr, p.logger)
			}
		}

		if attempt < p.cfg.MaxRetries {
			delay := calculateBackoff(p.cfg.RetryDelay, attempt)
			logger.Warn("FTP operation failed (retryable)",
				logging.F("op", op),
				logging.F("attempt", attempt+1),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	logger.Error("FTP operation failed after max retries",
		logging.F("op", op),
		logging.F("path", path),
		logging.F("attempts", p.cfg.MaxRetries+1),
		logging.F("error", lastErr.Error()),
	)
	return result, syncerr.ClassifyFTPError(op, path, fmt.Errorf("after %d attempts: %w", p.cfg.MaxRetries+1, lastErr), p.logger)
}

// calculateBackoff returns base * 2^attempt, capped, with +-25% jitter.
func calculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))

	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond
	if delay > maxDelay {
		delay = maxDelay
	}

	jitterRange := delay / 4
	if jitterRange > 0 {
		jitter := time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
		delay += jitter
	}

	if delay < 0 {
		delay = baseDelay
	}
	return delay
}
