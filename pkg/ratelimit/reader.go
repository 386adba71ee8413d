package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBurst keeps small limits from degrading into tiny reads
const minBurst = 64 * 1024

// Limiter is a token bucket shared by every copy of one backup run
type Limiter struct {
	mu    sync.Mutex
	rate  int64 // bytes per second
	burst int64 // bucket capacity
	avail int64
	last  time.Time
	now   func() time.Time
}

// NewLimiter returns a limiter for rate bytes per second, or nil when rate <= 0.
func NewLimiter(rate int64) *Limiter {
	if rate <= 0 {
		return nil
	}

	burst := rate
	if burst < minBurst {
		burst = minBurst
	}

	l := &Limiter{rate: rate, burst: burst, avail: burst, now: time.Now}
	l.last = l.now()
	return l
}

// Rate returns the configured bytes per second
func (l *Limiter) Rate() int64 {
	return l.rate
}

// Burst returns the largest single grant
func (l *Limiter) Burst() int64 {
	return l.burst
}

// Wait blocks until n bytes may be transferred or ctx is done.
// Requests larger than the burst are clamped to it.
func (l *Limiter) Wait(ctx context.Context, n int64) error {
	if n > l.burst {
		n = l.burst
	}

	for {
		l.mu.Lock()
		l.refill()
		if l.avail >= n {
			l.avail -= n
			l.mu.Unlock()
			return nil
		}
		delay := time.Duration(float64(n-l.avail) / float64(l.rate) * float64(time.Second))
		l.mu.Unlock()

		if delay < time.Millisecond {
			delay = time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refund returns unused tokens after a short read. Caller holds no lock.
func (l *Limiter) refund(n int64) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	l.avail += n
	if l.avail > l.burst {
		l.avail = l.burst
	}
	l.mu.Unlock()
}

// refill must be called with mu held
func (l *Limiter) refill() {
	now := l.now()
	earned := int64(now.Sub(l.last).Seconds() * float64(l.rate))
	if earned <= 0 {
		return
	}
	l.avail += earned
	if l.avail > l.burst {
		l.avail = l.burst
	}
	l.last = now
}

// Reader throttles reads from an underlying reader through a Limiter
type Reader struct {
	ctx     context.Context
	src     io.Reader
	limiter *Limiter
}

// NewReader wraps src; a nil limiter returns src unchanged.
func NewReader(ctx context.Context, src io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return src
	}
	return &Reader{ctx: ctx, src: src, limiter: limiter}
}

// Read implements io.Reader
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return r.src.Read(p)
	}

	want := int64(len(p))
	if want > r.limiter.burst {
		want = r.limiter.burst
	}
	if err := r.limiter.Wait(r.ctx, want); err != nil {
		return 0, err
	}

	n, err := r.src.Read(p[:want])
	r.limiter.refund(want - int64(n))
	return n, err
}

// ReadCloser is a Reader that also closes the underlying source
type ReadCloser struct {
	Reader
	closer io.Closer
}

// NewReadCloser wraps rc; a nil limiter returns rc unchanged.
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{
		Reader: Reader{ctx: ctx, src: rc, limiter: limiter},
		closer: rc,
	}
}

// Close implements io.Closer
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}
