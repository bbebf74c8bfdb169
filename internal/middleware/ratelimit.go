package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/marketchat/internal/metrics"
)

// Quota is how often one caller may invoke a method.
type Quota struct {
	PerMinute int
	Burst     int
}

func (q Quota) limiter() *rate.Limiter {
	perMinute := q.PerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := q.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

type bucketKey struct {
	method string
	caller string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterStore keeps a token bucket per method and caller. Methods without a
// quota are never limited. Buckets idle for longer than the sweep window are
// forgotten.
type LimiterStore struct {
	quotas    map[string]Quota
	idleAfter time.Duration

	mu      sync.Mutex
	buckets map[bucketKey]*bucket

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLimiterStore applies quotas, keyed by full gRPC method name, and sweeps
// idle buckets every sweepEvery.
func NewLimiterStore(quotas map[string]Quota, sweepEvery time.Duration) *LimiterStore {
	s := &LimiterStore{
		quotas:    quotas,
		idleAfter: 10 * time.Minute,
		buckets:   make(map[bucketKey]*bucket),
		stopCh:    make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

func (s *LimiterStore) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now().Add(-s.idleAfter))
		case <-s.stopCh:
			return
		}
	}
}

func (s *LimiterStore) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, k)
		}
	}
}

// Stop ends the sweeper. Safe to call more than once.
func (s *LimiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Limited reports whether method has a quota.
func (s *LimiterStore) Limited(method string) bool {
	_, ok := s.quotas[method]
	return ok
}

// Allow takes one token from caller's bucket for method.
func (s *LimiterStore) Allow(method, caller string) bool {
	q, ok := s.quotas[method]
	if !ok {
		return true
	}

	key := bucketKey{method: method, caller: caller}
	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: q.limiter()}
		s.buckets[key] = b
	}
	b.lastSeen = time.Now()
	s.mu.Unlock()

	return b.limiter.Allow()
}

// KeyFunc names the caller a request is charged to.
type KeyFunc func(ctx context.Context, req any) string

// PeerKey charges requests to the remote address.
func PeerKey(ctx context.Context, _ any) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "unknown"
}

// RateLimitUnaryInterceptor rejects calls over their method's quota with
// ResourceExhausted. An empty key falls back to the remote peer.
func RateLimitUnaryInterceptor(store *LimiterStore, key KeyFunc) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !store.Limited(info.FullMethod) {
			return handler(ctx, req)
		}

		caller := ""
		if key != nil {
			caller = key(ctx, req)
		}
		if caller == "" {
			caller = PeerKey(ctx, req)
		}

		if !store.Allow(info.FullMethod, caller) {
			metrics.RateLimitHits.WithLabelValues(info.FullMethod).Inc()
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}
