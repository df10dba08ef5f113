package api

import (
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"remittance-escrow-go/internal/config"
	"remittance-escrow-go/internal/models"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// authenticator turns a verified bearer token's subject into the caller
// identity. Requests without a token continue anonymously; the remittance
// service decides whether an anonymous caller is acceptable.
type authenticator struct {
	secret []byte
	issuer string
}

func newAuthenticator(secret, issuer string) *authenticator {
	return &authenticator{secret: []byte(strings.TrimSpace(secret)), issuer: issuer}
}

func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "malformed authorization header", Code: "invalid_token"})
			return
		}

		subject, err := a.subject(strings.TrimSpace(token))
		if err != nil {
			zap.L().Debug("Rejected bearer token",
				zap.String("request_id", w.Header().Get(requestIDHeader)),
				zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token", Code: "invalid_token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithCaller(r.Context(), subject)))
	})
}

func (a *authenticator) subject(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("bearer auth not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(time.Minute),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

// rateLimiter keeps a token bucket per client: the caller identity when
// authenticated, the remote IP otherwise. Once maxVisitors buckets are live,
// unseen clients share one overflow bucket until a sweep frees space.
type rateLimiter struct {
	perSecond rate.Limit
	burst     int
	proxies   *proxyTrust

	mu        sync.Mutex
	visitors  map[string]*visitor
	overflow  *rate.Limiter
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	visitorIdleTTL = 10 * time.Minute
	maxVisitors    = 10_000
)

func newRateLimiter(requestsPerMinute float64, burst int, proxies *proxyTrust) *rateLimiter {
	perSecond := requestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	if proxies == nil {
		proxies = &proxyTrust{}
	}
	return &rateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		proxies:   proxies,
		visitors:  make(map[string]*visitor),
		overflow:  rate.NewLimiter(rate.Limit(perSecond), burst),
		now:       time.Now,
	}
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter(l.proxies.clientID(r)).Allow() {
			writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{Error: "too many requests", Code: "throttled"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) limiter(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[id]
	if !ok && (now.Sub(l.lastSweep) > visitorIdleTTL || len(l.visitors) >= maxVisitors) {
		l.sweep(now)
	}
	if !ok {
		if len(l.visitors) >= maxVisitors {
			return l.overflow
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *rateLimiter) sweep(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

// proxyTrust decides whether forwarding headers on a request are believed.
// With no trusted proxies the socket peer is always the client.
type proxyTrust struct {
	prefixes []netip.Prefix
}

func newProxyTrust(entries []string) *proxyTrust {
	p := &proxyTrust{}
	for _, entry := range entries {
		prefix, err := config.ParseProxy(entry)
		if err != nil {
			zap.L().Warn("Ignoring trusted proxy entry", zap.String("entry", entry), zap.Error(err))
			continue
		}
		p.prefixes = append(p.prefixes, prefix)
	}
	return p
}

func (p *proxyTrust) trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (p *proxyTrust) clientID(r *http.Request) string {
	if caller := models.CallerFromContext(r.Context()); caller != "" {
		return "caller:" + caller
	}

	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !p.trusts(peer) {
		return "ip:" + peer
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return "ip:" + ip
	}
	// the right-most hop that is not one of our proxies is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !p.trusts(hop) {
				return "ip:" + hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return "ip:" + first
		}
	}
	return "ip:" + peer
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	return &httpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remittance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"method", "route", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remittance",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (m *httpMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
