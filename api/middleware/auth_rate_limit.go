package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ramikart/ramikart-backend/api/responses"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/logger"
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy caps attempts on one auth surface inside a fixed
// window, counted per client address and per target account. A zero limit
// disables that dimension; a zero window disables the policy.
type AuthRateLimitPolicy struct {
	Surface  string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

func (p AuthRateLimitPolicy) scope(dimension, value string) string {
	surface := strings.ToLower(strings.TrimSpace(p.Surface))
	if surface == "" {
		surface = "auth"
	}
	return surface + ":" + dimension + ":" + value
}

// AuthRateLimit throttles credential-guessing traffic before it reaches the
// auth service. The address dimension stops broad scans from one host; the
// account dimension stops a distributed attack on one email. Emails are
// hashed before they become counter keys so addresses never land in redis.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.PerIP > 0 {
				if addr := remoteAddr(r); addr != "" {
					allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope("ip", addr), int64(policy.PerIP), policy.Window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check"))
						return
					}
					if !allowed {
						deny(ctx, logg, w, policy, "ip", count)
						return
					}
				}
			}

			if policy.PerEmail > 0 {
				account, err := accountFingerprint(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
					return
				}
				if account != "" {
					allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope("email", account), int64(policy.PerEmail), policy.Window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check"))
						return
					}
					if !allowed {
						deny(ctx, logg, w, policy, "email", count)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, dimension string, count int64) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"surface":        policy.Surface,
			"dimension":      dimension,
			"attempts":       count,
			"window_seconds": int(policy.Window.Seconds()),
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// accountFingerprint peeks at the JSON body for an email field and returns
// its hash. The body is restored so the handler can decode it again.
func accountFingerprint(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", nil
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return "", nil
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:]), nil
}

// remoteAddr resolves the client address, preferring proxy headers since the
// service runs behind a load balancer.
func remoteAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}
	if addr := strings.TrimSpace(r.Header.Get("X-Real-IP")); addr != "" {
		return addr
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
