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
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/cafe-backend/api/responses"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
)

// Login and register bodies are tiny; anything past this is not inspected.
const maxPeekBytes = 64 << 10

// RateLimitStore is the fixed-window counter backend, normally Redis.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// RateLimitPolicy throttles one auth endpoint per client IP and per email.
// A zero limit disables that dimension; a zero window disables the policy.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) RateLimitPolicy {
	return RateLimitPolicy{Name: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit}
}

func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) RateLimitPolicy {
	return RateLimitPolicy{Name: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit}
}

func (p RateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

type limitCheck struct {
	dimension string
	subject   string
	limit     int
}

// AuthRateLimit rejects with 429 and Retry-After once a counter passes its
// limit. Counter failures are a 503; the request is not let through.
func AuthRateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			checks, err := policy.checksFor(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, c := range checks {
				key := store.RateLimitKey(policy.Name, c.dimension, c.subject)
				hits, err := store.IncrWithTTL(r.Context(), key, policy.Window)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit counter"))
					return
				}
				if hits > int64(c.limit) {
					blocked(r.Context(), logg, w, policy, c, hits)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checksFor peeks at the JSON body for an email and puts the bytes back for
// the handler.
func (p RateLimitPolicy) checksFor(r *http.Request) ([]limitCheck, error) {
	var checks []limitCheck
	if p.PerIP > 0 {
		if ip := clientIP(r); ip != "" {
			checks = append(checks, limitCheck{dimension: "ip", subject: ip, limit: p.PerIP})
		}
	}
	if p.PerEmail == 0 || r.Body == nil {
		return checks, nil
	}

	head, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &body) == nil {
		if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
			sum := sha256.Sum256([]byte(email))
			checks = append(checks, limitCheck{dimension: "email", subject: hex.EncodeToString(sum[:]), limit: p.PerEmail})
		}
	}
	return checks, nil
}

func blocked(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, p RateLimitPolicy, c limitCheck, hits int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    p.Name,
			"dimension": c.dimension,
			"subject":   c.subject,
			"hits":      hits,
			"limit":     c.limit,
		}), "auth.rate_limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP trusts the left-most X-Forwarded-For hop, which the load balancer sets.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
