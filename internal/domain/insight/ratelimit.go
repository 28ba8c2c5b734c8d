package insight

import (
	"context"
	"log/slog"
	"time"
)

// CreditDecision is the result of the atomic consume-credit operation.
type CreditDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   *time.Time
}

// CreditRepository performs the atomic credit consumption against the
// row-store.
type CreditRepository interface {
	ConsumeGenerationCredit(ctx context.Context, userID string, limit int, window time.Duration) (CreditDecision, error)
}

// RateLimitResult is returned when a request must be blocked.
type RateLimitResult struct {
	NextReset *time.Time
}

// RateLimiter gates insight generations per user.
type RateLimiter struct {
	repo   CreditRepository
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter constructs the limiter.
func NewRateLimiter(repo CreditRepository, cfg Config, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		repo:   repo,
		limit:  cfg.CreditLimit,
		window: cfg.CreditWindow,
		logger: logger.With("component", "insight.ratelimit"),
	}
}

// EnforceRateLimit consumes one generation credit. It returns nil when the
// request may proceed. Infrastructure errors fail OPEN: a store hiccup must
// not lock out legitimate users.
func (l *RateLimiter) EnforceRateLimit(ctx context.Context, userID string) *RateLimitResult {
	decision, err := l.repo.ConsumeGenerationCredit(ctx, userID, l.limit, l.window)
	if err != nil {
		l.logger.Warn("credit consumption failed, allowing request", "userId", userID, "error", err)
		return nil
	}
	if decision.Allowed {
		return nil
	}
	l.logger.Info("generation rate limit hit", "userId", userID, "limit", l.limit)
	return &RateLimitResult{NextReset: decision.ResetAt}
}
