package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubCreditRepo struct {
	consumeFn func(ctx context.Context, userID string, limit int, window time.Duration) (CreditDecision, error)
}

func (s *stubCreditRepo) ConsumeGenerationCredit(ctx context.Context, userID string, limit int, window time.Duration) (CreditDecision, error) {
	if s.consumeFn != nil {
		return s.consumeFn(ctx, userID, limit, window)
	}
	return CreditDecision{Allowed: true}, nil
}

func testLimiterConfig() Config {
	return Config{CreditLimit: 20, CreditWindow: 24 * time.Hour}
}

func TestEnforceRateLimit_Allowed(t *testing.T) {
	repo := &stubCreditRepo{
		consumeFn: func(ctx context.Context, userID string, limit int, window time.Duration) (CreditDecision, error) {
			require.Equal(t, "user-1", userID)
			require.Equal(t, 20, limit)
			require.Equal(t, 24*time.Hour, window)
			return CreditDecision{Allowed: true, Remaining: 19}, nil
		},
	}
	limiter := NewRateLimiter(repo, testLimiterConfig(), newTestLogger())

	require.Nil(t, limiter.EnforceRateLimit(context.Background(), "user-1"))
}

func TestEnforceRateLimit_Blocked(t *testing.T) {
	resetAt := time.Now().Add(6 * time.Hour)
	repo := &stubCreditRepo{
		consumeFn: func(ctx context.Context, userID string, limit int, window time.Duration) (CreditDecision, error) {
			return CreditDecision{Allowed: false, ResetAt: &resetAt}, nil
		},
	}
	limiter := NewRateLimiter(repo, testLimiterConfig(), newTestLogger())

	blocked := limiter.EnforceRateLimit(context.Background(), "user-1")
	require.NotNil(t, blocked)
	require.Equal(t, resetAt, *blocked.NextReset)
}

func TestEnforceRateLimit_FailsOpenOnStoreError(t *testing.T) {
	repo := &stubCreditRepo{
		consumeFn: func(ctx context.Context, userID string, limit int, window time.Duration) (CreditDecision, error) {
			return CreditDecision{}, errors.New("store down")
		},
	}
	limiter := NewRateLimiter(repo, testLimiterConfig(), newTestLogger())

	require.Nil(t, limiter.EnforceRateLimit(context.Background(), "user-1"))
}
