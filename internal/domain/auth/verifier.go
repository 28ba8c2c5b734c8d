package auth

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/seadrift/dive-insights/pkg/errors"
)

// Claims is the verified identity attached to a request. UserID is the only
// field the pipeline relies on.
type Claims struct {
	UserID string
	Email  string
}

// Verifier validates a bearer token and extracts the caller's identity.
// Account management lives elsewhere; this service only verifies.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Config selects the verification strategy: a shared HS256 secret, or OIDC
// issuer discovery when Issuer is set.
type Config struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type hs256Verifier struct {
	secret   []byte
	audience string
}

// NewHS256Verifier validates tokens signed with a shared secret.
func NewHS256Verifier(cfg Config) Verifier {
	return &hs256Verifier{secret: []byte(cfg.JWTSecret), audience: cfg.Audience}
}

func (v *hs256Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Wrap("invalid_token", "unexpected signing method", nil)
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Claims{}, apperrors.Wrap("invalid_token", "token verification failed", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperrors.Wrap("invalid_token", "unexpected claims type", nil)
	}
	if v.audience != "" {
		if audOK := hasAudience(mapClaims, v.audience); !audOK {
			return Claims{}, apperrors.Wrap("invalid_token", "audience mismatch", nil)
		}
	}

	subject, _ := mapClaims["sub"].(string)
	if strings.TrimSpace(subject) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token subject missing", nil)
	}
	email, _ := mapClaims["email"].(string)
	return Claims{UserID: subject, Email: email}, nil
}

func hasAudience(claims jwt.MapClaims, want string) bool {
	audiences, err := claims.GetAudience()
	if err != nil {
		return false
	}
	for _, aud := range audiences {
		if aud == want {
			return true
		}
	}
	return false
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier validates tokens against a discovered OIDC issuer. The
// provider fetch requires network access, so construction can fail.
func NewOIDCVerifier(ctx context.Context, cfg Config) (Verifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, apperrors.Wrap("auth_error", "oidc provider discovery failed", err)
	}
	oidcCfg := &oidc.Config{ClientID: cfg.Audience}
	if cfg.Audience == "" {
		oidcCfg.SkipClientIDCheck = true
	}
	return &oidcVerifier{verifier: provider.Verifier(oidcCfg)}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "token verification failed", err)
	}
	var extra struct {
		Email string `json:"email"`
	}
	_ = idToken.Claims(&extra)
	if strings.TrimSpace(idToken.Subject) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token subject missing", nil)
	}
	return Claims{UserID: idToken.Subject, Email: extra.Email}, nil
}
