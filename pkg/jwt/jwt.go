package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// DefaultTTL is the lifetime of issued tenant tokens when none is configured.
const DefaultTTL = time.Hour

// Config holds token settings loaded from the environment.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`          // SigningKey is the HS256 secret, at least 32 bytes recommended.
	Issuer     string        `env:"JWT_ISSUER" envDefault:"tenantkit"` // Issuer is written to and required in the iss claim.
	TTL        time.Duration `env:"JWT_TTL" envDefault:"1h"`           // TTL is the lifetime of issued tokens.
}

// TenantClaims is the claim set carried by tenant-scoped tokens.
type TenantClaims struct {
	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	gojwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the issuer written to tokens and required on verification.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a token service with the provided signing key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	s := &Service{
		signingKey: signingKey,
		ttl:        DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromConfig creates a token service from environment configuration.
func NewFromConfig(cfg Config) (*Service, error) {
	return New([]byte(cfg.SigningKey), WithIssuer(cfg.Issuer), WithTTL(cfg.TTL))
}

// Generate signs the claims with HS256.
func (s *Service) Generate(claims gojwt.Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the token signature and temporal claims and decodes it into claims.
// Only HS256 is accepted regardless of the alg header.
func (s *Service) Parse(tokenString string, claims gojwt.Claims) error {
	if claims == nil {
		return ErrMissingClaims
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	_, err := gojwt.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}

// IssueTenantToken issues a token bound to the tenant identity.
func (s *Service) IssueTenantToken(id tenant.Identity, subject string) (string, error) {
	if id.IsZero() {
		return "", ErrMissingTenant
	}

	now := time.Now()
	claims := TenantClaims{
		TenantID:   id.ID.String(),
		TenantSlug: id.Slug,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return s.Generate(claims)
}

// VerifyTenant verifies the token and returns its tenant claims.
// It implements tenant.TokenVerifier.
func (s *Service) VerifyTenant(tokenString string) (tenant.Claims, error) {
	var claims TenantClaims
	if err := s.Parse(tokenString, &claims); err != nil {
		return tenant.Claims{}, err
	}

	id, err := uuid.Parse(claims.TenantID)
	if err != nil || id == uuid.Nil {
		return tenant.Claims{}, ErrMissingTenant
	}
	return tenant.Claims{TenantID: id, TenantSlug: claims.TenantSlug}, nil
}
