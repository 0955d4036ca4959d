package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/dependencies/ids"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", model.ErrAuthenticationRequired)
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

var handlePattern = regexp.MustCompile(`^[a-z0-9_-]{3,32}$`)

// Claims are the JWT claims of a rider token
type Claims struct {
	jwt.RegisteredClaims
	Handle string `json:"handle"`
}

// RiderID returns the authenticated rider
func (c *Claims) RiderID() model.RiderID {
	return model.RiderID(c.Subject)
}

// Session is the result of a successful register or login
type Session struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Rider     *model.RiderProfile `json:"rider"`
}

// Config holds configuration for the auth service
type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:   "dev-insecure-secret-change-me",
		TokenTTL: 24 * time.Hour,
		Issuer:   "skateduel",
	}
}

// Service issues and validates stateless bearer tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	secret  []byte
	ttl     time.Duration
	issuer  string
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TokenTTL,
		issuer:  cfg.Issuer,
	}
}

// NormalizeHandle canonicalizes a handle; a rider's id is their handle
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// Register creates credentials for a handle and returns a session. A rider
// profile that already exists under the handle, e.g. from being challenged
// to a match, is claimed rather than replaced.
func (s *Service) Register(ctx context.Context, handle, password, country string) (*Session, error) {
	handle = NormalizeHandle(handle)
	if !handlePattern.MatchString(handle) {
		return nil, model.NewValidationError("handle must be 3-32 characters of a-z, 0-9, _ or -")
	}
	if len(password) < MinPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := model.RiderID(handle)
	creds := &model.RiderCredentials{
		RiderID:      id,
		Handle:       handle,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := s.storage.CreateCredentials(ctx, creds); err != nil {
		return nil, err
	}

	rider, err := s.storage.EnsureRider(ctx, model.NewRiderProfile(id, handle, strings.ToUpper(strings.TrimSpace(country)), now))
	if err != nil {
		return nil, err
	}

	return s.createSession(rider)
}

// Login checks a handle and password and returns a session
func (s *Service) Login(ctx context.Context, handle, password string) (*Session, error) {
	creds, err := s.storage.GetCredentialsByHandle(ctx, NormalizeHandle(handle))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	rider, err := s.storage.GetRider(ctx, creds.RiderID)
	if err != nil {
		return nil, err
	}

	return s.createSession(rider)
}

// GetRider returns a rider's public profile
func (s *Service) GetRider(ctx context.Context, id model.RiderID) (*model.RiderProfile, error) {
	return s.storage.GetRider(ctx, model.RiderID(NormalizeHandle(string(id))))
}

// ValidateToken parses a bearer token and returns its claims
func (s *Service) ValidateToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) createSession(rider *model.RiderProfile) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(rider.ID),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        s.ids.NewID(),
		},
		Handle: rider.Handle,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expires, Rider: rider}, nil
}
