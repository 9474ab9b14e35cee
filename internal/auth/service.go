package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/common"
)

const defaultAccessTTL = 8 * time.Hour

const roleClaim = "role"

// Store is the persistence surface the auth service needs.
type Store interface {
	GetByUsername(ctx context.Context, username string) (Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (Operator, error)
	Create(ctx context.Context, username, displayName, passwordHash, role string) (Operator, error)
}

// Service verifies operator credentials and issues access tokens. A till
// shift maps to one token; there is no refresh flow.
type Service struct {
	store     Store
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
}

// Config configures the auth service.
type Config struct {
	Store          Store
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// LoginResult bundles the operator and token material after a successful login.
type LoginResult struct {
	Operator     Operator  `json:"operator"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// Identity is the authenticated principal attached to request contexts.
type Identity struct {
	OperatorID string
	Role       string
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-pos"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "pos-terminal"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		store:     cfg.Store,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:   issuer,
		audience: audience,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Login verifies credentials and issues an access token. Failures are
// deliberately indistinguishable: unknown user, wrong password and disabled
// account all answer the same way.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, invalidCredentials(nil)
	}
	operator, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, invalidCredentials(err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, operator.passwordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials(err)
	}
	if !operator.Active {
		return LoginResult{}, invalidCredentials(nil)
	}
	token, expiry, err := s.signAccessToken(operator)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{Operator: operator, AccessToken: token, AccessExpiry: expiry}, nil
}

// Register creates a new operator account.
func (s *Service) Register(ctx context.Context, username, displayName, password, role string) (Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Operator{}, common.NewAppError("VALIDATION_ERROR", "username is required", 400, nil)
	}
	if len(password) < 8 {
		return Operator{}, common.NewAppError("VALIDATION_ERROR", "password must be at least 8 characters", 400, nil)
	}
	if role != RoleAdmin && role != RoleCashier {
		return Operator{}, common.NewAppError("VALIDATION_ERROR", "role must be admin or cashier", 400, nil)
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return Operator{}, fmt.Errorf("hash password: %w", err)
	}
	operator, err := s.store.Create(ctx, username, displayName, hash, role)
	if err != nil {
		return Operator{}, fmt.Errorf("create operator: %w", err)
	}
	return operator, nil
}

// Me fetches the authenticated operator.
func (s *Service) Me(ctx context.Context, operatorID string) (Operator, error) {
	id, err := uuid.Parse(strings.TrimSpace(operatorID))
	if err != nil {
		return Operator{}, common.NewAppError(common.CodeUnauthorized, "unauthorized", 401, err)
	}
	operator, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Operator{}, common.NewAppError(common.CodeUnauthorized, "unauthorized", 401, err)
	}
	return operator, nil
}

// ParseAccessToken validates an access token and returns the identity it
// carries.
func (s *Service) ParseAccessToken(token string) (Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Identity{}, common.NewAppError(common.CodeUnauthorized, "missing token", 401, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Identity{}, common.NewAppError(common.CodeUnauthorized, "invalid token", 401, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Identity{}, common.NewAppError(common.CodeUnauthorized, "invalid token", 401, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return Identity{}, common.NewAppError(common.CodeUnauthorized, "invalid token", 401, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Identity{}, common.NewAppError(common.CodeUnauthorized, "invalid token", 401, err)
	}
	identity := Identity{OperatorID: parsed.Subject()}
	if raw, ok := parsed.Get(roleClaim); ok {
		if role, ok := raw.(string); ok {
			identity.Role = role
		}
	}
	return identity, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(operator Operator) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(operator.ID.String()).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim(roleClaim, operator.Role)
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func invalidCredentials(err error) error {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", 401, err)
}
