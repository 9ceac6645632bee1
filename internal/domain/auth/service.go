package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/matthewhartstonge/argon2"
)

const (
	issuer            = "doce-emergencia"
	minPasswordLength = 6
	maxPasswordLength = 128
)

// SignUpRequest holds the sign-up form.
type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	DisplayName     string
}

// Service signs users up and in, and validates session tokens.
type Service struct {
	users  Repository
	secret []byte
	ttl    time.Duration
	argon  argon2.Config
	verify func(password, encoded []byte) (bool, error)
	now    func() time.Time

	decoyOnce sync.Once
	decoy     []byte
}

// NewService creates an auth Service signing tokens with secret. Tokens and
// their session rows live for ttl.
func NewService(users Repository, secret []byte, ttl time.Duration) (*Service, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Service{
		users:  users,
		secret: secret,
		ttl:    ttl,
		argon:  argon2.DefaultConfig(),
		verify: argon2.VerifyEncoded,
		now:    time.Now,
	}, nil
}

// SignUp registers a new account with the user role.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, &ValidationError{Field: "confirm_password", Reason: "passwords do not match"}
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := s.argon.HashEncoded([]byte(req.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u, displayName); err != nil {
		return nil, err
	}
	return u, nil
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown emails pay for a hash check too, so response time does
			// not reveal which emails are registered.
			_, _ = s.verify([]byte(password), s.decoyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.verify([]byte(password), []byte(u.PasswordHash))
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	rec := &SessionRecord{
		ID:        uuid.New(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.users.CreateSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.sign(rec)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// decoyHash returns a hash of a random password made with the service's
// argon2 parameters.
func (s *Service) decoyHash() []byte {
	s.decoyOnce.Do(func() {
		hash, err := s.argon.HashEncoded([]byte(uuid.NewString()))
		if err == nil {
			s.decoy = hash
		}
	})
	return s.decoy
}

// SignOut deletes the session behind token. Signing out an already revoked
// or expired session is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.users.DeleteSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves token to the principal it was issued for. Tokens
// whose session row is gone or expired are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Principal{}, err
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	rec, err := s.users.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, fmt.Errorf("get session: %w", err)
	}
	if rec.UserID != userID || !s.now().Before(rec.ExpiresAt) {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		UserID:    rec.UserID,
		SessionID: rec.ID,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// HasRole reports whether userID holds role.
func (s *Service) HasRole(ctx context.Context, userID uuid.UUID, role Role) (bool, error) {
	if !role.Valid() {
		return false, errors.Errorf("unknown role %q", role)
	}
	ok, err := s.users.HasRole(ctx, userID, role)
	if err != nil {
		return false, fmt.Errorf("has role: %w", err)
	}
	return ok, nil
}

// RequireRole returns ErrForbidden unless userID holds role.
func (s *Service) RequireRole(ctx context.Context, userID uuid.UUID, role Role) error {
	ok, err := s.HasRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) sign(rec *SessionRecord) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   rec.UserID.String(),
		ID:        rec.ID.String(),
		IssuedAt:  jwt.NewNumericDate(rec.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *Service) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	return &claims, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", &ValidationError{Field: "email", Reason: "required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	return email, nil
}

func validatePassword(password string) error {
	switch n := utf8.RuneCountInString(password); {
	case n == 0:
		return &ValidationError{Field: "password", Reason: "required"}
	case n < minPasswordLength:
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must have at least %d characters", minPasswordLength)}
	case n > maxPasswordLength:
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must have at most %d characters", maxPasswordLength)}
	}
	return nil
}
