package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/nfrund/parley/internal/domain"
)

const (
	otpTTL       = 10 * time.Minute
	resetTTL     = 10 * time.Minute
	blacklistTTL = 24 * time.Hour
)

// Service runs the account lifecycle: OTP signup, sign in and out, and
// password reset.
type Service struct {
	users     domain.UserRepository
	blacklist domain.TokenBlacklist
	mailer    domain.EmailSender
	tokens    *TokenService
	baseURL   string
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates the account service. baseURL is used to build password
// reset links.
func NewService(users domain.UserRepository, blacklist domain.TokenBlacklist, mailer domain.EmailSender, tokens *TokenService, baseURL string) *Service {
	return &Service{
		users:     users,
		blacklist: blacklist,
		mailer:    mailer,
		tokens:    tokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
		logger:    slog.Default().With("component", "auth"),
	}
}

// SignupInput is everything the signup step needs.
type SignupInput struct {
	FullName    string
	Email       string
	Password    string
	Gender      string
	DateOfBirth string
	OTP         string
}

// Session is a signed-in user and their access token.
type Session struct {
	User  *domain.User
	Token string
}

// SendOTP mails a fresh six-digit code to email. Verified accounts are
// rejected with ErrUserAlreadyExists.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return domain.ErrUserAlreadyExists
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	otpHash, err := HashPassword(otp)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := s.users.SaveOTP(ctx, email, otpHash, s.now().Add(otpTTL)); err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, email, "Your OTP Code", fmt.Sprintf("Your OTP is %s", otp)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send OTP email", "email", email, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrEmailDelivery, err)
	}
	return nil
}

// Signup verifies the OTP and completes the pending account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, domain.ErrUserAlreadyExists
	}
	if !user.OTPValid(s.now()) {
		return nil, domain.ErrInvalidOTP
	}
	if ok, _ := ComparePassword(in.OTP, user.OTP); !ok {
		return nil, domain.ErrInvalidOTP
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.users.CompleteSignup(ctx, user.ID, domain.Signup{
		FullName:     in.FullName,
		PasswordHash: hash,
		Gender:       in.Gender,
		DateOfBirth:  in.DateOfBirth,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "User signed up", "user_id", created.ID.String())
	return s.session(created)
}

// Signin checks credentials. Unknown emails, unverified accounts and wrong
// passwords all yield ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsVerified || user.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if ok, _ := ComparePassword(password, user.Password); !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return s.session(user)
}

// Signout blacklists token so it is refused until it would have expired.
func (s *Service) Signout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.blacklist.Add(ctx, token, s.now().Add(blacklistTTL))
}

// ForgotPassword stores a hashed reset token and mails the link to reset it.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.users.SetResetToken(ctx, user.ID, HashResetToken(token), s.now().Add(resetTTL)); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/users/forgot-password-link/%s", s.baseURL, token)
	body := fmt.Sprintf("To reset your password, please click on this link: %s", link)
	if err := s.mailer.Send(ctx, user.Email, "Password Recovery", body); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send reset email", "email", user.Email, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrEmailDelivery, err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*domain.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.ResetPassword(ctx, HashResetToken(token), hash, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidResetToken
	}
	return user, err
}

// AuthenticateToken verifies token and returns the user id it was issued
// for. Blacklisted tokens are refused.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	revoked, err := s.blacklist.Contains(ctx, token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// TokenTTL is how long issued tokens stay valid; used for cookie lifetimes.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *Service) session(user *domain.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

// HashResetToken is the at-rest form of a password reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
