package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct horse battery")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword("correct horse battery", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword("x", "not-a-hash")
	req.Error(err)
}

func TestTokenService(t *testing.T) {
	svc, err := NewTokenService("secret", time.Hour)
	require.NoError(t, err)

	token, err := svc.Issue("user:ada")
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user:ada", claims.Subject)

	t.Run("wrong key", func(t *testing.T) {
		other, _ := NewTokenService("other", time.Hour)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Parse("a.b.c")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("config", func(t *testing.T) {
		_, err := NewTokenService("", time.Hour)
		assert.Error(t, err)
		_, err = NewTokenService("s", 0)
		assert.Error(t, err)
	})
}

type testEnv struct {
	svc       *Service
	users     *memUsers
	blacklist *memBlacklist
	mailer    *fakeMailer
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	env := &testEnv{
		users:     newMemUsers(),
		blacklist: newMemBlacklist(),
		mailer:    &fakeMailer{},
		now:       time.Now(),
	}
	env.svc = NewService(env.users, env.blacklist, env.mailer, tokens, "https://chat.example/")
	env.svc.now = func() time.Time { return env.now }
	return env
}

var otpPattern = regexp.MustCompile(`\d{6}`)

func (e *testEnv) signup(t *testing.T, email, password string) *Session {
	t.Helper()
	require.NoError(t, e.svc.SendOTP(context.Background(), email))
	otp := otpPattern.FindString(e.mailer.last().body)
	require.NotEmpty(t, otp)

	sess, err := e.svc.Signup(context.Background(), SignupInput{
		FullName: "Ada Lovelace",
		Email:    email,
		Password: password,
		Gender:   "female",
		OTP:      otp,
	})
	require.NoError(t, err)
	return sess
}

func TestSignupFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("otp then signup", func(t *testing.T) {
		env := newTestEnv(t)
		sess := env.signup(t, "ada@example.com", "password123")

		assert.True(t, sess.User.IsVerified)
		assert.Equal(t, "Ada Lovelace", sess.User.FullName)
		assert.NotEmpty(t, sess.Token)
		assert.Equal(t, "Your OTP Code", env.mailer.last().subject)

		userID, err := env.svc.AuthenticateToken(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.User.ID.String(), userID)
	})

	t.Run("verified account cannot request otp", func(t *testing.T) {
		env := newTestEnv(t)
		env.signup(t, "ada@example.com", "password123")
		assert.ErrorIs(t, env.svc.SendOTP(ctx, "ada@example.com"), domain.ErrUserAlreadyExists)
	})

	t.Run("wrong otp", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.svc.SendOTP(ctx, "bob@example.com"))
		otp := otpPattern.FindString(env.mailer.last().body)
		wrong := "000000"
		if otp == wrong {
			wrong = "111111"
		}
		_, err := env.svc.Signup(ctx, SignupInput{Email: "bob@example.com", Password: "password123", OTP: wrong})
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	})

	t.Run("expired otp", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.svc.SendOTP(ctx, "bob@example.com"))
		otp := otpPattern.FindString(env.mailer.last().body)
		env.now = env.now.Add(otpTTL + time.Second)
		_, err := env.svc.Signup(ctx, SignupInput{Email: "bob@example.com", Password: "password123", OTP: otp})
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	})

	t.Run("signup without otp request", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Signup(ctx, SignupInput{Email: "nobody@example.com", OTP: "123456"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("mail failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.mailer.err = errors.New("smtp down")
		assert.ErrorIs(t, env.svc.SendOTP(ctx, "bob@example.com"), domain.ErrEmailDelivery)
	})
}

func TestSigninAndSignout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "password123")

	_, err := env.svc.Signin(ctx, "ada@example.com", "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.svc.Signin(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, env.svc.SendOTP(ctx, "pending@example.com"))
	_, err = env.svc.Signin(ctx, "pending@example.com", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	sess, err := env.svc.Signin(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, env.svc.Signout(ctx, sess.Token))
	assert.WithinDuration(t, env.now.Add(blacklistTTL), env.blacklist.tokens[sess.Token], time.Second)

	_, err = env.svc.AuthenticateToken(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "password123")

	require.NoError(t, env.svc.ForgotPassword(ctx, "ada@example.com"))
	mail := env.mailer.last()
	assert.Equal(t, "Password Recovery", mail.subject)

	const prefix = "https://chat.example/api/users/forgot-password-link/"
	idx := strings.Index(mail.body, prefix)
	require.GreaterOrEqual(t, idx, 0)
	token := mail.body[idx+len(prefix):]
	assert.Len(t, token, 64)

	stored, _ := env.users.FindByEmail(ctx, "ada@example.com")
	assert.Equal(t, HashResetToken(token), stored.ResetPasswordToken)

	t.Run("expired token", func(t *testing.T) {
		saved := env.now
		env.now = env.now.Add(resetTTL + time.Minute)
		defer func() { env.now = saved }()
		_, err := env.svc.ResetPassword(ctx, token, "newpassword")
		assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
	})

	_, err := env.svc.ResetPassword(ctx, token, "newpassword")
	require.NoError(t, err)

	_, err = env.svc.Signin(ctx, "ada@example.com", "newpassword")
	assert.NoError(t, err)

	_, err = env.svc.ResetPassword(ctx, token, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)

	assert.ErrorIs(t, env.svc.ForgotPassword(ctx, "ghost@example.com"), domain.ErrNotFound)
}
