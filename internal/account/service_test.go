package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/mail"
	"github.com/geocoder89/storefront/internal/repo/memory"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type stubTokens struct{}

func (stubTokens) GenerateSessionToken(userID, email string) (string, error) {
	return "token-" + userID, nil
}

type fixture struct {
	svc    *Service
	users  *memory.UsersRepo
	mailer *mockMailer
	now    time.Time
	code   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:  memory.NewUsersRepo(),
		mailer: &mockMailer{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		code:   "123456",
	}
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)

	f.svc = NewService(Deps{
		Users:     f.users,
		Mailer:    f.mailer,
		Tokens:    stubTokens{},
		ExposeOTP: true,
		Now:       func() time.Time { return f.now },
		NewCode:   func() (string, error) { return f.code, nil },
	})
	return f
}

func (f *fixture) register(t *testing.T) user.User {
	t.Helper()

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "Ann", Password: "secret1"})
	require.NoError(t, err)

	u, err := f.users.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	return u
}

func TestRegisterPopulatesSlotAndMailsCode(t *testing.T) {
	f := newFixture(t)

	issued, err := f.svc.Register(context.Background(), RegisterInput{Email: " A@B.com", Name: "Ann", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "123456", issued.DevOTP)

	u, err := f.users.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.False(t, u.Verified)
	assert.Equal(t, security.HashOTP("123456"), u.RegisterOTP.Hash)
	assert.Equal(t, f.now.Add(OTPTTL), *u.RegisterOTP.ExpiresAt)
	assert.Equal(t, 0, u.RegisterOTP.Attempts)

	f.mailer.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "a@b.com" && m.Subject == "Email Verification Code"
	}))
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "Bob", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 1, f.users.Count())
}

func TestRegisterMailFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.mailer.ExpectedCalls = nil
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "Ann", Password: "secret1"})
	assert.ErrorIs(t, err, ErrMailDelivery)
}

func TestVerifyRegisterOTPSuccessClearsSlot(t *testing.T) {
	f := newFixture(t)
	u := f.register(t)

	res, err := f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.False(t, res.AlreadyVerified)
	assert.Equal(t, "token-"+u.ID, res.Session.Token)
	assert.Equal(t, "a@b.com", res.Session.User.Email)

	stored, _ := f.users.GetByID(context.Background(), u.ID)
	assert.True(t, stored.Verified)
	assert.Equal(t, user.OTPSlot{}, stored.RegisterOTP)

	res, err = f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.True(t, res.AlreadyVerified)
}

func TestVerifyRegisterOTPSixthAttemptIsRateLimited(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	for i := 1; i <= user.MaxOTPAttempts; i++ {
		_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "000000")
		require.ErrorIs(t, err, ErrOTPIncorrect, "attempt %d", i)
	}

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestVerifyRegisterOTPAfterExpiryFails(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	f.now = f.now.Add(OTPTTL)

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestVerifyRegisterOTPExpiryWinsOverExhaustion(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	for i := 0; i < user.MaxOTPAttempts; i++ {
		_, _ = f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "000000")
	}
	f.now = f.now.Add(time.Hour)

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestVerifyRegisterOTPUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "nobody@b.com", "123456")
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestResendResetsAttemptsAndIsEnumerationSafe(t *testing.T) {
	f := newFixture(t)
	u := f.register(t)

	for i := 0; i < user.MaxOTPAttempts; i++ {
		_, _ = f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "000000")
	}

	f.code = "654321"
	issued, err := f.svc.ResendRegisterOTP(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "654321", issued.DevOTP)

	stored, _ := f.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, 0, stored.RegisterOTP.Attempts)

	_, err = f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrOTPIncorrect)

	issued, err = f.svc.ResendRegisterOTP(context.Background(), "ghost@b.com")
	require.NoError(t, err)
	assert.Empty(t, issued.DevOTP)
}

func TestLoginStates(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Login(context.Background(), "a@b.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "ghost@b.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "a@b.com", "secret1")
	assert.ErrorIs(t, err, ErrNotVerified)

	_, err = f.svc.VerifyRegisterOTP(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)

	sess, err := f.svc.Login(context.Background(), "A@b.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t)

	issued, err := f.svc.ForgotPassword(context.Background(), "ghost@b.com")
	require.NoError(t, err)
	assert.Empty(t, issued.DevOTP)

	f.code = "222222"
	issued, err = f.svc.ForgotPassword(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", issued.DevOTP)

	_, err = f.svc.ResetPasswordWithOTP(context.Background(), "a@b.com", "999999", "newsecret")
	assert.ErrorIs(t, err, ErrOTPIncorrect)

	sess, err := f.svc.ResetPasswordWithOTP(context.Background(), "a@b.com", "222222", "newsecret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)

	stored, _ := f.users.GetByID(context.Background(), u.ID)
	assert.NoError(t, security.CheckPassword(stored.PasswordHash, "newsecret"))
	assert.Equal(t, user.OTPSlot{}, stored.ResetOTP)

	_, err = f.svc.ResetPasswordWithOTP(context.Background(), "a@b.com", "222222", "again123")
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestForgotPasswordSwallowsMailFailure(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	f.mailer.ExpectedCalls = nil
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	issued, err := f.svc.ForgotPassword(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Empty(t, issued.DevOTP)
}

func TestDevOTPHiddenWhenNotExposed(t *testing.T) {
	f := newFixture(t)
	f.svc.exposeOTP = false

	issued, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "Ann", Password: "secret1"})
	require.NoError(t, err)
	assert.Empty(t, issued.DevOTP)
}

func TestRegisterValidatesTrimmedNameAndPasswordBytes(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: " a ", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "Ann", Password: strings.Repeat("é", 40)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, security.ErrPasswordTooLong)

	_, err = f.users.GetByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "  Jo  ", Password: "secret1"})
	require.NoError(t, err)
	stored, _ := f.users.GetByEmail(context.Background(), "a@b.com")
	assert.Equal(t, "Jo", stored.Name)
}

func TestResetWithOverlongPasswordKeepsAttempt(t *testing.T) {
	f := newFixture(t)
	u := f.register(t)

	f.code = "222222"
	_, err := f.svc.ForgotPassword(context.Background(), "a@b.com")
	require.NoError(t, err)

	_, err = f.svc.ResetPasswordWithOTP(context.Background(), "a@b.com", "222222", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	stored, _ := f.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, 0, stored.ResetOTP.Attempts)

	_, err = f.svc.ResetPasswordWithOTP(context.Background(), "a@b.com", "222222", "newsecret")
	require.NoError(t, err)
}
