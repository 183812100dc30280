package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/mail"
	"github.com/geocoder89/storefront/internal/security"
)

const OTPTTL = 10 * time.Minute

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	SetOTP(ctx context.Context, id string, purpose user.OTPPurpose, hash string, expiresAt time.Time) error
	ConsumeOTPAttempt(ctx context.Context, id string, purpose user.OTPPurpose, now time.Time) (user.OTPSlot, error)
	MarkVerified(ctx context.Context, id, otpHash string) error
	ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error
}

type TokenIssuer interface {
	GenerateSessionToken(userID, email string) (string, error)
}

type Deps struct {
	Users  UserStore
	Mailer mail.Mailer
	Tokens TokenIssuer
	Log    *slog.Logger

	// ExposeOTP echoes issued codes back to the caller. Development only.
	ExposeOTP bool

	Now     func() time.Time
	NewCode func() (string, error)
}

type Service struct {
	users     UserStore
	mailer    mail.Mailer
	tokens    TokenIssuer
	log       *slog.Logger
	exposeOTP bool
	now       func() time.Time
	newCode   func() (string, error)
}

func NewService(d Deps) *Service {
	s := &Service{
		users:     d.Users,
		mailer:    d.Mailer,
		tokens:    d.Tokens,
		log:       d.Log,
		exposeOTP: d.ExposeOTP,
		now:       d.Now,
		newCode:   d.NewCode,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = security.GenerateOTP
	}
	return s
}

// Issued reports an OTP send. DevOTP is only set when codes are exposed.
type Issued struct {
	DevOTP string
}

type Session struct {
	Token string
	User  user.Public
}

type VerifyResult struct {
	AlreadyVerified bool
	Session         Session
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates an unverified user and mails a registration code.
// An existing email is reported as ErrEmailTaken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Issued, error) {
	email := user.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if utf8.RuneCountInString(name) < minNameLength {
		return Issued{}, ErrInvalidName
	}
	if len(in.Password) > security.MaxPasswordBytes {
		return Issued{}, ErrPasswordTooLong
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return Issued{}, ErrEmailTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return Issued{}, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return Issued{}, fmt.Errorf("hash password: %w", err)
	}

	u := user.New(email, name, hash)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			return Issued{}, ErrEmailTaken
		}
		return Issued{}, err
	}

	code, err := s.issue(ctx, u, user.PurposeRegister)
	if err != nil {
		return Issued{}, err
	}

	s.log.InfoContext(ctx, "account.registered", "user_id", u.ID)
	return s.issued(code), nil
}

// ResendRegisterOTP never reveals whether the email exists. Verified
// accounts get nothing new; unknown emails are a silent no-op.
func (s *Service) ResendRegisterOTP(ctx context.Context, email string) (Issued, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Issued{}, nil
		}
		return Issued{}, err
	}
	if u.Verified {
		return Issued{}, nil
	}

	code, err := s.issue(ctx, u, user.PurposeRegister)
	if err != nil {
		if errors.Is(err, ErrMailDelivery) {
			s.log.WarnContext(ctx, "account.resend_mail_failed", "user_id", u.ID, "err", err)
			return Issued{}, nil
		}
		return Issued{}, err
	}
	return s.issued(code), nil
}

func (s *Service) VerifyRegisterOTP(ctx context.Context, email, code string) (VerifyResult, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return VerifyResult{}, ErrInvalidOTP
		}
		return VerifyResult{}, err
	}
	if u.Verified {
		return VerifyResult{AlreadyVerified: true}, nil
	}

	slot, err := s.checkOTP(ctx, u.ID, user.PurposeRegister, code)
	if err != nil {
		return VerifyResult{}, err
	}

	if err := s.users.MarkVerified(ctx, u.ID, slot.Hash); err != nil {
		if errors.Is(err, user.ErrOTPUnavailable) {
			// consumed by a concurrent request
			return VerifyResult{}, ErrOTPExpired
		}
		return VerifyResult{}, err
	}

	sess, err := s.session(u)
	if err != nil {
		return VerifyResult{}, err
	}

	s.log.InfoContext(ctx, "account.verified", "user_id", u.ID)
	return VerifyResult{Session: sess}, nil
}

// Login distinguishes bad credentials from an unverified account, and only
// after the password has matched.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !u.Verified {
		return Session{}, ErrNotVerified
	}

	return s.session(u)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (Issued, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Issued{}, nil
		}
		return Issued{}, err
	}

	code, err := s.issue(ctx, u, user.PurposeReset)
	if err != nil {
		if errors.Is(err, ErrMailDelivery) {
			s.log.WarnContext(ctx, "account.reset_mail_failed", "user_id", u.ID, "err", err)
			return Issued{}, nil
		}
		return Issued{}, err
	}
	return s.issued(code), nil
}

// ResetPasswordWithOTP rejects an unusable password before spending an
// attempt on the code.
func (s *Service) ResetPasswordWithOTP(ctx context.Context, email, code, newPassword string) (Session, error) {
	if len(newPassword) > security.MaxPasswordBytes {
		return Session{}, ErrPasswordTooLong
	}

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidOTP
		}
		return Session{}, err
	}

	slot, err := s.checkOTP(ctx, u.ID, user.PurposeReset, code)
	if err != nil {
		return Session{}, err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.ResetPassword(ctx, u.ID, slot.Hash, hash); err != nil {
		if errors.Is(err, user.ErrOTPUnavailable) {
			return Session{}, ErrOTPExpired
		}
		return Session{}, err
	}

	s.log.InfoContext(ctx, "account.password_reset", "user_id", u.ID)
	return s.session(u)
}

// checkOTP spends one attempt on the slot, then compares the code. A wrong
// code keeps the attempt counted.
func (s *Service) checkOTP(ctx context.Context, userID string, purpose user.OTPPurpose, code string) (user.OTPSlot, error) {
	now := s.now()

	slot, err := s.users.ConsumeOTPAttempt(ctx, userID, purpose, now)
	if err != nil {
		if errors.Is(err, user.ErrOTPUnavailable) {
			return user.OTPSlot{}, s.refusal(ctx, userID, purpose, now)
		}
		return user.OTPSlot{}, err
	}

	if !security.CheckOTP(slot.Hash, code) {
		return user.OTPSlot{}, ErrOTPIncorrect
	}
	return slot, nil
}

// refusal explains why the store refused an attempt: an empty or expired
// slot wins over an exhausted one.
func (s *Service) refusal(ctx context.Context, userID string, purpose user.OTPPurpose, now time.Time) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	slot := u.Slot(purpose)
	switch {
	case slot.IsEmpty() || slot.Expired(now):
		return ErrOTPExpired
	case slot.Exhausted():
		return ErrTooManyAttempts
	default:
		return ErrOTPExpired
	}
}

func (s *Service) issue(ctx context.Context, u user.User, purpose user.OTPPurpose) (string, error) {
	code, err := s.newCode()
	if err != nil {
		return "", err
	}

	if err := s.users.SetOTP(ctx, u.ID, purpose, security.HashOTP(code), s.now().Add(OTPTTL)); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	msg, err := mail.OTPMessage(u.Email, u.Name, code, purpose, OTPTTL)
	if err != nil {
		return "", fmt.Errorf("render otp mail: %w", err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return code, nil
}

func (s *Service) issued(code string) Issued {
	if !s.exposeOTP {
		return Issued{}
	}
	return Issued{DevOTP: code}
}

func (s *Service) session(u user.User) (Session, error) {
	token, err := s.tokens.GenerateSessionToken(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: token, User: u.Public()}, nil
}
