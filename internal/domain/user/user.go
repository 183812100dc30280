package user

import (
	"errors"
	"strings"
	"time"
)

// MaxOTPAttempts is the number of checks a populated slot accepts before it is refused.
const MaxOTPAttempts = 5

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("email already registered")
	// ErrOTPUnavailable is returned by stores when a conditional slot update matched nothing:
	// the slot is empty, expired, exhausted or holds a different code.
	ErrOTPUnavailable = errors.New("otp slot unavailable")
	ErrUnknownPurpose = errors.New("unknown otp purpose")
)

type OTPPurpose string

const (
	PurposeRegister OTPPurpose = "register"
	PurposeReset    OTPPurpose = "reset"
)

func (p OTPPurpose) IsValid() bool {
	return p == PurposeRegister || p == PurposeReset
}

// OTPSlot is either fully empty or fully populated.
type OTPSlot struct {
	Hash      string
	ExpiresAt *time.Time
	Attempts  int
}

func (s OTPSlot) IsEmpty() bool {
	return s.Hash == "" || s.ExpiresAt == nil
}

func (s OTPSlot) Expired(now time.Time) bool {
	return s.ExpiresAt == nil || !s.ExpiresAt.After(now)
}

func (s OTPSlot) Exhausted() bool {
	return s.Attempts >= MaxOTPAttempts
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Verified     bool      `json:"isVerified"`
	RegisterOTP  OTPSlot   `json:"-"`
	ResetOTP     OTPSlot   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) Slot(p OTPPurpose) OTPSlot {
	if p == PurposeReset {
		return u.ResetOTP
	}
	return u.RegisterOTP
}

// Public is the shape returned alongside session tokens.
type Public struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Email: u.Email, Name: u.Name}
}

// NormalizeEmail lower-cases and trims, matching how emails are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
