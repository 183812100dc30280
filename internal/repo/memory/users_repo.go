package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
)

type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return user.ErrEmailExists
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(r.items[id]), nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UsersRepo) SetOTP(_ context.Context, id string, purpose user.OTPPurpose, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	exp := expiresAt.UTC()
	slot := user.OTPSlot{Hash: hash, ExpiresAt: &exp, Attempts: 0}
	if err := setSlot(&u, purpose, slot); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u
	return nil
}

// ConsumeOTPAttempt increments the attempt counter only when the slot is
// populated, unexpired and below the ceiling. The check and the increment
// happen under one lock.
func (r *UsersRepo) ConsumeOTPAttempt(_ context.Context, id string, purpose user.OTPPurpose, now time.Time) (user.OTPSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.OTPSlot{}, user.ErrNotFound
	}

	slot := u.Slot(purpose)
	if slot.IsEmpty() || slot.Expired(now) || slot.Exhausted() {
		return user.OTPSlot{}, user.ErrOTPUnavailable
	}

	slot.Attempts++
	if err := setSlot(&u, purpose, slot); err != nil {
		return user.OTPSlot{}, err
	}
	r.items[id] = u
	return slot, nil
}

func (r *UsersRepo) MarkVerified(_ context.Context, id, otpHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}
	if u.RegisterOTP.Hash == "" || u.RegisterOTP.Hash != otpHash {
		return user.ErrOTPUnavailable
	}

	u.Verified = true
	u.RegisterOTP = user.OTPSlot{}
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u
	return nil
}

func (r *UsersRepo) ResetPassword(_ context.Context, id, otpHash, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}
	if u.ResetOTP.Hash == "" || u.ResetOTP.Hash != otpHash {
		return user.ErrOTPUnavailable
	}

	u.PasswordHash = passwordHash
	u.ResetOTP = user.OTPSlot{}
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u
	return nil
}

func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

func setSlot(u *user.User, purpose user.OTPPurpose, slot user.OTPSlot) error {
	switch purpose {
	case user.PurposeRegister:
		u.RegisterOTP = slot
	case user.PurposeReset:
		u.ResetOTP = slot
	default:
		return user.ErrUnknownPurpose
	}
	return nil
}

// copyUser detaches the expiry pointers so callers cannot mutate stored state.
func copyUser(u user.User) user.User {
	u.RegisterOTP = copySlot(u.RegisterOTP)
	u.ResetOTP = copySlot(u.ResetOTP)
	return u
}

func copySlot(s user.OTPSlot) user.OTPSlot {
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		s.ExpiresAt = &t
	}
	return s
}
