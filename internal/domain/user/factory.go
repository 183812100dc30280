package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func New(email, name, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
