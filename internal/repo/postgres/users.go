package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, observer: observer{prom: prom}}
}

const userColumns = `id, email, name, password_hash, is_verified,
	register_otp_hash, register_otp_expires, register_otp_attempts,
	reset_otp_hash, reset_otp_expires, reset_otp_attempts,
	created_at, updated_at`

// slotColumns maps a purpose to its column set. Only these fixed names are
// ever interpolated into SQL.
func slotColumns(p user.OTPPurpose) (hash, expires, attempts string, err error) {
	switch p {
	case user.PurposeRegister:
		return "register_otp_hash", "register_otp_expires", "register_otp_attempts", nil
	case user.PurposeReset:
		return "reset_otp_hash", "reset_otp_expires", "reset_otp_attempts", nil
	default:
		return "", "", "", user.ErrUnknownPurpose
	}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var regHash, resetHash *string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Verified,
		&regHash,
		&u.RegisterOTP.ExpiresAt,
		&u.RegisterOTP.Attempts,
		&resetHash,
		&u.ResetOTP.ExpiresAt,
		&u.ResetOTP.Attempts,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	if regHash != nil {
		u.RegisterOTP.Hash = *regHash
	}
	if resetHash != nil {
		u.ResetOTP.Hash = *resetHash
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, name, password_hash, is_verified, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.Name, u.PasswordHash, u.Verified, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, arg))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsInvalidInput(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) SetOTP(ctx context.Context, id string, purpose user.OTPPurpose, hash string, expiresAt time.Time) error {
	hashCol, expCol, attCol, err := slotColumns(purpose)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s = $2, %s = $3, %s = 0, updated_at = NOW() WHERE id = $1`,
		hashCol, expCol, attCol,
	)

	var affected int64
	err = r.observe("users.set_otp", func() error {
		tag, err := r.pool.Exec(ctx, query, id, hash, expiresAt.UTC())
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

// ConsumeOTPAttempt is a single conditional UPDATE: the row only changes when
// the slot is populated, unexpired and below the attempt ceiling.
func (r *UsersRepo) ConsumeOTPAttempt(ctx context.Context, id string, purpose user.OTPPurpose, now time.Time) (user.OTPSlot, error) {
	hashCol, expCol, attCol, err := slotColumns(purpose)
	if err != nil {
		return user.OTPSlot{}, err
	}

	query := fmt.Sprintf(
		`UPDATE users
			SET %[3]s = %[3]s + 1, updated_at = $2
		WHERE id = $1
			AND %[1]s IS NOT NULL
			AND %[2]s > $2
			AND %[3]s < $3
		RETURNING %[1]s, %[2]s, %[3]s`,
		hashCol, expCol, attCol,
	)

	var slot user.OTPSlot
	err = r.observe("users.consume_otp_attempt", func() error {
		return r.pool.QueryRow(ctx, query, id, now.UTC(), user.MaxOTPAttempts).
			Scan(&slot.Hash, &slot.ExpiresAt, &slot.Attempts)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.OTPSlot{}, user.ErrOTPUnavailable
		}
		return user.OTPSlot{}, err
	}
	return slot, nil
}

func (r *UsersRepo) MarkVerified(ctx context.Context, id, otpHash string) error {
	var affected int64

	err := r.observe("users.mark_verified", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
				SET is_verified = TRUE,
					register_otp_hash = NULL,
					register_otp_expires = NULL,
					register_otp_attempts = 0,
					updated_at = NOW()
			WHERE id = $1 AND register_otp_hash = $2`,
			id, otpHash,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrOTPUnavailable
	}
	return nil
}

func (r *UsersRepo) ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error {
	var affected int64

	err := r.observe("users.reset_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
				SET password_hash = $3,
					reset_otp_hash = NULL,
					reset_otp_expires = NULL,
					reset_otp_attempts = 0,
					updated_at = NOW()
			WHERE id = $1 AND reset_otp_hash = $2`,
			id, otpHash, passwordHash,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrOTPUnavailable
	}
	return nil
}
