package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type otpDoc struct {
	Hash      string     `bson:"hash,omitempty"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	Attempts  int        `bson:"attempts"`
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Verified     bool      `bson:"is_verified"`
	RegisterOTP  otpDoc    `bson:"register_otp"`
	ResetOTP     otpDoc    `bson:"reset_otp"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Verified:     d.Verified,
		RegisterOTP:  d.RegisterOTP.toDomain(),
		ResetOTP:     d.ResetOTP.toDomain(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d otpDoc) toDomain() user.OTPSlot {
	return user.OTPSlot{Hash: d.Hash, ExpiresAt: d.ExpiresAt, Attempts: d.Attempts}
}

func slotField(p user.OTPPurpose) (string, error) {
	switch p {
	case user.PurposeRegister:
		return "register_otp", nil
	case user.PurposeReset:
		return "reset_otp", nil
	default:
		return "", user.ErrUnknownPurpose
	}
}

type UsersRepo struct {
	observer
	collection *mongo.Collection
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		collection: db.Collection(usersCollection),
		observer:   observer{prom: prom},
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	doc := userDoc{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Verified:     u.Verified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}

	err := r.observe("users.create", func() error {
		_, err := r.collection.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": email})
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": id})
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var doc userDoc

	err := r.observe(op, func() error {
		return r.collection.FindOne(ctx, filter).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return doc.toDomain(), nil
}

func (r *UsersRepo) SetOTP(ctx context.Context, id string, purpose user.OTPPurpose, hash string, expiresAt time.Time) error {
	field, err := slotField(purpose)
	if err != nil {
		return err
	}

	exp := expiresAt.UTC()
	var matched int64

	err = r.observe("users.set_otp", func() error {
		res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
			"$set": bson.M{
				field:        otpDoc{Hash: hash, ExpiresAt: &exp, Attempts: 0},
				"updated_at": time.Now().UTC(),
			},
		})
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return user.ErrNotFound
	}
	return nil
}

// ConsumeOTPAttempt is one FindOneAndUpdate whose filter carries the whole
// precondition, so concurrent callers cannot push attempts past the ceiling.
func (r *UsersRepo) ConsumeOTPAttempt(ctx context.Context, id string, purpose user.OTPPurpose, now time.Time) (user.OTPSlot, error) {
	field, err := slotField(purpose)
	if err != nil {
		return user.OTPSlot{}, err
	}

	filter := bson.M{
		"_id":                 id,
		field + ".hash":       bson.M{"$exists": true, "$ne": ""},
		field + ".expires_at": bson.M{"$gt": now.UTC()},
		field + ".attempts":   bson.M{"$lt": user.MaxOTPAttempts},
	}
	update := bson.M{
		"$inc": bson.M{field + ".attempts": 1},
		"$set": bson.M{"updated_at": now.UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err = r.observe("users.consume_otp_attempt", func() error {
		return r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.OTPSlot{}, user.ErrOTPUnavailable
		}
		return user.OTPSlot{}, err
	}

	return doc.toDomain().Slot(purpose), nil
}

func (r *UsersRepo) MarkVerified(ctx context.Context, id, otpHash string) error {
	return r.clearSlot(ctx, "users.mark_verified", id, "register_otp", otpHash, bson.M{"is_verified": true})
}

func (r *UsersRepo) ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error {
	return r.clearSlot(ctx, "users.reset_password", id, "reset_otp", otpHash, bson.M{"password_hash": passwordHash})
}

func (r *UsersRepo) clearSlot(ctx context.Context, op, id, field, otpHash string, set bson.M) error {
	set[field] = otpDoc{}
	set["updated_at"] = time.Now().UTC()

	var matched int64
	err := r.observe(op, func() error {
		res, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": id, field + ".hash": otpHash},
			bson.M{"$set": set},
		)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return user.ErrOTPUnavailable
	}
	return nil
}
