package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ObserveDB times a store call and counts its failures by class. op is a
// "<collection>.<action>" label such as "users.create" or "cache.get".
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

var pgClasses = map[string]string{
	"23505": "unique_violation",
	"23514": "check_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

// classifyDBErr maps driver errors from postgres, mongo and redis onto a
// small label set; anything unrecognised falls back to message sniffing.
func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, redis.Nil):
		return "not_found"
	case mongo.IsDuplicateKeyError(err):
		return "unique_violation"
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return "timeout"
	case mongo.IsNetworkError(err), errors.Is(err, redis.ErrClosed):
		return "connection"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "refused"):
		return "connection"
	}
	return "unknown"
}
