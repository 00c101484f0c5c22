package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ParseDurationEnv parses a config value as time.Duration. Accepted forms:
// "1500ms", "10s", "5m" (time.ParseDuration) and bare seconds "10" or "1.5".
// Surrounding quotes are ignored.
func ParseDurationEnv(s string) (time.Duration, error) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 1500ms, 10s, 5m or a number of seconds: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// ParseRedisURL extracts host:port, password and DB from a redis:// or
// rediss:// URL.
func ParseRedisURL(s string) (addr, password string, db int, err error) {
	opt, err := redis.ParseURL(strings.TrimSpace(s))
	if err != nil {
		return "", "", 0, fmt.Errorf("redis url: %w", err)
	}
	return opt.Addr, opt.Password, opt.DB, nil
}

// Postgres error codes the services react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PGErrorCode returns the SQLSTATE of a Postgres error, or "".
func PGErrorCode(err error) string {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code
	}
	return ""
}

// IsPGUniqueViolation reports a unique constraint violation (duplicate email).
func IsPGUniqueViolation(err error) bool { return PGErrorCode(err) == pgUniqueViolation }

// IsPGForeignKeyViolation reports a foreign key violation: records pushed for
// an owner whose account no longer exists.
func IsPGForeignKeyViolation(err error) bool { return PGErrorCode(err) == pgForeignKeyViolation }
