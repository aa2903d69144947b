package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

// gormOperations are the GORM callback chains instrumented by the plugins.
var gormOperations = []string{"create", "query", "update", "delete", "row", "raw"}

type startKey string

type registerFunc func(name string, fn func(*gorm.DB)) error

// hookFor returns the Register method placed before or after the GORM
// processor of op.
func hookFor(db *gorm.DB, op string, after bool) registerFunc {
	cb := db.Callback()
	anchor := "gorm:" + op
	pick := func(before, afterFn registerFunc) registerFunc {
		if after {
			return afterFn
		}
		return before
	}
	switch op {
	case "create":
		return pick(cb.Create().Before(anchor).Register, cb.Create().After(anchor).Register)
	case "query":
		return pick(cb.Query().Before(anchor).Register, cb.Query().After(anchor).Register)
	case "update":
		return pick(cb.Update().Before(anchor).Register, cb.Update().After(anchor).Register)
	case "delete":
		return pick(cb.Delete().Before(anchor).Register, cb.Delete().After(anchor).Register)
	case "row":
		return pick(cb.Row().Before(anchor).Register, cb.Row().After(anchor).Register)
	default:
		return pick(cb.Raw().Before(anchor).Register, cb.Raw().After(anchor).Register)
	}
}

// registerAround installs a start-time stamp before every operation and
// after(op) once it completes. Callback names are prefixed to stay unique.
func registerAround(db *gorm.DB, prefix string, key startKey, after func(op string) func(*gorm.DB)) error {
	stamp := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
	for _, op := range gormOperations {
		if err := hookFor(db, op, false)(prefix+":before_"+op, stamp); err != nil {
			return err
		}
		if err := hookFor(db, op, true)(prefix+":after_"+op, after(op)); err != nil {
			return err
		}
	}
	return nil
}

// elapsed returns the time since the stamp stored under key, or 0.
func elapsed(tx *gorm.DB, key startKey) time.Duration {
	if tx.Statement.Context == nil {
		return 0
	}
	if start, ok := tx.Statement.Context.Value(key).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

// sqlOperation maps a callback chain to its SQL verb.
func sqlOperation(op string, tx *gorm.DB) string {
	switch op {
	case "create":
		return "INSERT"
	case "query":
		return "SELECT"
	case "update":
		return "UPDATE"
	case "delete":
		return "DELETE"
	}
	return detectOperationType(tx.Statement.SQL.String())
}

func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
