package persistence

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// prepareRoot assigns an id to an unpersisted aggregate, checks the stored
// version and bumps it on update. Must run inside the saving transaction.
func prepareRoot(tx *gorm.DB, table string, root *shared.BaseAggregateRoot) error {
	now := time.Now()
	if root.ID == uuid.Nil {
		root.ID = uuid.New()
	}
	if root.CreatedAt.IsZero() {
		root.CreatedAt = now
	}
	if root.Version == 0 {
		root.Version = 1
	}

	var stored []int
	if err := tx.Table(table).Where("id = ?", root.ID).Limit(1).Pluck("version", &stored).Error; err != nil {
		return err
	}
	if len(stored) == 1 {
		if stored[0] != root.Version {
			return shared.ErrConcurrencyConflict
		}
		root.Version++
	}
	root.UpdatedAt = now
	return nil
}

// ensureID assigns a fresh id to an unpersisted child entity
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// inPeriod restricts column to the half-open range; zero bounds are open.
func inPeriod(query *gorm.DB, column string, period shared.DateRange) *gorm.DB {
	if !period.From.IsZero() {
		query = query.Where(column+" >= ?", period.From)
	}
	if !period.To.IsZero() {
		query = query.Where(column+" < ?", period.To)
	}
	return query
}

// replaceRows deletes the rows of model matching column = id and inserts rows.
func replaceRows[T any](tx *gorm.DB, column string, id any, rows []T) error {
	var zero T
	if err := tx.Where(column+" = ?", id).Delete(&zero).Error; err != nil {
		return err
	}
	return insertRows(tx, rows)
}

// insertRows creates rows in one statement; empty input is a no-op
func insertRows[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}
