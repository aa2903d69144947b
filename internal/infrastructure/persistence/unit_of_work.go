package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/support"
	"github.com/erp/commerce/internal/domain/trade"
	"gorm.io/gorm"
)

type pendingOp struct {
	entity any
	remove bool
}

// GormUnitOfWork collects aggregate changes and writes them in one transaction
// on Flush. Registering the same aggregate twice keeps its first position.
type GormUnitOfWork struct {
	db *gorm.DB

	mu      sync.Mutex
	pending []pendingOp
	index   map[any]int
}

// NewGormUnitOfWork creates a unit of work over db
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, index: make(map[any]int)}
}

// Persist schedules an aggregate for insertion or update
func (u *GormUnitOfWork) Persist(entity any) error {
	return u.schedule(entity, false)
}

// Remove schedules an aggregate for deletion
func (u *GormUnitOfWork) Remove(entity any) error {
	switch entity.(type) {
	case *inventory.StockUnit, *trade.Sale:
	default:
		return shared.InvalidArgument(fmt.Sprintf("Cannot remove %T", entity))
	}
	return u.schedule(entity, true)
}

// Pending returns the number of scheduled operations
func (u *GormUnitOfWork) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}

// Flush writes every scheduled change in one transaction. The flushed
// operations leave the queue whether the transaction commits or rolls back;
// the caller reloads the aggregates before trying again.
func (u *GormUnitOfWork) Flush(ctx context.Context) error {
	u.mu.Lock()
	ops := u.pending
	u.pending = nil
	u.index = make(map[any]int)
	u.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := apply(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func (u *GormUnitOfWork) schedule(entity any, remove bool) error {
	switch entity.(type) {
	case *inventory.StockUnit, *inventory.SupplierOrder, *trade.Sale, *support.Ticket, *partner.Customer:
	default:
		return shared.InvalidArgument(fmt.Sprintf("Unsupported entity %T", entity))
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if i, ok := u.index[entity]; ok {
		u.pending[i].remove = remove
		return nil
	}
	u.index[entity] = len(u.pending)
	u.pending = append(u.pending, pendingOp{entity: entity, remove: remove})
	return nil
}

func apply(ctx context.Context, tx *gorm.DB, op pendingOp) error {
	switch e := op.entity.(type) {
	case *inventory.StockUnit:
		repo := NewGormStockUnitRepository(tx)
		if op.remove {
			return repo.Delete(ctx, e.ID)
		}
		return repo.Save(ctx, e)
	case *trade.Sale:
		repo := NewGormSaleRepository(tx)
		if op.remove {
			return repo.Delete(ctx, e.ID)
		}
		return repo.Save(ctx, e)
	case *inventory.SupplierOrder:
		return NewGormSupplierOrderRepository(tx).Save(ctx, e)
	case *support.Ticket:
		return NewGormTicketRepository(tx).Save(ctx, e)
	case *partner.Customer:
		return NewGormCustomerRepository(tx).Save(ctx, e)
	}
	return nil
}

// Ensure GormUnitOfWork implements Persister
var _ shared.Persister = (*GormUnitOfWork)(nil)
