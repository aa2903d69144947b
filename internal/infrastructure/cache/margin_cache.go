package cache

import (
	"context"
	"time"

	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
)

// MarginCache stores computed sale margins keyed by sale id.
// Get returns (nil, nil) on a miss.
type MarginCache interface {
	Get(ctx context.Context, saleID uuid.UUID) (*trade.SaleMargin, error)
	Set(ctx context.Context, saleID uuid.UUID, margin trade.SaleMargin, ttl time.Duration) error
	Evict(ctx context.Context, saleIDs ...uuid.UUID) error
	Close() error
}

const keyPrefix = "commerce:margin:"

func marginKey(saleID uuid.UUID) string {
	return keyPrefix + saleID.String()
}
