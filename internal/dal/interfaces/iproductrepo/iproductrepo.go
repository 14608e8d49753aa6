package iproductrepo

import (
	"context"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/product"
)

// IProductRepository looks products up by id.
type IProductRepository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error)
}
