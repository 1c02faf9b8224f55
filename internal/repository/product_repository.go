package repository

import (
	"context"

	"github.com/honeynil/storefront-api/internal/models"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int32) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
}
