package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type PostgresProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *zap.Logger) *PostgresProductRepository {
	return &PostgresProductRepository{db: db, logger: logger}
}

var _ repository.ProductRepository = (*PostgresProductRepository)(nil)

const productColumns = `id, name, description, price_cents, currency, discount_percent, image_url, created_at`

func scanProduct(row interface{ Scan(...any) error }, p *models.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.DiscountPercent, &p.ImageURL, &p.CreatedAt)
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id int32) (_ *models.Product, err error) {
	ctx, span, finish := instrument(ctx, "product-repository", "GetProductByID")
	defer finish(&err)
	span.SetAttributes(attribute.Int("product_id", int(id)))

	var p models.Product
	err = scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), &p)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrProductNotFound
		return nil, err
	}
	if err != nil {
		r.logger.Error("failed to get product", zap.String("method", "GetByID"), zap.Int32("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *PostgresProductRepository) List(ctx context.Context, filter models.ProductFilter) (_ []models.Product, err error) {
	ctx, _, finish := instrument(ctx, "product-repository", "ListProducts")
	defer finish(&err)

	var (
		conds []string
		args  []any
	)
	if filter.NewArrivalsSince != nil {
		args = append(args, *filter.NewArrivalsSince)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.OnPromotion {
		conds = append(conds, "discount_percent > 0")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list products", zap.String("method", "List"), zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err = scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func (r *PostgresProductRepository) Create(ctx context.Context, p *models.Product) (err error) {
	ctx, _, finish := instrument(ctx, "product-repository", "CreateProduct")
	defer finish(&err)

	if p == nil {
		err = pkgerrors.ErrNilProduct
		return err
	}
	if p.PriceCents <= 0 {
		err = fmt.Errorf("%w: price must be positive", pkgerrors.ErrInvalidInput)
		return err
	}
	if p.DiscountPercent < 0 || p.DiscountPercent >= 100 {
		err = fmt.Errorf("%w: discount must be in [0, 100)", pkgerrors.ErrInvalidInput)
		return err
	}

	query := `INSERT INTO products (name, description, price_cents, currency, discount_percent, image_url) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, p.Name, p.Description, p.PriceCents, p.Currency, p.DiscountPercent, p.ImageURL).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create product", zap.String("method", "Create"), zap.String("name", p.Name), zap.Error(err))
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Info("product created", zap.String("method", "Create"), zap.Int32("product_id", p.ID))
	return nil
}
