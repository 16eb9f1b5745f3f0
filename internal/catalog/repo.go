package catalog

import (
	"context"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository is the read-only catalog surface the order core depends on:
// price and stock lookups at cart and placement time.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("active = ?", true).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// EffectivePrice returns the price a (product, variant) pair sells at; a
// variant without its own price inherits the product price.
func EffectivePrice(product *models.Product, variant *models.ProductVariant) decimal.Decimal {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return product.Price
}

// EffectiveStock returns the sellable units for a (product, variant) pair.
func EffectiveStock(product *models.Product, variant *models.ProductVariant) int {
	if variant != nil {
		return variant.Stock
	}
	return product.Stock
}
