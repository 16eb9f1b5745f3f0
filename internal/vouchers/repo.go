package vouchers

import (
	"context"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for vouchers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
	Update(ctx context.Context, voucher *models.Voucher) error
	List(ctx context.Context) ([]models.Voucher, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vouchers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *repository) Update(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Save(voucher).Error
}

func (r *repository) List(ctx context.Context) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&vouchers).Error
	if err != nil {
		return nil, err
	}
	return vouchers, nil
}
