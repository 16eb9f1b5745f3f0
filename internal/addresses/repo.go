package addresses

import (
	"context"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for saved addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, address *models.Address) error
	Update(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, id uuid.UUID) error
	DemoteDefaults(ctx context.Context, userID uuid.UUID) error
	MostRecentlyUpdated(ctx context.Context, userID uuid.UUID) (*models.Address, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an addresses repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Preload("City").
		Preload("County").
		Preload("Country").
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).
		Preload("City").
		Preload("County").
		Preload("Country").
		Where("id = ?", id).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) Create(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *repository) Update(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Save(address).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id).Error
}

func (r *repository) DemoteDefaults(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default", userID).
		Update("is_default", false).Error
}

func (r *repository) MostRecentlyUpdated(ctx context.Context, userID uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}
