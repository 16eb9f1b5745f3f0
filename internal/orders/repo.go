package orders

import (
	"context"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence operations for orders, their lines and
// their timeline events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderRef string) (*models.Order, error)
	FindByOrderIDForUpdate(ctx context.Context, orderRef string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	AppendEvent(ctx context.Context, event *models.OrderTimelineEvent) error
	HasEvent(ctx context.Context, orderID uuid.UUID, stage enums.TimelineStage) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Timeline", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_id = ?", orderRef).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOrderIDForUpdate takes a row lock so concurrent webhook deliveries
// for the same order serialize.
func (r *repository) FindByOrderIDForUpdate(ctx context.Context, orderRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderRef).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	return r.listPage(query, cursor, limit)
}

func (r *repository) List(ctx context.Context, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.listPage(query, cursor, limit)
}

func (r *repository) listPage(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var orders []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Save(order).Error
}

func (r *repository) AppendEvent(ctx context.Context, event *models.OrderTimelineEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) HasEvent(ctx context.Context, orderID uuid.UUID, stage enums.TimelineStage) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderTimelineEvent{}).
		Where("order_id = ? AND stage = ?", orderID, stage).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
