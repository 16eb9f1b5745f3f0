package locations

import (
	"context"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines read operations over the delivery location hierarchy.
type Repository interface {
	ListCountries(ctx context.Context) ([]models.Country, error)
	ListCounties(ctx context.Context, countryID uuid.UUID) ([]models.County, error)
	ListCities(ctx context.Context, countyID uuid.UUID) ([]models.City, error)
	FindCity(ctx context.Context, cityID uuid.UUID) (*models.City, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a locations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCountries(ctx context.Context) ([]models.Country, error) {
	var countries []models.Country
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&countries).Error
	if err != nil {
		return nil, err
	}
	return countries, nil
}

func (r *repository) ListCounties(ctx context.Context, countryID uuid.UUID) ([]models.County, error) {
	var counties []models.County
	err := r.db.WithContext(ctx).
		Where("country_id = ?", countryID).
		Order("name ASC").
		Find(&counties).Error
	if err != nil {
		return nil, err
	}
	return counties, nil
}

func (r *repository) ListCities(ctx context.Context, countyID uuid.UUID) ([]models.City, error) {
	var cities []models.City
	err := r.db.WithContext(ctx).
		Where("county_id = ?", countyID).
		Order("name ASC").
		Find(&cities).Error
	if err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *repository) FindCity(ctx context.Context, cityID uuid.UUID) (*models.City, error) {
	var city models.City
	err := r.db.WithContext(ctx).
		Where("id = ?", cityID).
		First(&city).Error
	if err != nil {
		return nil, err
	}
	return &city, nil
}
