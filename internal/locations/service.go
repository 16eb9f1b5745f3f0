package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the country/county/city hierarchy to checkout forms and
// the city delivery fee to the pricing pipeline.
type Service interface {
	Countries(ctx context.Context) ([]models.Country, error)
	Counties(ctx context.Context, countryID uuid.UUID) ([]models.County, error)
	Cities(ctx context.Context, countyID uuid.UUID) ([]models.City, error)
	CityByID(ctx context.Context, cityID uuid.UUID) (*models.City, error)
}

type service struct {
	repo Repository
}

// NewService builds a locations service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("locations repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Countries(ctx context.Context) ([]models.Country, error) {
	countries, err := s.repo.ListCountries(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list countries")
	}
	return countries, nil
}

func (s *service) Counties(ctx context.Context, countryID uuid.UUID) ([]models.County, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id is required")
	}
	counties, err := s.repo.ListCounties(ctx, countryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list counties")
	}
	return counties, nil
}

func (s *service) Cities(ctx context.Context, countyID uuid.UUID) ([]models.City, error) {
	if countyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "county id is required")
	}
	cities, err := s.repo.ListCities(ctx, countyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cities")
	}
	return cities, nil
}

func (s *service) CityByID(ctx context.Context, cityID uuid.UUID) (*models.City, error) {
	if cityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city id is required")
	}
	city, err := s.repo.FindCity(ctx, cityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "city not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load city")
	}
	return city, nil
}
