package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages saved shipping addresses. Every mutation preserves the
// invariant that a user has zero or one default address; the
// demote-then-set sequence always runs inside one transaction.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	GetForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error)
	Update(ctx context.Context, addressID, userID uuid.UUID, input UpdateInput) (*models.Address, error)
	Delete(ctx context.Context, addressID, userID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an addresses service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("addresses repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// CreateInput carries the fields for a new address.
type CreateInput struct {
	RecipientName string
	Phone         string
	StreetAddress string
	CountryID     uuid.UUID
	CountyID      uuid.UUID
	CityID        uuid.UUID
	IsDefault     bool
}

func (i CreateInput) validate() error {
	missing := []string{}
	if strings.TrimSpace(i.RecipientName) == "" {
		missing = append(missing, "recipient_name")
	}
	if strings.TrimSpace(i.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(i.StreetAddress) == "" {
		missing = append(missing, "street_address")
	}
	if i.CountryID == uuid.Nil {
		missing = append(missing, "country_id")
	}
	if i.CountyID == uuid.Nil {
		missing = append(missing, "county_id")
	}
	if i.CityID == uuid.Nil {
		missing = append(missing, "city_id")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required address fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addresses, nil
}

func (s *service) GetForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	address, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
	}
	return address, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	address := &models.Address{
		UserID:        userID,
		RecipientName: strings.TrimSpace(input.RecipientName),
		Phone:         strings.TrimSpace(input.Phone),
		StreetAddress: strings.TrimSpace(input.StreetAddress),
		CountryID:     input.CountryID,
		CountyID:      input.CountyID,
		CityID:        input.CityID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count addresses")
		}

		// The first address is always the default.
		address.IsDefault = input.IsDefault || count == 0

		if address.IsDefault {
			if err := repo.DemoteDefaults(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "demote default addresses")
			}
		}
		if err := repo.Create(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// UpdateInput carries partial address updates; nil fields are untouched.
type UpdateInput struct {
	RecipientName *string
	Phone         *string
	StreetAddress *string
	CountryID     *uuid.UUID
	CountyID      *uuid.UUID
	CityID        *uuid.UUID
	IsDefault     *bool
}

func (s *service) Update(ctx context.Context, addressID, userID uuid.UUID, input UpdateInput) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}

	var updated *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		address, err := repo.FindByID(ctx, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		if address.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
		}

		applyUpdate(address, input)

		if input.IsDefault != nil && *input.IsDefault && !address.IsDefault {
			if err := repo.DemoteDefaults(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "demote default addresses")
			}
			address.IsDefault = true
		}

		if err := repo.Update(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		updated = address
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyUpdate(address *models.Address, input UpdateInput) {
	if input.RecipientName != nil {
		address.RecipientName = strings.TrimSpace(*input.RecipientName)
	}
	if input.Phone != nil {
		address.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.StreetAddress != nil {
		address.StreetAddress = strings.TrimSpace(*input.StreetAddress)
	}
	if input.CountryID != nil {
		address.CountryID = *input.CountryID
	}
	if input.CountyID != nil {
		address.CountyID = *input.CountyID
	}
	if input.CityID != nil {
		address.CityID = *input.CityID
	}
	if input.IsDefault != nil && !*input.IsDefault {
		address.IsDefault = false
	}
}

func (s *service) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if addressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		address, err := repo.FindByID(ctx, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		if address.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
		}

		wasDefault := address.IsDefault

		if err := repo.Delete(ctx, addressID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
		}

		if !wasDefault {
			return nil
		}

		// Promote the most recently touched survivor so the user keeps a
		// usable default.
		next, err := repo.MostRecentlyUpdated(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find replacement default")
		}
		next.IsDefault = true
		if err := repo.Update(ctx, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote replacement default")
		}
		return nil
	})
}
