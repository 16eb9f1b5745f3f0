package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/JhnOkall/avenuefashion-backend/internal/catalog"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the single active cart per user. Lines for the same
// (product, variant) pair are merged rather than duplicated, and a line
// quantity never drops below one; removal is explicit.
type Service interface {
	GetForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
}

// NewService builds a cart service.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

// AddItemInput identifies what to add and how many units.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.getOrCreate(ctx, s.repo, userID)
}

func (s *service) getOrCreate(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if err := repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		product, err := catalogRepo.FindProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
		}

		var variant *models.ProductVariant
		if input.VariantID != nil {
			v, err := catalogRepo.FindVariant(ctx, *input.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
			}
			if v.ProductID != product.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
			}
			variant = v
		}

		cart, err := s.getOrCreate(ctx, repo, userID)
		if err != nil {
			return err
		}

		existing := findLine(cart, input.ProductID, input.VariantID)
		requested := input.Quantity
		if existing != nil {
			requested += existing.Quantity
		}
		if stock := catalog.EffectiveStock(product, variant); requested > stock {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": product.ID,
					"available":  stock,
					"requested":  requested,
				})
		}

		if existing != nil {
			existing.Quantity = requested
			if err := repo.UpdateItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			return nil
		}

		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: catalog.EffectivePrice(product, variant),
			Quantity:  input.Quantity,
		}
		if variant != nil {
			item.VariantID = &variant.ID
			item.VariantOptions = variant.Options
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, userID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := s.ownedItem(ctx, repo, userID, itemID)
		if err != nil {
			return err
		}

		catalogRepo := s.catalog.WithTx(tx)
		product, err := catalogRepo.FindProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		var variant *models.ProductVariant
		if item.VariantID != nil {
			variant, err = catalogRepo.FindVariant(ctx, *item.VariantID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
			}
		}
		if stock := catalog.EffectiveStock(product, variant); quantity > stock {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": product.ID,
					"available":  stock,
					"requested":  quantity,
				})
		}

		item.Quantity = quantity
		if err := repo.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := s.ownedItem(ctx, repo, userID, itemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ownedItem loads a cart line and checks it belongs to the user's cart.
func (s *service) ownedItem(ctx context.Context, repo Repository, userID, itemID uuid.UUID) (*models.CartItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if item.CartID != cart.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item does not belong to user")
	}
	return item, nil
}

func findLine(cart *models.Cart, productID uuid.UUID, variantID *uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		line := &cart.Items[i]
		if line.ProductID != productID {
			continue
		}
		if (line.VariantID == nil) != (variantID == nil) {
			continue
		}
		if line.VariantID != nil && *line.VariantID != *variantID {
			continue
		}
		return line
	}
	return nil
}
