package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JhnOkall/avenuefashion-backend/internal/pricing"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service validates voucher codes at apply-time and exposes admin CRUD.
// Validation is read-only: no redemption counter is kept, a voucher stays
// usable until it expires or is deactivated.
type Service interface {
	Validate(ctx context.Context, code string) (*pricing.VoucherTerms, error)
	Create(ctx context.Context, input CreateInput) (*models.Voucher, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Voucher, error)
	List(ctx context.Context) ([]models.Voucher, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a vouchers service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vouchers repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// NormalizeCode canonicalizes a voucher code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Validate(ctx context.Context, code string) (*pricing.VoucherTerms, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}

	voucher, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}

	if voucher.ExpiresAt != nil && voucher.ExpiresAt.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher expired").
			WithDetails(map[string]any{"code": normalized, "reason": "expired"})
	}
	if !voucher.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher inactive").
			WithDetails(map[string]any{"code": normalized, "reason": "inactive"})
	}

	return &pricing.VoucherTerms{
		Code:  voucher.Code,
		Type:  voucher.DiscountType,
		Value: voucher.DiscountValue,
	}, nil
}

// CreateInput carries the fields an admin supplies for a new voucher.
type CreateInput struct {
	Code          string
	DiscountType  enums.VoucherType
	DiscountValue decimal.Decimal
	ExpiresAt     *time.Time
	Active        bool
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Voucher, error) {
	normalized := NormalizeCode(input.Code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be non-negative")
	}
	if input.DiscountType == enums.VoucherTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}

	if _, err := s.repo.FindByCode(ctx, normalized); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "voucher code already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check voucher code")
	}

	voucher := &models.Voucher{
		Code:          normalized,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		ExpiresAt:     input.ExpiresAt,
		Active:        input.Active,
	}
	if err := s.repo.Create(ctx, voucher); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create voucher")
	}
	return voucher, nil
}

// UpdateInput carries partial voucher updates; nil fields are untouched.
type UpdateInput struct {
	DiscountValue *decimal.Decimal
	ExpiresAt     *time.Time
	Active        *bool
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Voucher, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id is required")
	}

	voucher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}

	if input.DiscountValue != nil {
		if input.DiscountValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be non-negative")
		}
		voucher.DiscountValue = *input.DiscountValue
	}
	if input.ExpiresAt != nil {
		voucher.ExpiresAt = input.ExpiresAt
	}
	if input.Active != nil {
		voucher.Active = *input.Active
	}

	if err := s.repo.Update(ctx, voucher); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update voucher")
	}
	return voucher, nil
}

func (s *service) List(ctx context.Context) ([]models.Voucher, error) {
	vouchers, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vouchers")
	}
	return vouchers, nil
}
