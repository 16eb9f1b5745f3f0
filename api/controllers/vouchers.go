package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/api/validators"
	vouchersvc "github.com/JhnOkall/avenuefashion-backend/internal/vouchers"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

type voucherValidateRequest struct {
	Code string `json:"code" validate:"required"`
}

type voucherCreateRequest struct {
	Code          string     `json:"code" validate:"required"`
	DiscountType  string     `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue string     `json:"discount_value" validate:"required"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Active        bool       `json:"active"`
}

type voucherUpdateRequest struct {
	DiscountValue *string    `json:"discount_value"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Active        *bool      `json:"active"`
}

// VoucherValidate checks a code without reserving it. Checkout calls this
// to preview the discount; placement re-validates server side.
func VoucherValidate(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload voucherValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		terms, err := svc.Validate(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"code":           terms.Code,
			"discount_type":  terms.Type,
			"discount_value": terms.Value,
			"valid":          true,
		})
	}
}

func VoucherList(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func VoucherCreate(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload voucherCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseVoucherType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type"))
			return
		}
		value, err := decimal.NewFromString(payload.DiscountValue)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be numeric"))
			return
		}

		created, err := svc.Create(r.Context(), vouchersvc.CreateInput{
			Code:          payload.Code,
			DiscountType:  discountType,
			DiscountValue: value,
			ExpiresAt:     payload.ExpiresAt,
			Active:        payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func VoucherUpdate(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := validators.ParsePathUUID(chi.URLParam(r, "voucherID"), "voucherID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload voucherUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := vouchersvc.UpdateInput{
			ExpiresAt: payload.ExpiresAt,
			Active:    payload.Active,
		}
		if payload.DiscountValue != nil {
			value, err := decimal.NewFromString(*payload.DiscountValue)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be numeric"))
				return
			}
			input.DiscountValue = &value
		}

		updated, err := svc.Update(r.Context(), voucherID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
