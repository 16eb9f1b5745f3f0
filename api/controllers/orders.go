package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JhnOkall/avenuefashion-backend/api/middleware"
	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/api/validators"
	addresssvc "github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	ordersvc "github.com/JhnOkall/avenuefashion-backend/internal/orders"
	paystackwebhook "github.com/JhnOkall/avenuefashion-backend/internal/webhooks/paystack"
	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
)

type orderAddressPayload struct {
	RecipientName string    `json:"recipient_name" validate:"required"`
	Phone         string    `json:"phone" validate:"required"`
	StreetAddress string    `json:"street_address" validate:"required"`
	CountryID     uuid.UUID `json:"country_id" validate:"required"`
	CountyID      uuid.UUID `json:"county_id" validate:"required"`
	CityID        uuid.UUID `json:"city_id" validate:"required"`
	IsDefault     bool      `json:"is_default"`
}

type orderPlaceRequest struct {
	AddressID     *uuid.UUID           `json:"address_id"`
	NewAddress    *orderAddressPayload `json:"new_address"`
	PaymentMethod string               `json:"payment_method" validate:"required,oneof=paystack pay_on_delivery"`
	VoucherCode   *string              `json:"voucher_code"`
	ContactEmail  string               `json:"contact_email" validate:"required,email"`
}

// OrderPlace submits the checkout. The cart is re-read and re-priced server
// side; the response carries the frozen pricing snapshot.
func OrderPlace(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orderPlaceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
			return
		}

		input := ordersvc.PlaceInput{
			AddressID:     payload.AddressID,
			PaymentMethod: method,
			VoucherCode:   payload.VoucherCode,
			ContactEmail:  payload.ContactEmail,
		}
		if payload.NewAddress != nil {
			input.NewAddress = &addresssvc.CreateInput{
				RecipientName: payload.NewAddress.RecipientName,
				Phone:         payload.NewAddress.Phone,
				StreetAddress: payload.NewAddress.StreetAddress,
				CountryID:     payload.NewAddress.CountryID,
				CountyID:      payload.NewAddress.CountyID,
				CityID:        payload.NewAddress.CityID,
				IsDefault:     payload.NewAddress.IsDefault,
			}
		}

		order, err := svc.Place(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetForUser(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "orderRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderTimeline(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timeline, err := svc.TimelineForUser(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "orderRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, timeline)
	}
}

// OrderPaymentStatus is the client poll fallback for when the gateway
// webhook is delayed. It reconciles against the gateway and returns the
// current payment state plus the poll policy so clients stop after the
// configured bound instead of polling forever.
func OrderPaymentStatus(svc *paystackwebhook.Service, checkout config.CheckoutConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Reconcile(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "orderRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"order_id":       order.OrderID,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		}
		if order.PaymentStatus == enums.PaymentStatusPending {
			payload["poll"] = map[string]any{
				"max_attempts":     checkout.PollMaxAttempts,
				"interval_seconds": int(checkout.PollInterval.Seconds()),
			}
		}
		responses.WriteSuccess(w, payload)
	}
}
