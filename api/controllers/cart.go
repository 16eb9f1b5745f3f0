package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JhnOkall/avenuefashion-backend/api/middleware"
	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/api/validators"
	cartsvc "github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

type cartAddRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := svc.GetForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), cartsvc.AddItemInput{
			ProductID: payload.ProductID,
			VariantID: payload.VariantID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.UpdateItemQuantity(r.Context(), middleware.UserIDFromContext(r.Context()), itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Clear(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
