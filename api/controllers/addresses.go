package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JhnOkall/avenuefashion-backend/api/middleware"
	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/api/validators"
	addresssvc "github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

type addressRequest struct {
	RecipientName string    `json:"recipient_name" validate:"required"`
	Phone         string    `json:"phone" validate:"required"`
	StreetAddress string    `json:"street_address" validate:"required"`
	CountryID     uuid.UUID `json:"country_id" validate:"required"`
	CountyID      uuid.UUID `json:"county_id" validate:"required"`
	CityID        uuid.UUID `json:"city_id" validate:"required"`
	IsDefault     bool      `json:"is_default"`
}

type addressUpdateRequest struct {
	RecipientName *string    `json:"recipient_name"`
	Phone         *string    `json:"phone"`
	StreetAddress *string    `json:"street_address"`
	CountryID     *uuid.UUID `json:"country_id"`
	CountyID      *uuid.UUID `json:"county_id"`
	CityID        *uuid.UUID `json:"city_id"`
	IsDefault     *bool      `json:"is_default"`
}

func AddressList(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addresses, err := svc.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addresses)
	}
}

func AddressCreate(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), addresssvc.CreateInput{
			RecipientName: payload.RecipientName,
			Phone:         payload.Phone,
			StreetAddress: payload.StreetAddress,
			CountryID:     payload.CountryID,
			CountyID:      payload.CountyID,
			CityID:        payload.CityID,
			IsDefault:     payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AddressUpdate(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressID"), "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), addressID, middleware.UserIDFromContext(r.Context()), addresssvc.UpdateInput{
			RecipientName: payload.RecipientName,
			Phone:         payload.Phone,
			StreetAddress: payload.StreetAddress,
			CountryID:     payload.CountryID,
			CountyID:      payload.CountyID,
			CityID:        payload.CityID,
			IsDefault:     payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AddressDelete(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressID"), "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), addressID, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
