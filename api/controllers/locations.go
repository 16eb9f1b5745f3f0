package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/api/validators"
	locationsvc "github.com/JhnOkall/avenuefashion-backend/internal/locations"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

func LocationCountries(svc locationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		countries, err := svc.Countries(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, countries)
	}
}

func LocationCounties(svc locationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		countryID, err := validators.ParsePathUUID(chi.URLParam(r, "countryID"), "countryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counties, err := svc.Counties(r.Context(), countryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counties)
	}
}

func LocationCities(svc locationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		countyID, err := validators.ParsePathUUID(chi.URLParam(r, "countyID"), "countyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cities, err := svc.Cities(r.Context(), countyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cities)
	}
}
