package controllers

import (
	"net/http"

	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/internal/catalog"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

func ProductList(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := repo.ListActiveProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}
