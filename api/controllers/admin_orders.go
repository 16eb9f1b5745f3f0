package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	"github.com/JhnOkall/avenuefashion-backend/api/validators"
	ordersvc "github.com/JhnOkall/avenuefashion-backend/internal/orders"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
)

type orderAdvanceRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

type orderCancelRequest struct {
	Reason string `json:"reason"`
}

type orderNoteRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ordersvc.ListInput{
			Page: pagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		page, err := svc.ListAll(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminOrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetByRef(r.Context(), chi.URLParam(r, "orderRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderAdvance moves an order forward through fulfillment. Cancellation
// has its own endpoint; attempting it here is rejected.
func AdminOrderAdvance(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orderAdvanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
			return
		}

		order, err := svc.AdvanceStatus(r.Context(), chi.URLParam(r, "orderRef"), status, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orderCancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), chi.URLParam(r, "orderRef"), payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrderNote(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orderNoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AppendNote(r.Context(), chi.URLParam(r, "orderRef"), payload.Title, payload.Description); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "recorded"})
	}
}
