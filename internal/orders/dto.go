package orders

import (
	"github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
	"github.com/google/uuid"
)

// PlaceInput is everything a checkout submission carries. Exactly one of
// AddressID or NewAddress must be set; the cart itself is re-read server
// side and never trusted from the client.
type PlaceInput struct {
	AddressID     *uuid.UUID
	NewAddress    *addresses.CreateInput
	PaymentMethod enums.PaymentMethod
	VoucherCode   *string
	ContactEmail  string
}

// ListInput holds the filters for an order listing query.
type ListInput struct {
	Status *enums.OrderStatus
	Page   pagination.Params
}

// Page is one cursor-paginated slice of orders.
type Page struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// newPage trims the lookahead row and derives the next cursor.
func newPage(rows []models.Order, limit int) *Page {
	page := &Page{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		page.NextCursor = &cursor
	}
	return page
}
