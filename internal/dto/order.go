package dto

import (
	"time"

	"github.com/abasto-labs/abasto/internal/entity"
)

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID         int64               `json:"id"`
	SchoolID   int64               `json:"school_id"`
	SchoolName string              `json:"school_name,omitempty"`
	Requester  string              `json:"requester"`
	Notes      string              `json:"notes,omitempty"`
	Status     string              `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	ApprovedAt *time.Time          `json:"approved_at,omitempty"`
	Lines      []OrderLineResponse `json:"lines,omitempty"`
}

// OrderLineResponse is one product line within an order.
type OrderLineResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ProductCode string `json:"product_code,omitempty"`
	Quantity    int    `json:"quantity"`
}

// NewOrderResponse maps an order entity, including whatever relations were
// loaded, to its transport shape.
func NewOrderResponse(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:         order.ID,
		SchoolID:   order.SchoolID,
		Requester:  order.Requester,
		Notes:      order.Notes,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
		ApprovedAt: order.ApprovedAt,
	}
	if order.School != nil {
		resp.SchoolName = order.School.Name
	}
	for _, line := range order.Lines {
		lr := OrderLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
		if line.Product != nil {
			lr.ProductName = line.Product.Name
			lr.ProductCode = line.Product.Code
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}
