package inventory

// ListRequest represents a paginated list request
type ListRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Validate validates and normalizes list request parameters
func (req *ListRequest) Validate() {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.Limit > 200 {
		req.Limit = 200
	}
}

// CreateWidgetRequest represents catalog item creation data
type CreateWidgetRequest struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int64  `json:"quantity"`
}

// PlaceOrderRequest represents order placement data. The widget may be
// addressed by ID or by SKU.
type PlaceOrderRequest struct {
	WidgetID int64  `json:"widgetId,omitempty"`
	SKU      string `json:"sku,omitempty"`
	Quantity int64  `json:"quantity"`
}
