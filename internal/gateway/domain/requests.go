package domain

type CreateOrderRequest struct {
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
	Receipt  string `json:"receipt,omitempty" validate:"max=40"`
	Notes    Notes  `json:"notes,omitempty"`
}

type CapturePaymentRequest struct {
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

type CreateSubscriptionRequest struct {
	PlanID         string `json:"plan_id" validate:"required"`
	CustomerNotify int    `json:"customer_notify" validate:"oneof=0 1"`
	Quantity       int    `json:"quantity" validate:"gte=1"`
	StartAt        *int64 `json:"start_at,omitempty"`
	TotalCount     *int   `json:"total_count,omitempty" validate:"omitempty,gte=1"`
	Notes          Notes  `json:"notes,omitempty"`
}

type CreatePlanRequest struct {
	Period   string   `json:"period" validate:"oneof=daily weekly monthly yearly"`
	Interval int      `json:"interval" validate:"gte=1"`
	Item     PlanItem `json:"item"`
	Notes    Notes    `json:"notes,omitempty"`
}

type ListSubscriptionsRequest struct {
	Count      int    `validate:"gte=1,lte=100"`
	Skip       int    `validate:"gte=0"`
	PlanID     string
	CustomerID string
}

// Timing values accepted by pause and resume.
const (
	AtImmediate = "immediate"
	AtCycleEnd  = "cycle_end"
)
