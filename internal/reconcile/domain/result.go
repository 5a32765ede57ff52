package domain

// StepResult records one best-effort side effect. Failures here never fail the delivery.
type StepResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of reconciling one entity from a webhook.
type Result struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	Event        string       `json:"event,omitempty"`
	Entity       string       `json:"entity,omitempty"`
	EntityID     string       `json:"entity_id,omitempty"`
	Status       string       `json:"status,omitempty"`
	Acknowledged bool         `json:"acknowledged,omitempty"`
	Steps        []StepResult `json:"steps,omitempty"`
	Cascades     []*Result    `json:"cascades,omitempty"`
}

func (r *Result) AddStep(step StepResult) {
	r.Steps = append(r.Steps, step)
}

// Failure is a structured handler failure, e.g. a payload without an entity id.
func Failure(event, entity, message string) *Result {
	return &Result{
		Success: false,
		Message: message,
		Event:   event,
		Entity:  entity,
	}
}

// Entity names used in results.
const (
	EntityPayment      = "payment"
	EntityOrder        = "order"
	EntitySubscription = "subscription"
	EntityInvoice      = "invoice"
)

// Event types with side effects beyond the upsert.
const (
	EventPaymentFailed       = "payment.failed"
	EventPaymentCaptured     = "payment.captured"
	EventSubscriptionCharged = "subscription.charged"
	EventInvoicePaid         = "invoice.paid"
)
