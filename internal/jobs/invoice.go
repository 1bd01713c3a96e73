package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/dukerupert/freyja/internal/events"
)

// Job type constants for invoice jobs
const (
	JobTypeMaterializeInvoice = "invoice:materialize"
)

// MaterializeInvoicePayload identifies the order to issue an invoice for.
type MaterializeInvoicePayload struct {
	OrderID string `json:"order_id"`
	StoreID string `json:"store_id"`
}

// Validate reports a payload missing either id.
func (p MaterializeInvoicePayload) Validate() error {
	if p.OrderID == "" || p.StoreID == "" {
		return fmt.Errorf("%s: order_id and store_id are required", JobTypeMaterializeInvoice)
	}
	return nil
}

// MaterializeInvoiceFromEvent decodes an orders.created message into a
// materialization payload.
func MaterializeInvoiceFromEvent(data []byte) (MaterializeInvoicePayload, error) {
	var evt events.OrderEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return MaterializeInvoicePayload{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p := MaterializeInvoicePayload{
		OrderID: evt.OrderID,
		StoreID: evt.StoreID,
	}
	if err := p.Validate(); err != nil {
		return MaterializeInvoicePayload{}, err
	}
	return p, nil
}
