package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	// Stock ledger events
	EventStockReserved = "pharmacy.stock.reserved"
	EventStockRestored = "pharmacy.stock.restored"

	// Batch events
	EventBatchReceived = "pharmacy.batch.received"
	EventBatchHidden   = "pharmacy.batch.hidden"

	// Resolution events
	EventMedicineDiscounted = "pharmacy.medicine.discounted"
	EventMedicineRemoved    = "pharmacy.medicine.removed"

	// Workflow events
	EventSupplierReturnApproved = "pharmacy.supplier_return.approved"
	EventRefundApproved         = "pharmacy.refund.approved"
)

// Exchange names
const (
	ExchangePharmacyEvents = "pharmacy.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock Ledger Events

// StockReservedEvent is published when stock is drawn down for an order
type StockReservedEvent struct {
	MedicineID string           `json:"medicine_id"`
	Quantity   int              `json:"quantity"`
	Reference  string           `json:"reference,omitempty"`
	Lines      []StockEventLine `json:"lines"`
}

// StockRestoredEvent is published when reserved stock is returned
type StockRestoredEvent struct {
	MedicineID string           `json:"medicine_id"`
	Quantity   int              `json:"quantity"`
	Reference  string           `json:"reference,omitempty"`
	Lines      []StockEventLine `json:"lines"`
}

// StockEventLine describes one batch touched by a ledger movement
type StockEventLine struct {
	BatchID     string `json:"batch_id"`
	Quantity    int    `json:"quantity"`
	NewQuantity int    `json:"new_quantity"`
}

// Batch Events

// BatchReceivedEvent is published when a new batch enters stock
type BatchReceivedEvent struct {
	BatchID     string    `json:"batch_id"`
	MedicineID  string    `json:"medicine_id"`
	BatchNumber string    `json:"batch_number"`
	ExpiryDate  time.Time `json:"expiry_date"`
	Quantity    int       `json:"quantity"`
}

// BatchHiddenEvent is published when a batch's visibility changes
type BatchHiddenEvent struct {
	BatchID    string `json:"batch_id"`
	MedicineID string `json:"medicine_id"`
	Hidden     bool   `json:"hidden"`
}

// Resolution Events

// MedicineDiscountedEvent is published when a near-expiry resolution
// applies a discount to a medicine
type MedicineDiscountedEvent struct {
	MedicineID      string          `json:"medicine_id"`
	BatchID         string          `json:"batch_id"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	DiscountPercent int             `json:"discount_percent"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
}

// MedicineRemovedEvent is published when an expired resolution removes a
// medicine and all of its batches
type MedicineRemovedEvent struct {
	MedicineID   string `json:"medicine_id"`
	BatchID      string `json:"batch_id"`
	BatchesGone  int    `json:"batches_gone"`
	ResolvedBy   string `json:"resolved_by,omitempty"`
}

// Workflow Events

// SupplierReturnApprovedEvent is published when a supplier return is
// approved and the replacement batch is applied
type SupplierReturnApprovedEvent struct {
	RequestID     string    `json:"request_id"`
	BatchID       string    `json:"batch_id"`
	MedicineID    string    `json:"medicine_id"`
	OldExpiryDate time.Time `json:"old_expiry_date"`
	NewExpiryDate time.Time `json:"new_expiry_date"`
	NewQuantity   int       `json:"new_quantity"`
	ApprovedBy    string    `json:"approved_by"`
}

// RefundApprovedEvent is published when a refund is approved and stock
// is restored to the originating batches
type RefundApprovedEvent struct {
	RefundID     string          `json:"refund_id"`
	OrderID      string          `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	LinesRestored int            `json:"lines_restored"`
	ApprovedBy   string          `json:"approved_by"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
