package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MedicineFixture represents test medicine data
type MedicineFixture struct {
	ID              string
	Name            string
	CategoryID      *string
	BrandID         *string
	UnitPrice       decimal.Decimal
	OriginalPrice   *decimal.Decimal
	DiscountFlag    bool
	DiscountPercent *int
	CreatedAt       time.Time
}

// BatchFixture represents test batch data
type BatchFixture struct {
	ID           string
	MedicineID   string
	BatchNumber  string
	ExpiryDate   time.Time
	Quantity     int
	SupplierID   *string
	PurchaseDate time.Time
	UnitCost     decimal.Decimal
	Hidden       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderFixture represents test order data
type OrderFixture struct {
	ID          string
	UserID      string
	TotalAmount decimal.Decimal
	Status      string
	Refunded    bool
	Lines       []OrderLineFixture
	CreatedAt   time.Time
}

// OrderLineFixture represents a single line of a test order
type OrderLineFixture struct {
	ID         string
	OrderID    string
	MedicineID string
	BatchID    *string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Medicine creates a medicine fixture with defaults
func (f *FixtureFactory) Medicine(opts ...func(*MedicineFixture)) MedicineFixture {
	seq := f.nextSeq()

	med := MedicineFixture{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("Test Medicine %d", seq),
		UnitPrice: decimal.NewFromFloat(9.99),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&med)
	}

	return med
}

// WithMedicineName sets the medicine name
func WithMedicineName(name string) func(*MedicineFixture) {
	return func(m *MedicineFixture) {
		m.Name = name
	}
}

// WithUnitPrice sets the medicine unit price
func WithUnitPrice(price decimal.Decimal) func(*MedicineFixture) {
	return func(m *MedicineFixture) {
		m.UnitPrice = price
	}
}

// WithDiscount marks the medicine as discounted from an original price
func WithDiscount(original decimal.Decimal, percent int) func(*MedicineFixture) {
	return func(m *MedicineFixture) {
		m.OriginalPrice = &original
		m.DiscountFlag = true
		m.DiscountPercent = &percent
	}
}

// Batch creates a batch fixture with defaults: sellable, 100 units,
// expiring one year out
func (f *FixtureFactory) Batch(medicineID string, opts ...func(*BatchFixture)) BatchFixture {
	seq := f.nextSeq()

	batch := BatchFixture{
		ID:           uuid.New().String(),
		MedicineID:   medicineID,
		BatchNumber:  fmt.Sprintf("BN-%04d", seq),
		ExpiryDate:   time.Now().AddDate(1, 0, 0),
		Quantity:     100,
		PurchaseDate: time.Now().AddDate(0, -1, 0),
		UnitCost:     decimal.NewFromFloat(5.50),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(&batch)
	}

	return batch
}

// WithExpiry sets the batch expiry date
func WithExpiry(expiry time.Time) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.ExpiryDate = expiry
	}
}

// WithQuantity sets the batch quantity
func WithQuantity(qty int) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.Quantity = qty
	}
}

// WithHidden sets the batch hidden flag
func WithHidden(hidden bool) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.Hidden = hidden
	}
}

// WithBatchNumber sets the batch number
func WithBatchNumber(number string) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.BatchNumber = number
	}
}

// WithSupplier sets the batch supplier
func WithSupplier(supplierID string) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.SupplierID = &supplierID
	}
}

// Order creates an order fixture with a single line
func (f *FixtureFactory) Order(opts ...func(*OrderFixture)) OrderFixture {
	f.nextSeq()

	order := OrderFixture{
		ID:          uuid.New().String(),
		UserID:      uuid.New().String(),
		TotalAmount: decimal.NewFromFloat(19.98),
		Status:      "placed",
		CreatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(&order)
	}

	return order
}

// WithTotalAmount sets the order total
func WithTotalAmount(total decimal.Decimal) func(*OrderFixture) {
	return func(o *OrderFixture) {
		o.TotalAmount = total
	}
}

// WithOrderLine appends a line to the order
func WithOrderLine(medicineID string, batchID *string, quantity int, unitPrice decimal.Decimal) func(*OrderFixture) {
	return func(o *OrderFixture) {
		o.Lines = append(o.Lines, OrderLineFixture{
			ID:         uuid.New().String(),
			OrderID:    o.ID,
			MedicineID: medicineID,
			BatchID:    batchID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
		})
	}
}
