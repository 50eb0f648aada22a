package events

import (
	"context"

	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// PharmacyEventPublisher publishes pharmacy inventory events.
// Publications are best-effort: failures are logged, never propagated,
// and a nil publisher is a no-op so services run without a broker.
type PharmacyEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPharmacyEventPublisher creates a new pharmacy event publisher
func NewPharmacyEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PharmacyEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePharmacyEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &PharmacyEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockReserved publishes a stock reserved event
func (p *PharmacyEventPublisher) PublishStockReserved(ctx context.Context, data messaging.StockReservedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockReserved, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", data.MedicineID).Msg("failed to publish stock reserved event")
	}
}

// PublishStockRestored publishes a stock restored event
func (p *PharmacyEventPublisher) PublishStockRestored(ctx context.Context, data messaging.StockRestoredEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockRestored, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", data.MedicineID).Msg("failed to publish stock restored event")
	}
}

// PublishBatchReceived publishes a batch received event
func (p *PharmacyEventPublisher) PublishBatchReceived(ctx context.Context, data messaging.BatchReceivedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventBatchReceived, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", data.BatchID).Msg("failed to publish batch received event")
	}
}

// PublishBatchHidden publishes a batch visibility change event
func (p *PharmacyEventPublisher) PublishBatchHidden(ctx context.Context, data messaging.BatchHiddenEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventBatchHidden, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", data.BatchID).Msg("failed to publish batch hidden event")
	}
}

// PublishMedicineDiscounted publishes a medicine discounted event
func (p *PharmacyEventPublisher) PublishMedicineDiscounted(ctx context.Context, medicineID, batchID string, original, discounted decimal.Decimal, percent int, resolvedBy string) {
	if p == nil {
		return
	}

	data := messaging.MedicineDiscountedEvent{
		MedicineID:      medicineID,
		BatchID:         batchID,
		OriginalPrice:   original,
		DiscountedPrice: discounted,
		DiscountPercent: percent,
		ResolvedBy:      resolvedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMedicineDiscounted, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", medicineID).Msg("failed to publish medicine discounted event")
	}
}

// PublishMedicineRemoved publishes a medicine removed event
func (p *PharmacyEventPublisher) PublishMedicineRemoved(ctx context.Context, medicineID, batchID string, batchesGone int, resolvedBy string) {
	if p == nil {
		return
	}

	data := messaging.MedicineRemovedEvent{
		MedicineID:  medicineID,
		BatchID:     batchID,
		BatchesGone: batchesGone,
		ResolvedBy:  resolvedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMedicineRemoved, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", medicineID).Msg("failed to publish medicine removed event")
	}
}

// PublishSupplierReturnApproved publishes a supplier return approved event
func (p *PharmacyEventPublisher) PublishSupplierReturnApproved(ctx context.Context, data messaging.SupplierReturnApprovedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventSupplierReturnApproved, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", data.RequestID).Msg("failed to publish supplier return approved event")
	}
}

// PublishRefundApproved publishes a refund approved event
func (p *PharmacyEventPublisher) PublishRefundApproved(ctx context.Context, data messaging.RefundApprovedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventRefundApproved, data); err != nil {
		p.logger.Error().Err(err).Str("refund_id", data.RefundID).Msg("failed to publish refund approved event")
	}
}
