package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/domain"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/events"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/pkg/config"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ResolutionService applies the commerce rules behind alert
// resolutions: near-expiry resolutions discount the medicine, expired
// resolutions remove it entirely, and unresolving restores the captured
// price. All effects of one resolution commit in one transaction.
type ResolutionService struct {
	db             *database.DB
	medicineRepo   *repository.MedicineRepository
	batchRepo      *repository.BatchRepository
	resolutionRepo *repository.ResolutionRepository
	policy         *config.PolicyConfig
	publisher      *events.PharmacyEventPublisher
	logger         *logger.Logger
}

// NewResolutionService creates a new resolution service
func NewResolutionService(
	db *database.DB,
	medicineRepo *repository.MedicineRepository,
	batchRepo *repository.BatchRepository,
	resolutionRepo *repository.ResolutionRepository,
	policy *config.PolicyConfig,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *ResolutionService {
	return &ResolutionService{
		db:             db,
		medicineRepo:   medicineRepo,
		batchRepo:      batchRepo,
		resolutionRepo: resolutionRepo,
		policy:         policy,
		publisher:      publisher,
		logger:         log,
	}
}

// Resolution outcomes reported to the caller
const (
	MsgDiscountApplied = "near-expiry alert resolved, discount applied"
	MsgAlreadyResolved = "alert already resolved"
	MsgPriceRestored   = "alert unresolved, original price restored"
	MsgUnresolved      = "alert unresolved"
	MsgMedicineRemoved = "expired alert resolved, medicine and its batches removed"
	MsgFlagUpdated     = "alert resolution updated"
	MsgReferentGone    = "medicine and batches already removed, nothing to resolve"
)

// Resolve flips the resolution flag for (batch, alertType) and applies
// the corresponding commerce rule. Replaying a resolution is safe: the
// discount is captured at most once, and resolving an alert whose
// referent was already cascaded away reports AlreadyGone.
func (s *ResolutionService) Resolve(ctx context.Context, batchID string, alertType domain.AlertType, resolved bool, resolvedBy *string) (string, error) {
	if !alertType.Valid() {
		return "", errors.BadRequest("unknown alert type")
	}

	var (
		message    string
		medicineID string
		removed    int
		discounted bool
		origPrice  decimal.Decimal
		newPrice   decimal.Decimal
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		batch, err := s.batchRepo.GetForUpdateTx(ctx, tx, batchID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.AlreadyGone(MsgReferentGone)
			}
			return err
		}
		medicineID = batch.MedicineID

		// Medicine row lock serializes concurrent resolutions across
		// batches of the same medicine.
		medicine, err := s.medicineRepo.GetForUpdateTx(ctx, tx, batch.MedicineID)
		if err != nil {
			return err
		}

		switch {
		case alertType == domain.AlertExpired && resolved:
			removed, err = s.cascadeRemoveTx(ctx, tx, medicine)
			if err != nil {
				return err
			}
			message = MsgMedicineRemoved
			return nil

		case alertType == domain.AlertNearExpiry && resolved:
			if err := s.resolutionRepo.SetResolvedTx(ctx, tx, batchID, string(alertType), true, resolvedBy); err != nil {
				return err
			}
			if medicine.DiscountFlag {
				message = MsgAlreadyResolved
				return nil
			}
			origPrice = medicine.UnitPrice
			newPrice = discountedPrice(medicine.UnitPrice, s.policy.DiscountPercent)
			if err := s.medicineRepo.ApplyDiscountTx(ctx, tx, medicine.ID, origPrice, newPrice, s.policy.DiscountPercent); err != nil {
				return err
			}
			discounted = true
			message = MsgDiscountApplied
			return nil

		case alertType == domain.AlertNearExpiry && !resolved:
			if err := s.resolutionRepo.SetResolvedTx(ctx, tx, batchID, string(alertType), false, resolvedBy); err != nil {
				return err
			}
			if !medicine.DiscountFlag {
				message = MsgUnresolved
				return nil
			}
			if !medicine.OriginalPrice.Valid {
				return errors.NoOriginalPriceRecorded("discount flag set without a captured price")
			}
			if err := s.medicineRepo.ClearDiscountTx(ctx, tx, medicine.ID, medicine.OriginalPrice.Decimal); err != nil {
				return err
			}
			message = MsgPriceRestored
			return nil

		default:
			// Expired + unresolve carries no commerce rule; only the
			// flag changes.
			if err := s.resolutionRepo.SetResolvedTx(ctx, tx, batchID, string(alertType), false, resolvedBy); err != nil {
				return err
			}
			message = MsgFlagUpdated
			return nil
		}
	})
	if err != nil {
		if errors.Is(err, errors.ErrAlreadyGone) {
			return MsgReferentGone, nil
		}
		return "", err
	}

	by := ""
	if resolvedBy != nil {
		by = *resolvedBy
	}

	switch {
	case alertType == domain.AlertExpired && resolved:
		s.logger.Info().
			Str("medicine_id", medicineID).
			Str("batch_id", batchID).
			Int("batches_removed", removed).
			Msg("expired medicine removed")
		s.publisher.PublishMedicineRemoved(ctx, medicineID, batchID, removed, by)

	case discounted:
		s.logger.Info().
			Str("medicine_id", medicineID).
			Str("batch_id", batchID).
			Str("original_price", origPrice.String()).
			Str("discounted_price", newPrice.String()).
			Msg("near-expiry discount applied")
		s.publisher.PublishMedicineDiscounted(ctx, medicineID, batchID, origPrice, newPrice, s.policy.DiscountPercent, by)
	}

	return message, nil
}

// cascadeRemoveTx deletes the medicine, all of its batches, and their
// resolution flags in the surrounding transaction
func (s *ResolutionService) cascadeRemoveTx(ctx context.Context, tx *sqlx.Tx, medicine *repository.Medicine) (int, error) {
	if err := s.resolutionRepo.DeleteByMedicineTx(ctx, tx, medicine.ID); err != nil {
		return 0, err
	}

	removed, err := s.batchRepo.DeleteByMedicineTx(ctx, tx, medicine.ID)
	if err != nil {
		return 0, err
	}

	if err := s.medicineRepo.DeleteTx(ctx, tx, medicine.ID); err != nil {
		return 0, err
	}

	return removed, nil
}

// discountedPrice computes the reduced price, rounded to cents
func discountedPrice(price decimal.Decimal, percent int) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - percent)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2)
}
