package services

import (
	"cwms/src/models"
	"cwms/src/types"
	"time"

	"gorm.io/gorm"
)

// CreditLedger manages per-member, per-resource-type credit pools. All
// methods run against the caller's transaction handle so ledger moves commit
// or roll back together with the booking they belong to.
type CreditLedger struct{}

func NewCreditLedger() *CreditLedger {
	return &CreditLedger{}
}

func (l *CreditLedger) activeRecords(tx *gorm.DB, memberID uint, resourceType types.ResourceType, now time.Time) ([]models.BookingCredit, error) {
	var records []models.BookingCredit
	err := tx.
		Model(&models.BookingCredit{}).
		Where(&models.BookingCredit{MemberID: memberID, ResourceType: resourceType}).
		Where("period_start <= ? AND period_end > ?", now, now).
		Order("period_end asc").
		Find(&records).
		Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetAvailable sums the remaining balance across all active records.
func (l *CreditLedger) GetAvailable(tx *gorm.DB, memberID uint, resourceType types.ResourceType) (float64, error) {
	records, err := l.activeRecords(tx, memberID, resourceType, time.Now())
	if err != nil {
		return 0, err
	}
	var available float64
	for _, rec := range records {
		available += rec.Remaining()
	}
	return available, nil
}

// Deduct drains active records soonest-expiring first until amount is
// satisfied. A remainder that no record can fund is left unfunded silently:
// callers compute creditsUsed against GetAvailable first, so under normal
// flow the amount always clears.
func (l *CreditLedger) Deduct(tx *gorm.DB, memberID uint, resourceType types.ResourceType, amount float64) error {
	if amount <= 0 {
		return nil
	}
	records, err := l.activeRecords(tx, memberID, resourceType, time.Now())
	if err != nil {
		return err
	}
	remaining := amount
	for i := range records {
		if remaining <= 0 {
			break
		}
		rec := &records[i]
		take := rec.Remaining()
		if take <= 0 {
			continue
		}
		if take > remaining {
			take = remaining
		}
		if err := tx.
			Model(&models.BookingCredit{}).
			Where("id = ?", rec.ID).
			Update("used", gorm.Expr("used + ?", take)).
			Error; err != nil {
			return err
		}
		remaining -= take
	}
	return nil
}

// Refund credits the single most-recently-ending active record, which is not
// necessarily the record originally debited. When no active record remains
// (the period expired) the refund is dropped and the caller keeps the money
// path instead.
func (l *CreditLedger) Refund(tx *gorm.DB, memberID uint, resourceType types.ResourceType, amount float64) error {
	if amount <= 0 {
		return nil
	}
	var rec models.BookingCredit
	err := tx.
		Model(&models.BookingCredit{}).
		Where(&models.BookingCredit{MemberID: memberID, ResourceType: resourceType}).
		Where("period_start <= ? AND period_end > ?", time.Now(), time.Now()).
		Order("period_end desc").
		First(&rec).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	// The full amount goes back even when this record was not the one
	// debited. The conserved quantity is the member's pooled balance, not a
	// single record's; a record's used may dip below zero until its own
	// deductions catch up.
	return tx.
		Model(&models.BookingCredit{}).
		Where("id = ?", rec.ID).
		Update("used", gorm.Expr("used - ?", amount)).
		Error
}
