package services

import (
	"cwms/src/config"
	"cwms/src/models"
	"cwms/src/types"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceService owns the invoice lifecycle: draft -> sent -> paid, with
// overdue as a sent variant and void reachable from draft, sent and overdue.
// Numbers are assigned at finalization from a per-year sequence row, never
// at draft creation, so voided drafts burn no numbers.
type InvoiceService struct {
	db  *gorm.DB
	cfg *config.AppConfig
}

func NewInvoiceService(db *gorm.DB, cfg *config.AppConfig) *InvoiceService {
	return &InvoiceService{db: db, cfg: cfg}
}

// CreateDraft opens an empty draft for the billable owner.
func (s *InvoiceService) CreateDraft(ownerRef types.OwnerRef, currency string, taxRate float64, dueInDays uint) (*models.Invoice, error) {
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if dueInDays == 0 {
		dueInDays = s.cfg.InvoiceDueDays
	}
	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := ResolveOwner(tx, ownerRef); err != nil {
			return err
		}
		due := time.Now().AddDate(0, 0, int(dueInDays))
		invoice = models.Invoice{
			OwnerType: ownerRef.Kind,
			OwnerID:   ownerRef.ID,
			Status:    types.INVOICE_DRAFT,
			Currency:  currency,
			TaxRate:   taxRate,
			DueDate:   &due,
		}
		return tx.Create(&invoice).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// AddItem appends a line to a draft and recomputes the totals. Finalized
// invoices are immutable.
func (s *InvoiceService) AddItem(invoiceID uint, body *types.AddInvoiceItemRequestBody, originType *string, originID *uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Invoice{ID: invoiceID}).First(&invoice).Error; err != nil {
			return err
		}
		if !invoice.IsDraft() {
			return &StateConflictError{
				Entity:   "invoice",
				Current:  string(invoice.Status),
				Required: string(types.INVOICE_DRAFT),
			}
		}
		item := models.InvoiceItem{
			InvoiceID:   invoice.ID,
			OriginType:  originType,
			OriginID:    originID,
			Description: body.Description,
			Quantity:    body.Quantity,
			UnitPrice:   body.UnitPrice,
			Discount:    body.Discount,
			Total:       body.Quantity*body.UnitPrice - body.Discount,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return s.recalcTotals(tx, &invoice)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// RemoveItem deletes a line from a draft and recomputes the totals.
func (s *InvoiceService) RemoveItem(invoiceID, itemID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Invoice{ID: invoiceID}).First(&invoice).Error; err != nil {
			return err
		}
		if !invoice.IsDraft() {
			return &StateConflictError{
				Entity:   "invoice",
				Current:  string(invoice.Status),
				Required: string(types.INVOICE_DRAFT),
			}
		}
		res := tx.Where("id = ? AND invoice_id = ?", itemID, invoice.ID).Delete(&models.InvoiceItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return s.recalcTotals(tx, &invoice)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// recalcTotals recomputes subtotal, tax and total from the item rows.
// Subtotal sums item totals; the invoice-level discount comes off before tax
// is applied.
func (s *InvoiceService) recalcTotals(tx *gorm.DB, invoice *models.Invoice) error {
	var subtotal float64
	if err := tx.
		Model(&models.InvoiceItem{}).
		Where("invoice_id = ?", invoice.ID).
		Select("COALESCE(SUM(total), 0)").
		Scan(&subtotal).
		Error; err != nil {
		return err
	}
	taxable := subtotal - invoice.Discount
	if taxable < 0 {
		taxable = 0
	}
	tax := taxable * invoice.TaxRate / 100
	total := taxable + tax
	if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Updates(map[string]any{
		"subtotal": subtotal,
		"tax":      tax,
		"total":    total,
	}).Error; err != nil {
		return err
	}
	invoice.Subtotal = subtotal
	invoice.Tax = tax
	invoice.Total = total
	return nil
}

// nextNumber takes the next value from the per-year sequence row under a
// row lock. The row is created on first use for the year.
func (s *InvoiceService) nextNumber(tx *gorm.DB, year int) (string, error) {
	var seq models.InvoiceSequence
	q := tx
	// sqlite has no row locks; the clause only applies on postgres.
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.
		Where(&models.InvoiceSequence{Year: year, Prefix: s.cfg.InvoicePrefix}).
		First(&seq).
		Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return "", err
		}
		seq = models.InvoiceSequence{Year: year, Prefix: s.cfg.InvoicePrefix}
		if err := tx.Create(&seq).Error; err != nil {
			return "", err
		}
	}
	seq.LastNumber++
	if err := tx.
		Model(&models.InvoiceSequence{}).
		Where("id = ?", seq.ID).
		Update("last_number", seq.LastNumber).
		Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", s.cfg.InvoicePrefix, year, seq.LastNumber), nil
}

// Finalize assigns the invoice number and moves draft -> sent. An empty
// draft cannot be finalized.
func (s *InvoiceService) Finalize(invoiceID uint) (*models.Invoice, []DomainEvent, error) {
	var invoice models.Invoice
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Invoice{ID: invoiceID}).First(&invoice).Error; err != nil {
			return err
		}
		if !invoice.IsDraft() {
			return &StateConflictError{
				Entity:   "invoice",
				Current:  string(invoice.Status),
				Required: string(types.INVOICE_DRAFT),
			}
		}
		var itemCount int64
		if err := tx.Model(&models.InvoiceItem{}).Where("invoice_id = ?", invoice.ID).Count(&itemCount).Error; err != nil {
			return err
		}
		if itemCount == 0 {
			return &StateConflictError{
				Entity:  "invoice",
				Current: string(invoice.Status),
				Message: "cannot finalize an invoice without items",
			}
		}
		now := time.Now()
		number, err := s.nextNumber(tx, now.Year())
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Updates(map[string]any{
			"number":  number,
			"status":  types.INVOICE_SENT,
			"sent_at": now,
		}).Error; err != nil {
			return err
		}
		invoice.Number = &number
		invoice.Status = types.INVOICE_SENT
		invoice.SentAt = &now
		events = append(events, NewDomainEvent(EVENT_INVOICE_FINALIZED, types.JSONB{
			"invoice_id": invoice.ID,
			"number":     number,
			"total":      invoice.Total,
			"owner_type": string(invoice.OwnerType),
			"owner_id":   invoice.OwnerID,
		}))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &invoice, events, nil
}

// MarkAsPaid settles a sent or overdue invoice. The payment reference is
// opaque; reconciling it against a processor is the payments surface's job.
func (s *InvoiceService) MarkAsPaid(invoiceID uint, paymentReference string) ([]DomainEvent, error) {
	if paymentReference == "" {
		return nil, NewValidationError("payment_reference", "required")
	}
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Where(&models.Invoice{ID: invoiceID}).First(&invoice).Error; err != nil {
			return err
		}
		if !invoice.CanBePaid() {
			return &StateConflictError{
				Entity:   "invoice",
				Current:  string(invoice.Status),
				Required: "sent or overdue",
			}
		}
		now := time.Now()
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Updates(map[string]any{
			"status":            types.INVOICE_PAID,
			"paid_at":           now,
			"payment_reference": paymentReference,
		}).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_INVOICE_PAID, types.JSONB{
			"invoice_id":        invoice.ID,
			"payment_reference": paymentReference,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Void cancels a draft, sent or overdue invoice. Paid invoices stay paid;
// corrections go through a credit note, not a void.
func (s *InvoiceService) Void(invoiceID uint, reason string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Where(&models.Invoice{ID: invoiceID}).First(&invoice).Error; err != nil {
			return err
		}
		if !invoice.CanBeVoided() {
			return &StateConflictError{
				Entity:   "invoice",
				Current:  string(invoice.Status),
				Required: "draft, sent or overdue",
			}
		}
		now := time.Now()
		updates := map[string]any{
			"status":    types.INVOICE_VOID,
			"voided_at": now,
		}
		if reason != "" {
			updates["void_reason"] = reason
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Updates(updates).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_INVOICE_VOIDED, types.JSONB{
			"invoice_id": invoice.ID,
			"reason":     reason,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkOverdueInvoices flips sent invoices past their due date to overdue.
// Runs from the scheduler; per-row failures are logged and skipped.
func (s *InvoiceService) MarkOverdueInvoices() []DomainEvent {
	var ids []uint
	if err := s.db.
		Model(&models.Invoice{}).
		Where("status = ?", types.INVOICE_SENT).
		Where("due_date IS NOT NULL AND due_date < ?", time.Now()).
		Pluck("id", &ids).
		Error; err != nil {
		log.Printf("[invoices] Error scanning overdue invoices: %s\n", err.Error())
		return nil
	}
	var events []DomainEvent
	for _, id := range ids {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return tx.
				Model(&models.Invoice{}).
				Where("id = ? AND status = ?", id, types.INVOICE_SENT).
				Update("status", types.INVOICE_OVERDUE).
				Error
		})
		if err != nil {
			log.Printf("[invoices] Error marking invoice [%d] overdue: %s\n", id, err.Error())
			continue
		}
		events = append(events, NewDomainEvent(EVENT_INVOICE_OVERDUE, types.JSONB{"invoice_id": id}))
	}
	return events
}

// GenerateSubscriptionInvoice drafts and finalizes the renewal invoice for a
// subscription period in one shot.
func (s *InvoiceService) GenerateSubscriptionInvoice(subscriptionID uint) (*models.Invoice, []DomainEvent, error) {
	var sub models.Subscription
	if err := s.db.Where(&models.Subscription{ID: subscriptionID}).Preload("Plan").First(&sub).Error; err != nil {
		return nil, nil, err
	}
	invoice, err := s.CreateDraft(types.OwnerRef{Kind: types.OWNER_MEMBER, ID: sub.MemberID}, sub.Currency, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	origin := "subscription"
	if _, err := s.AddItem(invoice.ID, &types.AddInvoiceItemRequestBody{
		Description: fmt.Sprintf("%s plan renewal", sub.Plan.Name),
		Quantity:    1,
		UnitPrice:   sub.PriceSnapshot,
	}, &origin, &sub.ID); err != nil {
		return nil, nil, err
	}
	return s.Finalize(invoice.ID)
}
