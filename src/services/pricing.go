package services

import (
	"cwms/src/models"
	"cwms/src/types"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

type PriceResult struct {
	UnitPrice      float64         `json:"unit_price"`
	PriceUnit      types.PriceUnit `json:"price_unit"`
	Quantity       float64         `json:"quantity"`
	BasePrice      float64         `json:"base_price"`
	DiscountAmount float64         `json:"discount_amount"`
	CreditsUsed    float64         `json:"credits_used"`
	TotalPrice     float64         `json:"total_price"`
	Currency       string          `json:"currency,omitempty"`
	Breakdown      types.JSONB     `json:"breakdown,omitempty"`
}

// QuoteResult is the non-mutating variant's answer: the same price plus the
// member's remaining credit balance for display.
type QuoteResult struct {
	PriceResult
	AvailableCredits float64 `json:"available_credits"`
}

type PricingCalculator struct {
	ledger *CreditLedger
}

func NewPricingCalculator(ledger *CreditLedger) *PricingCalculator {
	return &PricingCalculator{ledger: ledger}
}

// CalculatePrice computes the charge for booking [start,end) on the
// resource. Member benefits apply only when the member holds an active or
// expiring subscription: a per-plan percentage discount configured on the
// resource, and credit consumption of up to min(available, quantity) units.
// Both reductions stack on the same booking.
func (p *PricingCalculator) CalculatePrice(tx *gorm.DB, resource *models.SpaceResource, start, end time.Time, member *models.Member) (*PriceResult, error) {
	if !end.After(start) {
		return nil, NewValidationError("end", "must be after start")
	}
	unit := SelectPriceUnit(resource, start, end)
	unitPrice, ok := UnitRate(resource, unit)
	if !ok {
		return nil, NewValidationError("resource", fmt.Sprintf("resource [%d] has no rate for unit %s", resource.ID, unit))
	}
	quantity := QuantityFor(unit, start, end)
	basePrice := unitPrice * quantity

	result := &PriceResult{
		UnitPrice: unitPrice,
		PriceUnit: unit,
		Quantity:  quantity,
		BasePrice: basePrice,
		Currency:  resource.Currency,
		Breakdown: types.JSONB{
			"unit":       string(unit),
			"unit_price": unitPrice,
			"quantity":   quantity,
			"base":       basePrice,
		},
	}

	if member != nil {
		sub := member.ActiveSubscription()
		if sub != nil {
			if pct := planDiscountPercent(resource, sub.PlanID); pct > 0 {
				result.DiscountAmount = basePrice * pct / 100
				result.Breakdown["plan_discount_pct"] = pct
				result.Breakdown["plan_discount"] = result.DiscountAmount
			}
			available, err := p.ledger.GetAvailable(tx, member.ID, resource.Type)
			if err != nil {
				return nil, err
			}
			credits := math.Min(available, quantity)
			if credits > 0 {
				result.CreditsUsed = credits
				result.Breakdown["credits_used"] = credits
				result.Breakdown["credits_value"] = credits * unitPrice
			}
		}
	}

	result.TotalPrice = math.Max(0, basePrice-result.CreditsUsed*unitPrice-result.DiscountAmount)
	result.Breakdown["total"] = result.TotalPrice
	return result, nil
}

// GetQuote prices the window without touching the ledger and reports the
// member's current credit balance alongside.
func (p *PricingCalculator) GetQuote(tx *gorm.DB, resource *models.SpaceResource, start, end time.Time, member *models.Member) (*QuoteResult, error) {
	price, err := p.CalculatePrice(tx, resource, start, end, member)
	if err != nil {
		return nil, err
	}
	quote := &QuoteResult{PriceResult: *price}
	if member != nil {
		available, err := p.ledger.GetAvailable(tx, member.ID, resource.Type)
		if err != nil {
			return nil, err
		}
		quote.AvailableCredits = available
	}
	return quote, nil
}

// planDiscountPercent reads the resource's per-plan override map. Keys are
// plan ids serialized as strings (jsonb object keys).
func planDiscountPercent(resource *models.SpaceResource, planID uint) float64 {
	if resource.PlanDiscounts == nil {
		return 0
	}
	raw, ok := resource.PlanDiscounts[fmt.Sprintf("%d", planID)]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
