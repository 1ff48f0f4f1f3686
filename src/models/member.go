package models

import "cwms/src/types"

type Member struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Email   string `gorm:"uniqueIndex" json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Status  string `gorm:"default:'active'" json:"status,omitempty"`

	Subscriptions []Subscription  `json:"subscriptions,omitempty"`
	Credits       []BookingCredit `json:"credits,omitempty"`

	types.Timestamps
}

// ActiveSubscription returns the member's single active subscription, nil when
// none is loaded or none is active. Callers that need a fresh read should
// query through the subscription service instead.
func (m *Member) ActiveSubscription() *Subscription {
	for i := range m.Subscriptions {
		if m.Subscriptions[i].Status == types.SUBSCRIPTION_ACTIVE || m.Subscriptions[i].Status == types.SUBSCRIPTION_EXPIRING {
			return &m.Subscriptions[i]
		}
	}
	return nil
}
