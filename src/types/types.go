package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported jsonb source type")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported jsonb source type")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type ResourceType string

const (
	RESOURCE_MEETING_ROOM   ResourceType = "meeting_room"
	RESOURCE_HOT_DESK       ResourceType = "hot_desk"
	RESOURCE_PRIVATE_OFFICE ResourceType = "private_office"
)

type PriceUnit string

const (
	PRICE_UNIT_HOUR  PriceUnit = "hour"
	PRICE_UNIT_DAY   PriceUnit = "day"
	PRICE_UNIT_WEEK  PriceUnit = "week"
	PRICE_UNIT_MONTH PriceUnit = "month"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELED  BookingStatus = "cancelled"
	BOOKING_COMPLETED BookingStatus = "completed"
)

type PaymentStatus string

const (
	PAYMENT_UNPAID PaymentStatus = "unpaid"
	PAYMENT_PAID   PaymentStatus = "paid"
)

type SubscriptionStatus string

const (
	SUBSCRIPTION_PENDING      SubscriptionStatus = "pending"
	SUBSCRIPTION_ACTIVE       SubscriptionStatus = "active"
	SUBSCRIPTION_EXPIRING     SubscriptionStatus = "expiring"
	SUBSCRIPTION_GRACE_PERIOD SubscriptionStatus = "grace_period"
	SUBSCRIPTION_EXPIRED      SubscriptionStatus = "expired"
	SUBSCRIPTION_CANCELED     SubscriptionStatus = "cancelled"
	SUBSCRIPTION_SUSPENDED    SubscriptionStatus = "suspended"
)

type ApplicationStatus string

const (
	APPLICATION_SUBMITTED           ApplicationStatus = "submitted"
	APPLICATION_SCREENING           ApplicationStatus = "screening"
	APPLICATION_INTERVIEW_SCHEDULED ApplicationStatus = "interview_scheduled"
	APPLICATION_INTERVIEWED         ApplicationStatus = "interviewed"
	APPLICATION_ACCEPTED            ApplicationStatus = "accepted"
	APPLICATION_REJECTED            ApplicationStatus = "rejected"
)

type InvoiceStatus string

const (
	INVOICE_DRAFT   InvoiceStatus = "draft"
	INVOICE_SENT    InvoiceStatus = "sent"
	INVOICE_PAID    InvoiceStatus = "paid"
	INVOICE_OVERDUE InvoiceStatus = "overdue"
	INVOICE_VOID    InvoiceStatus = "void"
)

// OwnerKind is the closed set of entity kinds that may own a booking or an
// invoice. Rows carry the pair (owner_type, owner_id); resolution goes
// through services.ResolveOwner, never reflection.
type OwnerKind string

const (
	OWNER_MEMBER OwnerKind = "member"
	OWNER_USER   OwnerKind = "user"
)

type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   uint      `json:"id"`
}

type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	MemberID    uint     `json:"member_id,omitempty"`
	jwt.RegisteredClaims
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateResourceRequestBody struct {
	Name             string       `json:"name" binding:"required"`
	Type             ResourceType `json:"type" binding:"required,oneof=meeting_room hot_desk private_office"`
	Capacity         uint         `json:"capacity,omitempty"`
	OpensAt          *string      `json:"opens_at,omitempty"`
	ClosesAt         *string      `json:"closes_at,omitempty"`
	MinDuration      uint         `json:"min_duration,omitempty"`
	MaxDuration      uint         `json:"max_duration,omitempty"`
	BufferDuration   uint         `json:"buffer_duration,omitempty"`
	HourlyRate       *float64     `json:"hourly_rate,omitempty"`
	DailyRate        *float64     `json:"daily_rate,omitempty"`
	WeeklyRate       *float64     `json:"weekly_rate,omitempty"`
	MonthlyRate      *float64     `json:"monthly_rate,omitempty"`
	Currency         string       `json:"currency,omitempty"`
	RequiresApproval bool         `json:"requires_approval,omitempty"`
}

type CreateBookingRequestBody struct {
	ResourceID uint   `json:"resource" binding:"required"`
	Start      string `json:"start" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	End        string `json:"end" binding:"required,bookabledate,gtdate=Start" time_format:"2006-01-02 15:04:05 -07:00"`
}

type RescheduleBookingRequestBody struct {
	Start string `json:"start" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	End   string `json:"end" binding:"required,bookabledate,gtdate=Start" time_format:"2006-01-02 15:04:05 -07:00"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason,omitempty"`
}

type QuoteRequestBody struct {
	ResourceID uint   `json:"resource" binding:"required"`
	Start      string `json:"start" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	End        string `json:"end" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
}

type CreateSubscriptionRequestBody struct {
	PlanID    uint `json:"plan" binding:"required"`
	AutoRenew bool `json:"auto_renew,omitempty"`
}

type ActivateSubscriptionRequestBody struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

type CancelSubscriptionRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type CreateApplicationRequestBody struct {
	CohortID     uint       `json:"cohort" binding:"required"`
	StartupName  string     `json:"startup_name" binding:"required"`
	Industry     string     `json:"industry,omitempty"`
	Pitch        string     `json:"pitch,omitempty"`
	WebsiteURL   string     `json:"website_url,omitempty"`
	Founders     JSONBArray `json:"founders" binding:"required,min=1"`
	ContactEmail string     `json:"contact_email" binding:"required,email"`
}

type TransitionApplicationRequestBody struct {
	Status ApplicationStatus `json:"status" binding:"required"`
	Reason string            `json:"reason,omitempty"`
}

type ScoreApplicationRequestBody struct {
	Scores map[string]float64 `json:"scores" binding:"required,min=1"`
}

type ScheduleInterviewRequestBody struct {
	At       string `json:"at" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	Location string `json:"location,omitempty"`
}

type CreateInvoiceRequestBody struct {
	Owner    OwnerRef `json:"owner" binding:"required"`
	Currency string   `json:"currency,omitempty"`
	TaxRate  float64  `json:"tax_rate,omitempty"`
	DueInDay uint     `json:"due_in_days,omitempty"`
}

type AddInvoiceItemRequestBody struct {
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"required"`
	Discount    float64 `json:"discount,omitempty"`
}

type MarkInvoicePaidRequestBody struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

type VoidInvoiceRequestBody struct {
	Reason string `json:"reason,omitempty"`
}

type RegisterMemberRequestBody struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

type LoginRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}
