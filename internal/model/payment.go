package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Payment struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenantId"`
	PropertyID  string        `json:"propertyId"`
	AmountCents int64         `json:"amountCents"`
	Method      string        `json:"method"`
	Status      PaymentStatus `json:"status"`
	Memo        string        `json:"memo,omitempty"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// AchProfile is the tenant's bank details for rent autopay. The account
// number is write-only towards the platform; reads only ever return the
// masked tail.
type AchProfile struct {
	BankName          string `json:"bankName"`
	RoutingNumber     string `json:"routingNumber"`
	AccountNumber     string `json:"accountNumber,omitempty"`
	AccountNumberTail string `json:"accountNumberTail,omitempty"`
	AccountType       string `json:"accountType"`
	AutopayEnabled    bool   `json:"autopayEnabled"`
}

// DashboardSummary backs the summary cards at the top of every dashboard.
// The platform fills only the counters relevant to the requesting role.
type DashboardSummary struct {
	PropertyCount       int   `json:"propertyCount"`
	VacantCount         int   `json:"vacantCount"`
	OpenMaintenance     int   `json:"openMaintenance"`
	PendingPayments     int   `json:"pendingPayments"`
	MonthRevenueCents   int64 `json:"monthRevenueCents"`
	OverdueTenantCount  int   `json:"overdueTenantCount"`
	ActiveUserCount     int   `json:"activeUserCount"`
	NextPaymentDueCents int64 `json:"nextPaymentDueCents"`
}
