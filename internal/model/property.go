package model

import "time"

type PropertyStatus string

const (
	PropertyVacant   PropertyStatus = "VACANT"
	PropertyOccupied PropertyStatus = "OCCUPIED"
	PropertyListed   PropertyStatus = "LISTED"
)

type Property struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"ownerId"`
	ManagerID    string         `json:"managerId,omitempty"`
	Title        string         `json:"title"`
	AddressLine1 string         `json:"addressLine1"`
	AddressLine2 string         `json:"addressLine2,omitempty"`
	City         string         `json:"city"`
	State        string         `json:"state"`
	Zip          string         `json:"zip"`
	Bedrooms     int            `json:"bedrooms"`
	Bathrooms    float64        `json:"bathrooms"`
	RentCents    int64          `json:"rentCents"`
	Status       PropertyStatus `json:"status"`
	ImageURLs    []string       `json:"imageUrls,omitempty"`
	SortOrder    int            `json:"sortOrder"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type MaintenanceStatus string

const (
	MaintenanceOpen       MaintenanceStatus = "OPEN"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceResolved   MaintenanceStatus = "RESOLVED"
)

type MaintenanceRequest struct {
	ID          string            `json:"id"`
	PropertyID  string            `json:"propertyId"`
	TenantID    string            `json:"tenantId"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Urgent      bool              `json:"urgent"`
	Status      MaintenanceStatus `json:"status"`
	PhotoURLs   []string          `json:"photoUrls,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	ResolvedAt  *time.Time        `json:"resolvedAt,omitempty"`
}
