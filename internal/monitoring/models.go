// internal/monitoring/models.go - Canonical summary and row shapes
package monitoring

import "sonarboard/internal/cache"

// AccountStatus is the inventory status of a listed customer.
type AccountStatus string

const (
	StatusDown    AccountStatus = "Down"
	StatusWarning AccountStatus = "Warning"
)

const (
	UnknownCustomerName = "(unknown)"
	UnknownDeviceName   = "—"
)

// InfrastructureCounts is not measured yet and always reports zeros.
type InfrastructureCounts struct {
	Good    int `json:"good"`
	Warning int `json:"warning"`
	Bad     int `json:"bad"`
	Down    int `json:"down"`
}

type CustomerCounts struct {
	Good          int `json:"good"`
	Warning       int `json:"warning"`
	Down          int `json:"down"`
	Uninventoried int `json:"uninventoried"`
	Total         int `json:"total"`
}

// EquipmentSummary is the canonical status summary. Every count is >= 0.
type EquipmentSummary struct {
	Infrastructure InfrastructureCounts `json:"infrastructureEquipment"`
	Customer       CustomerCounts       `json:"customerEquipment"`
}

// CustomerRow is one account in a down or warning listing.
type CustomerRow struct {
	CustomerID   string        `json:"customerId"`
	CustomerName string        `json:"customerName"`
	Status       AccountStatus `json:"status"`
	DeviceName   string        `json:"deviceName"`
	IPAddresses  []string      `json:"ipAddresses"`
	Address      string        `json:"address"`
}

// SummaryResult is what the summary endpoint returns.
type SummaryResult struct {
	OK      bool             `json:"ok"`
	Source  cache.Source     `json:"source"`
	Summary EquipmentSummary `json:"summary"`
	Error   string           `json:"error,omitempty"`
}

// AccountsResult is what the down and warning endpoints return.
type AccountsResult struct {
	OK        bool          `json:"ok"`
	Source    cache.Source  `json:"source"`
	Customers []CustomerRow `json:"customers"`
	Error     string        `json:"error,omitempty"`
}
