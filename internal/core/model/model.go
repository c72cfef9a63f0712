package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel is the ordinal severity tag on a security event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevels returns all risk levels in ascending severity order.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
}

// ValidRiskLevel reports whether l is a known risk level.
func ValidRiskLevel(l RiskLevel) bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// EventType classifies a security event.
type EventType string

const (
	EventConfigChange       EventType = "config_change"
	EventPolicyChange       EventType = "policy_change"
	EventAccessChange       EventType = "access_change"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventSystemEvent        EventType = "system_event"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	switch t {
	case EventConfigChange, EventPolicyChange, EventAccessChange,
		EventUnauthorizedAccess, EventSystemEvent:
		return true
	}
	return false
}

// AccessLevel is the allow/block classification of an access-list entry.
type AccessLevel string

const (
	AccessAllow AccessLevel = "allow"
	AccessBlock AccessLevel = "block"
)

// ValidAccessLevel reports whether l is a known access level.
func ValidAccessLevel(l AccessLevel) bool {
	return l == AccessAllow || l == AccessBlock
}

// Role is a user's authorization role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleLowerAdmin Role = "lower_admin"
	RoleUser       Role = "user"
)

// User is the read-only join target for per-user login metrics.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// LoginEvent is one login attempt. Immutable once written.
type LoginEvent struct {
	// ID is a client-supplied or server-assigned UUID.
	// It is the idempotency key for ingestion.
	ID              string    `json:"id"`
	UserID          int64     `json:"user_id"`
	IPAddress       string    `json:"ip_address"`
	LoginTime       time.Time `json:"login_time"`
	Success         bool      `json:"success"`
	SessionDuration int       `json:"session_duration,omitempty"` // seconds
	DeviceInfo      string    `json:"device_info,omitempty"`
}

// Validate ensures the login event has all required attributes.
func (e *LoginEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.IPAddress == "" {
		return fmt.Errorf("ip_address is required")
	}
	if e.LoginTime.IsZero() {
		return fmt.Errorf("login_time is required")
	}
	return nil
}

// SecurityEvent is one audit-log row. Immutable once written, except the
// resolution fields which external tooling may update.
type SecurityEvent struct {
	ID              string    `json:"id"`
	EventType       EventType `json:"event_type"`
	Description     string    `json:"description"`
	IPAddress       string    `json:"ip_address"`
	GeoLocation     string    `json:"geo_location,omitempty"`
	DeviceInfo      string    `json:"device_info,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level"`
	UserID          int64     `json:"user_id,omitempty"` // 0 when the event has no actor
	Timestamp       time.Time `json:"timestamp"`
	Resolved        bool      `json:"resolved"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
}

// Validate ensures the security event has all required attributes and
// closed-enum fields hold known values.
func (e *SecurityEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !ValidEventType(e.EventType) {
		return fmt.Errorf("unknown event_type %q", e.EventType)
	}
	if !ValidRiskLevel(e.RiskLevel) {
		return fmt.Errorf("unknown risk_level %q", e.RiskLevel)
	}
	if e.IPAddress == "" {
		return fmt.Errorf("ip_address is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// AccessEntry is one row of the IP access-control list.
type AccessEntry struct {
	ID          int64       `json:"id"`
	IPAddress   string      `json:"ip_address"`
	DeviceID    string      `json:"device_id,omitempty"`
	AccessLevel AccessLevel `json:"access_level"`
	AddedBy     int64       `json:"added_by,omitempty"`
	AddedAt     time.Time   `json:"added_at"`
	Notes       string      `json:"notes,omitempty"`
	Active      bool        `json:"active"`
}

// Validate checks the fields settable through the CRUD boundary.
func (e *AccessEntry) Validate() error {
	if e.IPAddress == "" {
		return fmt.Errorf("ip_address is required")
	}
	if !ValidAccessLevel(e.AccessLevel) {
		return fmt.Errorf("unknown access_level %q", e.AccessLevel)
	}
	return nil
}

// DailyReport is the persisted snapshot of one calendar day's security
// metrics. Exactly one row exists per report date; regeneration overwrites
// every computed field (idempotent recompute, not append).
type DailyReport struct {
	ReportDate         time.Time       `json:"report_date"` // date component only, UTC
	TotalLoginAttempts int             `json:"total_login_attempts"`
	SuccessfulLogins   int             `json:"successful_logins"`
	BlockedAttempts    int             `json:"blocked_attempts"`
	DistinctIPsBlocked int             `json:"distinct_ips_blocked"`
	LowRiskEvents      int             `json:"low_risk_events"`
	MediumRiskEvents   int             `json:"medium_risk_events"`
	HighRiskEvents     int             `json:"high_risk_events"`
	CriticalRiskEvents int             `json:"critical_risk_events"`
	PeakActivityHour   *int            `json:"peak_activity_hour,omitempty"` // 0-23; nil when the day had no logins
	MostActiveUser     string          `json:"most_active_user"`
	SuccessRate        decimal.Decimal `json:"success_rate"` // percentage, 2 decimal places
	NotablePatterns    []string        `json:"notable_patterns,omitempty"`
	Recommendations    string          `json:"recommendations,omitempty"`
	GeneratedAt        time.Time       `json:"generated_at"`
}
