package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// AuditLog records an action the operator took through the console
type AuditLog struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AdminID         *string         `gorm:"size:64;index:idx_console_audit_admin_id" json:"admin_id,omitempty"`
	AdminEmail      *string         `gorm:"size:255" json:"admin_email,omitempty"`
	Action          string          `gorm:"size:64;not null;index:idx_console_audit_action" json:"action"`
	Description     *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress       *string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent       *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID       *string         `gorm:"size:255;index:idx_console_audit_request_id" json:"request_id,omitempty"`
	Endpoint        *string         `gorm:"size:255" json:"endpoint,omitempty"`
	TargetType      *string         `gorm:"size:16" json:"target_type,omitempty"`
	TargetLocations pq.StringArray  `gorm:"type:text[]" json:"target_locations,omitempty"`
	Metadata        json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success         *bool           `gorm:"default:true;index:idx_console_audit_success" json:"success"`
	ErrorMessage    *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_console_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "console_audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccess      = "login_success"
	AuditActionLoginFailed       = "login_failed"
	AuditActionLogout            = "logout"
	AuditActionSessionRestored   = "session_restored"
	AuditActionSessionDiscarded  = "session_discarded"
	AuditActionCampaignSubmitted = "campaign_submitted"
	AuditActionCampaignRejected  = "campaign_rejected"
	AuditActionPayoutToggled     = "payout_toggled"
	AuditActionManagerUpdated    = "manager_updated"
	AuditActionManagerDeleted    = "manager_deleted"
	AuditActionManagerCreated    = "manager_created"
	AuditActionProfileUpdated    = "profile_updated"
	AuditActionSellerCreated     = "seller_created"
	AuditActionSellerUpdated     = "seller_updated"
	AuditActionSellerDeleted     = "seller_deleted"
	AuditActionPasswordReset     = "password_reset_requested"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	AdminID       *string
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
