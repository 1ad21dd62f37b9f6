package businessflow

import (
	"context"
	"encoding/json"

	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/repository"
	"github.com/amirphl/dokany-admin/utils"
)

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditEntry is what a flow knows about an action when it records it
type auditEntry struct {
	action      string
	identity    *models.AdminIdentity
	description string
	success     bool
	errMsg      string
	targetType  string
	locations   []string
	metadata    any
}

// auditRecorder writes entries when an audit repository is configured and is a no-op otherwise.
// Audit failures are logged and never fail the operation being audited.
type auditRecorder struct {
	repo repository.AuditLogRepository
}

func (a auditRecorder) record(ctx context.Context, entry auditEntry, meta *ClientMetadata) {
	if a.repo == nil {
		return
	}

	audit := &models.AuditLog{
		Action:  entry.action,
		Success: utils.ToPtr(entry.success),
	}
	if entry.description != "" {
		audit.Description = utils.ToPtr(entry.description)
	}
	if entry.identity != nil {
		audit.AdminID = utils.ToPtr(entry.identity.UserID)
		audit.AdminEmail = utils.ToPtr(entry.identity.Email)
	} else if adminID := utils.StringFromContext(ctx, utils.AdminIDKey); adminID != "" {
		audit.AdminID = &adminID
	}
	if entry.errMsg != "" {
		audit.ErrorMessage = utils.ToPtr(entry.errMsg)
	}
	if entry.targetType != "" {
		audit.TargetType = utils.ToPtr(entry.targetType)
	}
	if len(entry.locations) > 0 {
		audit.TargetLocations = entry.locations
	}
	if entry.metadata != nil {
		if raw, err := json.Marshal(entry.metadata); err == nil {
			audit.Metadata = raw
		}
	}
	if meta == nil {
		// entries recorded outside a handler call still carry what the request context knows
		meta = &ClientMetadata{
			IPAddress: utils.StringFromContext(ctx, utils.IPAddressKey),
			UserAgent: utils.StringFromContext(ctx, utils.UserAgentKey),
		}
	}
	if meta.IPAddress != "" {
		audit.IPAddress = utils.ToPtr(meta.IPAddress)
	}
	if meta.UserAgent != "" {
		audit.UserAgent = utils.ToPtr(meta.UserAgent)
	}
	if reqID := utils.FirstNonEmpty(meta.RequestID, utils.StringFromContext(ctx, utils.RequestIDKey)); reqID != "" {
		audit.RequestID = &reqID
	}
	if endpoint := utils.StringFromContext(ctx, utils.EndpointKey); endpoint != "" {
		audit.Endpoint = &endpoint
	}

	if err := a.repo.Save(ctx, audit); err != nil {
		logx.L().Warnw("failed to record audit entry", "action", entry.action, "endpoint", audit.Endpoint, "error", err)
	}
}
