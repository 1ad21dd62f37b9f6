// Package dto contains Data Transfer Objects for the console's request and response structures
package dto

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// PageQuery is the ?page=&limit= pair accepted by list views
type PageQuery struct {
	Page  int `query:"page" validate:"omitempty,gte=1"`
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

// CampaignListQuery is the campaigns list page plus an optional status filter
type CampaignListQuery struct {
	Page   int    `query:"page" validate:"omitempty,gte=1"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Status string `query:"status" validate:"omitempty,oneof=PENDING ACTIVE COMPLETED CANCELLED FAILED pending active completed cancelled failed"`
}
