package dto

// UpdateDraftRequest edits draft fields; omitted fields are left unchanged
type UpdateDraftRequest struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	TargetType *string `json:"targetType,omitempty" validate:"omitempty,oneof=all theme location"`
}

// ToggleThemeRequest adds or removes one theme from a draft
type ToggleThemeRequest struct {
	ThemeID string `json:"themeId" validate:"required"`
}

// ToggleLocationRequest adds or removes one location from a draft
type ToggleLocationRequest struct {
	Name string `json:"name" validate:"required"`
}

// TestEmailRequest asks the dashboard API for a test campaign email
type TestEmailRequest struct {
	Email string `json:"email"`
}
