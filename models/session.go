// Package models contains the domain entities the admin console works with
package models

// AdminIdentity is the identity decoded from the bearer token
type AdminIdentity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Session is a read-only snapshot of the Session Store.
// IsAuthenticated implies Identity != nil.
type Session struct {
	Identity        *AdminIdentity `json:"user,omitempty"`
	IsAuthenticated bool           `json:"is_authenticated"`
	Loading         bool           `json:"loading"`
}

// Resolved reports whether the session has left the loading state
func (s Session) Resolved() bool {
	return !s.Loading
}
