package models

import "time"

type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "PENDING"
	CampaignStatusActive    CampaignStatus = "ACTIVE"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
	CampaignStatusFailed    CampaignStatus = "FAILED"
)

type CampaignType string

const (
	CampaignTypeEmail            CampaignType = "EMAIL"
	CampaignTypeSMS              CampaignType = "SMS"
	CampaignTypePushNotification CampaignType = "PUSH_NOTIFICATION"
)

type SenderType string

const (
	SenderTypeAdmin  SenderType = "ADMIN"
	SenderTypeSeller SenderType = "SELLER"
)

// CampaignSender is the identity snapshot the upstream stores with a campaign
type CampaignSender struct {
	ID        string `json:"id"`
	UserName  string `json:"user_name"`
	FirstName string `json:"f_name"`
	LastName  string `json:"l_name"`
	Email     string `json:"email"`
}

type ThemeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Campaign as returned by the upstream. The status is owned server-side.
type Campaign struct {
	ID            string           `json:"id"`
	SenderID      string           `json:"senderId"`
	SenderType    SenderType       `json:"senderType"`
	Type          CampaignType     `json:"type"`
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	ReceiverCount int              `json:"receiver_count"`
	CreatedAt     time.Time        `json:"createdAt"`
	Status        CampaignStatus   `json:"status"`
	CampaignCost  float64          `json:"campaign_cost"`
	TargetThemeID *string          `json:"target_theme_id,omitempty"`
	Sender        *CampaignSender  `json:"sender,omitempty"`
	TargetTheme   *ThemeRef        `json:"target_theme,omitempty"`
	Locations     []LocationFilter `json:"locations"`
}

// TargetingLabel describes the campaign's audience for list views
func (c *Campaign) TargetingLabel() string {
	switch {
	case c.TargetTheme != nil:
		return "Theme: " + c.TargetTheme.Name
	case c.TargetThemeID != nil && *c.TargetThemeID != "":
		return "Theme: " + *c.TargetThemeID
	case len(c.Locations) > 0:
		label := "Locations:"
		for i, l := range c.Locations {
			if i > 0 {
				label += ","
			}
			label += " " + l.Name
		}
		return label
	default:
		return "All sellers"
	}
}

// CampaignStats is the aggregate view shown on the campaigns page
type CampaignStats struct {
	TotalCampaigns     int `json:"total_campaigns"`
	ActiveCampaigns    int `json:"active_campaigns"`
	PendingCampaigns   int `json:"pending_campaigns"`
	CompletedCampaigns int `json:"completed_campaigns"`
	TotalRecipients    int `json:"total_recipients"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// CampaignPage is one page of the campaign list
type CampaignPage struct {
	Campaigns  []Campaign `json:"campaigns"`
	Pagination Pagination `json:"pagination"`
}

// CampaignListQuery selects one page of the campaign list, optionally narrowed to a status
type CampaignListQuery struct {
	Page   int
	Limit  int
	Status CampaignStatus
}

// CampaignPayload is the body of POST /admin/campaigns.
// At most one of TargetThemeID and TargetLocations is set.
type CampaignPayload struct {
	Title           string           `json:"title"`
	Content         string           `json:"content"`
	TargetThemeID   *string          `json:"target_theme_id,omitempty"`
	TargetLocations []LocationFilter `json:"target_locations,omitempty"`
}

// HasTheme reports whether the payload carries a theme reference
func (p CampaignPayload) HasTheme() bool {
	return p.TargetThemeID != nil
}

// HasLocations reports whether the payload carries location filters
func (p CampaignPayload) HasLocations() bool {
	return len(p.TargetLocations) > 0
}
