package models

import "strings"

// Seller is a storefront owner on the platform
type Seller struct {
	ID           string `json:"id"`
	UserName     string `json:"user_name"`
	FirstName    string `json:"f_name"`
	LastName     string `json:"l_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	Governorate  string `json:"governorate"`
	Country      string `json:"country"`
	Subdomain    string `json:"subdomain,omitempty"`
	PayoutMethod string `json:"payout_method,omitempty"`
	ThemeID      string `json:"theme_id,omitempty"`
	ProfileImage string `json:"profile_imge,omitempty"`
	Logo         string `json:"logo,omitempty"`
}

// Manager is an admin user of the dashboard
type Manager struct {
	ID          string `json:"id"`
	UserName    string `json:"user_name"`
	FirstName   string `json:"f_name"`
	LastName    string `json:"l_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role,omitempty"`
	City        string `json:"city,omitempty"`
	Governorate string `json:"governorate,omitempty"`
	Country     string `json:"country,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// ManagerUpdate carries the editable manager fields; nil fields are left unchanged
type ManagerUpdate struct {
	UserName    *string `json:"user_name,omitempty"`
	FirstName   *string `json:"f_name,omitempty"`
	LastName    *string `json:"l_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	City        *string `json:"city,omitempty"`
	Governorate *string `json:"governorate,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// Upload is a file forwarded to the dashboard API as a multipart part
type Upload struct {
	Filename string
	Content  []byte
}

// SellerInput is the seller form. Blank fields are not sent, so an update
// without a password keeps the current one.
type SellerInput struct {
	UserName     string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	City         string
	Governorate  string
	Country      string
	Password     string
	Subdomain    string
	PayoutMethod string
	ThemeID      string
	ProfileImage *Upload
	Logo         *Upload
}

// FormFields returns the non-blank text fields keyed by their wire names
func (in SellerInput) FormFields() map[string]string {
	return nonBlank(map[string]string{
		"user_name":     in.UserName,
		"f_name":        in.FirstName,
		"l_name":        in.LastName,
		"email":         in.Email,
		"phone":         in.Phone,
		"city":          in.City,
		"governorate":   in.Governorate,
		"country":       in.Country,
		"password":      in.Password,
		"subdomain":     in.Subdomain,
		"payout_method": in.PayoutMethod,
		"theme_id":      in.ThemeID,
	})
}

// ManagerInput is the new admin form
type ManagerInput struct {
	UserName     string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Password     string
	Role         string
	City         string
	Governorate  string
	Country      string
	ProfileImage *Upload
}

func (in ManagerInput) FormFields() map[string]string {
	return nonBlank(map[string]string{
		"user_name":   in.UserName,
		"f_name":      in.FirstName,
		"l_name":      in.LastName,
		"email":       in.Email,
		"phone":       in.Phone,
		"password":    in.Password,
		"role":        in.Role,
		"city":        in.City,
		"governorate": in.Governorate,
		"country":     in.Country,
	})
}

func nonBlank(fields map[string]string) map[string]string {
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			delete(fields, k)
		}
	}
	return fields
}

type PayoutStatus string

const (
	PayoutStatusPaid    PayoutStatus = "Paid"
	PayoutStatusPending PayoutStatus = "Pending"
)

// Toggled returns the opposite payout status
func (s PayoutStatus) Toggled() PayoutStatus {
	if s == PayoutStatusPaid {
		return PayoutStatusPending
	}
	return PayoutStatusPaid
}

type PayoutSeller struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
}

// Payout is a seller payout request
type Payout struct {
	ID           string       `json:"id"`
	Amount       float64      `json:"amount"`
	Status       PayoutStatus `json:"status"`
	PayoutMethod string       `json:"payout_method"`
	Date         string       `json:"date"`
	Seller       PayoutSeller `json:"seller"`
}

func (p Payout) IsPaid() bool {
	return p.Status == PayoutStatusPaid
}

// DashboardSummary is the analytics overview
type DashboardSummary struct {
	Overview struct {
		TotalSellers   int `json:"total_sellers"`
		TotalCampaigns int `json:"total_campaigns"`
		TotalThemes    int `json:"total_themes"`
		TotalOrders    int `json:"total_orders"`
	} `json:"overview"`
	CampaignSummary struct {
		ActiveCampaigns    int     `json:"active_campaigns"`
		CompletedCampaigns int     `json:"completed_campaigns"`
		TotalRecipients    int     `json:"total_recipients"`
		AverageOpenRate    float64 `json:"average_open_rate"`
	} `json:"campaign_summary"`
	LocationSummary struct {
		TotalCountries    int `json:"total_countries"`
		TotalGovernorates int `json:"total_governorates"`
		TotalCities       int `json:"total_cities"`
	} `json:"location_summary"`
	ThemeSummary struct {
		MostUsedTheme   string `json:"most_used_theme"`
		ThemeUsageCount int    `json:"theme_usage_count"`
	} `json:"theme_summary"`
}
