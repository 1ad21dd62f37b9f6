package dto

import "github.com/amirphl/dokany-admin/models"

// UpdateManagerRequest edits an admin; omitted fields are left unchanged
type UpdateManagerRequest struct {
	UserName    *string `json:"user_name,omitempty" validate:"omitempty,min=3,max=64"`
	FirstName   *string `json:"f_name,omitempty" validate:"omitempty,max=64"`
	LastName    *string `json:"l_name,omitempty" validate:"omitempty,max=64"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	City        *string `json:"city,omitempty"`
	Governorate *string `json:"governorate,omitempty"`
	Country     *string `json:"country,omitempty"`
}

func (r UpdateManagerRequest) ToModel() models.ManagerUpdate {
	return models.ManagerUpdate{
		UserName:    r.UserName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		City:        r.City,
		Governorate: r.Governorate,
		Country:     r.Country,
	}
}

// ManagerSearchQuery filters the admins list
type ManagerSearchQuery struct {
	Query string `query:"query" validate:"omitempty,max=100"`
}

// SellerSearchQuery filters the sellers list
type SellerSearchQuery struct {
	Query string `query:"query" validate:"omitempty,max=100"`
}

// SellerRequest is the seller form. It arrives as JSON or as multipart
// when a profile image or logo is attached.
type SellerRequest struct {
	UserName     string `json:"user_name" form:"user_name"`
	FirstName    string `json:"f_name" form:"f_name"`
	LastName     string `json:"l_name" form:"l_name"`
	Email        string `json:"email" form:"email"`
	Phone        string `json:"phone" form:"phone"`
	City         string `json:"city" form:"city"`
	Governorate  string `json:"governorate" form:"governorate"`
	Country      string `json:"country" form:"country"`
	Password     string `json:"password,omitempty" form:"password"`
	Subdomain    string `json:"subdomain,omitempty" form:"subdomain"`
	PayoutMethod string `json:"payout_method,omitempty" form:"payout_method"`
	ThemeID      string `json:"theme_id,omitempty" form:"theme_id"`
}

func (r SellerRequest) ToModel() models.SellerInput {
	return models.SellerInput{
		UserName:     r.UserName,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		City:         r.City,
		Governorate:  r.Governorate,
		Country:      r.Country,
		Password:     r.Password,
		Subdomain:    r.Subdomain,
		PayoutMethod: r.PayoutMethod,
		ThemeID:      r.ThemeID,
	}
}

// CreateManagerRequest is the new admin form, JSON or multipart with a profile image
type CreateManagerRequest struct {
	UserName    string `json:"user_name" form:"user_name"`
	FirstName   string `json:"f_name" form:"f_name"`
	LastName    string `json:"l_name" form:"l_name"`
	Email       string `json:"email" form:"email"`
	Phone       string `json:"phone" form:"phone"`
	Password    string `json:"password" form:"password"`
	Role        string `json:"role,omitempty" form:"role"`
	City        string `json:"city,omitempty" form:"city"`
	Governorate string `json:"governorate,omitempty" form:"governorate"`
	Country     string `json:"country,omitempty" form:"country"`
}

func (r CreateManagerRequest) ToModel() models.ManagerInput {
	return models.ManagerInput{
		UserName:    r.UserName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		Password:    r.Password,
		Role:        r.Role,
		City:        r.City,
		Governorate: r.Governorate,
		Country:     r.Country,
	}
}

// ActivityQuery bounds the recent activity list and narrows it to one admin or to failures
type ActivityQuery struct {
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Admin  string `query:"admin" validate:"omitempty,max=64"`
	Failed bool   `query:"failed"`
}
