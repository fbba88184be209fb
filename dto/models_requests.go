package dto

// RegisterPayload mirrors the signup form fields.
type RegisterPayload struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone,omitempty"`
	MarketingAgreed bool   `json:"marketing_agreed,omitempty"`
}

type ProfilePayload struct {
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	MarketingAgreed *bool  `json:"marketing_agreed,omitempty"`
}

type CheckoutPayload struct {
	ShippingAddressID int    `json:"shipping_address_id,omitempty"`
	RecipientName     string `json:"recipient_name,omitempty"`
	Phone             string `json:"phone,omitempty"`
	AddressLine1      string `json:"address_line1,omitempty"`
	AddressLine2      string `json:"address_line2,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	Memo              string `json:"memo,omitempty"`
}

// ProductFilters are the supported catalog query parameters.
// Zero values are omitted from the encoded query string.
type ProductFilters struct {
	Search     string
	Category   []int
	Brand      []int
	Status     string
	IsFeatured *bool
	MinPrice   float64
	MaxPrice   float64
	Page       int
	PageSize   int
	Ordering   string
	IsOnSale   *bool
	InStock    *bool
	Tags       []string
}
