package dto

// User is the account record returned by the accounts endpoints.
type User struct {
	ID              int    `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	UserType        string `json:"user_type"`
	IsActive        bool   `json:"is_active"`
	DateJoined      string `json:"date_joined"`
	Phone           string `json:"phone,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	MarketingAgreed bool   `json:"marketing_agreed,omitempty"`
}

type Category struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code,omitempty"`
	Slug         string `json:"slug,omitempty"`
	Parent       *int   `json:"parent"`
	FullPath     string `json:"full_path,omitempty"`
	IsActive     bool   `json:"is_active"`
	SortOrder    int    `json:"sort_order,omitempty"`
	ProductCount int    `json:"product_count,omitempty"`
	Image        string `json:"image,omitempty"`
}

type Brand struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type ProductImage struct {
	ID        int    `json:"id"`
	Image     string `json:"image"`
	AltText   string `json:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int    `json:"sort_order"`
}

type Product struct {
	ID               string         `json:"id"`
	SKU              string         `json:"sku"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug,omitempty"`
	Brand            *Brand         `json:"brand"`
	Category         *Category      `json:"category"`
	ShortDescription string         `json:"short_description,omitempty"`
	Description      string         `json:"description,omitempty"`
	SellingPrice     float64        `json:"selling_price"`
	DiscountPrice    float64        `json:"discount_price,omitempty"`
	FinalPrice       float64        `json:"final_price,omitempty"`
	StockQuantity    int            `json:"stock_quantity"`
	MinStockLevel    int            `json:"min_stock_level"`
	Status           string         `json:"status"`
	IsFeatured       bool           `json:"is_featured"`
	IsDigital        bool           `json:"is_digital,omitempty"`
	IsLowStock       bool           `json:"is_low_stock,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	Images           []ProductImage `json:"images,omitempty"`
	PrimaryImage     *ProductImage  `json:"primary_image,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	IsOnSale         bool           `json:"is_on_sale,omitempty"`
	IsOutOfStock     bool           `json:"is_out_of_stock,omitempty"`
	AverageRating    float64        `json:"average_rating,omitempty"`
	ReviewCount      int            `json:"review_count,omitempty"`
}

type CartItem struct {
	ID         int     `json:"id"`
	Product    Product `json:"product"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type Cart struct {
	ID            int        `json:"id"`
	User          *User      `json:"user,omitempty"`
	Items         []CartItem `json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	TotalPrice    float64    `json:"total_price"`
	CreatedAt     string     `json:"created_at"`
	UpdatedAt     string     `json:"updated_at"`
}

type WishlistItem struct {
	ID        int     `json:"id"`
	Product   Product `json:"product"`
	UserID    int     `json:"user,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// WishlistToggle reports whether the toggle added or removed the product.
type WishlistToggle struct {
	Added   bool   `json:"added"`
	Message string `json:"message,omitempty"`
}

type ShippingAddress struct {
	ID            int    `json:"id"`
	UserID        int    `json:"user,omitempty"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	IsDefault     bool   `json:"is_default,omitempty"`
}

type OrderItem struct {
	ID         int     `json:"id"`
	Product    Product `json:"product"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

type Order struct {
	ID              int              `json:"id"`
	OrderNumber     string           `json:"order_number,omitempty"`
	Status          string           `json:"status"`
	Items           []OrderItem      `json:"items"`
	TotalPrice      float64          `json:"total_price"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}

// Paginated is the list envelope every collection endpoint returns.
type Paginated[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
