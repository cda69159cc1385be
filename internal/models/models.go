package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заказа — строковые типы, значения совпадают с колонками в БД.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const CampaignBuyXGetY = "buy_x_get_y"

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	ProductCode *string   `gorm:"type:text" json:"product_code,omitempty"`
	PriceCents  int64     `gorm:"not null" json:"price_cents"`
	Image       *string   `gorm:"type:text" json:"image,omitempty"`
	Stock       int32     `gorm:"not null;default:0" json:"stock"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`

	// Скидка на товар: эффективная цена = DiscountPriceCents, если IsDiscounted.
	IsDiscounted       bool   `gorm:"not null;default:false" json:"is_discounted"`
	DiscountPriceCents *int64 `json:"discount_price_cents,omitempty"`
	DiscountPercent    *int32 `json:"discount_percent,omitempty"`

	// Кампания «3 al 2 öde» с окном действия.
	CampaignType      *string    `gorm:"type:text" json:"campaign_type,omitempty"`
	CampaignActive    bool       `gorm:"not null;default:false" json:"campaign_active"`
	CampaignStartDate *time.Time `json:"campaign_start_date,omitempty"`
	CampaignEndDate   *time.Time `json:"campaign_end_date,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

type Address struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	FullName    string    `gorm:"type:text;not null" json:"full_name"`
	Phone       string    `gorm:"type:text;not null" json:"phone"`
	AddressLine string    `gorm:"type:text;not null" json:"address_line"`
	City        string    `gorm:"type:text;not null" json:"city"`
	District    string    `gorm:"type:text;not null" json:"district"`
	PostalCode  string    `gorm:"type:text" json:"postal_code"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Address) TableName() string { return "user_addresses" }

// AddressSnapshot — денормализованная копия адреса внутри заказа.
// Последующее редактирование/удаление адреса заказ не меняет.
type AddressSnapshot struct {
	Title       string `json:"title"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	District    string `json:"district"`
	PostalCode  string `json:"postal_code"`
}

// CartItem — типизированная позиция корзины. Поля скидки и кампании
// заполняются на границе чтения каталога, а не выводятся повторно.
type CartItem struct {
	ProductID          uuid.UUID  `json:"product_id"`
	Name               string     `json:"name"`
	PriceCents         int64      `json:"price_cents"`
	IsDiscounted       bool       `json:"is_discounted"`
	DiscountPriceCents *int64     `json:"discount_price_cents,omitempty"`
	Size               string     `json:"size"`
	Quantity           int32      `json:"quantity"`
	Image              *string    `json:"image,omitempty"`
	ProductCode        *string    `json:"product_code,omitempty"`
	CampaignType       *string    `json:"campaign_type,omitempty"`
	CampaignActive     bool       `json:"campaign_active"`
	CampaignStartDate  *time.Time `json:"campaign_start_date,omitempty"`
	CampaignEndDate    *time.Time `json:"campaign_end_date,omitempty"`
}

// EffectivePriceCents возвращает цену позиции с учётом скидки.
func (it CartItem) EffectivePriceCents() int64 {
	if it.IsDiscounted && it.DiscountPriceCents != nil {
		return *it.DiscountPriceCents
	}
	return it.PriceCents
}

type Cart struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Items     string    `gorm:"type:jsonb;not null;default:'[]'"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Cart) TableName() string { return "carts" }

type Order struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerEmail string    `gorm:"type:text;not null"`
	NameSurname   string    `gorm:"type:text;not null"`

	// OrderNumber — merchant oid, клиентский ключ идемпотентности всего checkout.
	OrderNumber string `gorm:"type:text;not null;uniqueIndex"`

	TotalCents    int64         `gorm:"not null"`
	Currency      string        `gorm:"type:varchar(3);not null;default:'TL'"`
	PaymentMethod string        `gorm:"type:text;not null;default:'paytr'"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'pending';index"`
	Status        OrderStatus   `gorm:"type:text;not null;default:'pending';index"`

	ShippingAddress string `gorm:"type:jsonb;not null"` // AddressSnapshot
	Notes           string `gorm:"type:jsonb"`          // PaymentDiag от провайдера

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null"`
	ProductName string    `gorm:"type:text;not null"` // снапшот названия на момент заказа

	// Снапшот эффективной цены (со скидкой, если действовала).
	UnitPriceCents int64   `gorm:"not null"`
	Size           string  `gorm:"type:text;not null"`
	Quantity       int32   `gorm:"not null"`
	Image          *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// PaymentDiag — сырой статус/причина от платёжного провайдера, пишется в
// orders.notes для аудита.
type PaymentDiag struct {
	PaymentProvider string `json:"paymentProvider"`
	MerchantOID     string `json:"merchantOid"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
}
