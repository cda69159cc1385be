package dto

import "github.com/google/uuid"

type SelectAddressRequest struct {
	AddressID uuid.UUID `json:"address_id" binding:"required"`
}

// RelayRequest — пересланное фронтендом postMessage из платёжного iframe.
// Поле orderId сверяется с активным merchant oid сессии.
type RelayRequest struct {
	Type        string `json:"type" binding:"required"`
	Status      string `json:"status" binding:"required"`
	OrderNumber string `json:"orderId"`
	Message     string `json:"message"`
	Reason      string `json:"reason"`
}

type CartLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Size      string    `json:"size" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required,gt=0"`
}

// CartUpdateRequest полностью заменяет корзину. Цены и поля кампаний клиент
// не присылает — сервер берёт их из каталога.
type CartUpdateRequest struct {
	Items []CartLine `json:"items" binding:"required,dive"`
}

type AddressCreateRequest struct {
	Title       string `json:"title" binding:"required"`
	FullName    string `json:"full_name" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	AddressLine string `json:"address_line" binding:"required"`
	City        string `json:"city" binding:"required"`
	District    string `json:"district" binding:"required"`
	PostalCode  string `json:"postal_code"`
	IsDefault   bool   `json:"is_default"`
}

type BasketLine struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
}

// TokenRequest — прямой запрос токена без checkout-сессии. Заказ при этом
// не создаётся; основной поток идёт через /api/checkout/:id/pay.
// merchant_oid необязателен: без него номер заказа выдаёт сам шлюзовой клиент.
type TokenRequest struct {
	MerchantOID    string       `json:"merchant_oid"`
	Amount         float64      `json:"amount" binding:"required,gt=0"`
	Currency       string       `json:"currency"`
	NoInstallment  bool         `json:"no_installment"`
	MaxInstallment int          `json:"max_installment"`
	TestMode       *bool        `json:"test_mode"`
	Address        string       `json:"address" binding:"required"`
	Phone          string       `json:"phone"`
	Basket         []BasketLine `json:"basket" binding:"required,min=1,dive"`
}

type TokenResponse struct {
	Status      string `json:"status"`
	Token       string `json:"token"`
	MerchantOID string `json:"merchant_oid"`
	IframeURL   string `json:"iframe_url"`
}

type ConfigResponse struct {
	APIBaseURL string `json:"apiBaseUrl"`
	TestMode   bool   `json:"testMode"`
}
