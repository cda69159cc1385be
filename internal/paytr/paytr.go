// Package paytr implements the server side of the PayTR hosted-payment
// integration: acquiring iframe tokens and verifying callback notifications.
// The hash recipes follow the provider contract field-for-field; any deviation
// breaks the signature check on their side.
package paytr

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidAmount   = errors.New("payment amount is invalid")
	ErrMissingCustomer = errors.New("customer fields are incomplete")
	ErrEmptyBasket     = errors.New("basket is empty")
	ErrInvalidBasket   = errors.New("basket item is invalid")

	// ErrGatewayUnreachable — сетевой сбой или таймаут при обращении к PayTR.
	ErrGatewayUnreachable = errors.New("paytr gateway unreachable")
)

// GatewayError — бизнес-отказ провайдера (status != success), reason отдаётся
// пользователю дословно.
type GatewayError struct {
	Status string
	Reason string
}

func (e *GatewayError) Error() string {
	if e.Reason != "" {
		return "paytr rejected token request: " + e.Reason
	}
	return "paytr rejected token request (status " + e.Status + ")"
}

type Config struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string

	APIBase      string // https://www.paytr.com, переопределяется в тестах
	OKURL        string
	FailURL      string
	CallbackURL  string
	TimeoutLimit string // секунды, поле timeout_limit формы
	DebugOn      bool
	TestMode     bool // дефолт, если запрос не задал testMode явно
}

type Customer struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	IP      string `json:"ip,omitempty"`
}

type BasketItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type TokenRequest struct {
	MerchantOID    string
	Amount         float64 // десятичные TL; в подпись идут только minor units
	Currency       string
	NoInstallment  bool
	MaxInstallment int
	TestMode       *bool // nil — берём дефолт из конфига
	UserIP         string
	Customer       Customer
	Basket         []BasketItem
}

type TokenResponse struct {
	Token       string
	MerchantOID string
	IframeURL   string
}

// CallbackNotification — server-to-server уведомление от PayTR.
// total_amount приходит строкой и в подпись попадает как есть.
type CallbackNotification struct {
	MerchantOID  string
	Status       string
	TotalAmount  string
	Hash         string
	FailedReason string
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// PayTR API бывает медленным, таймаут держим заметно выше обычного.
const requestTimeout = 20 * time.Second

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://www.paytr.com"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
		log:  log,
	}
}

const oidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateMerchantOID выдаёт уникальный номер заказа без координации с БД:
// LN + метка времени в микросекундах + 6 случайных символов.
func GenerateMerchantOID() string {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		// крайне маловероятно; откат на наносекунды
		return "LN" + strconv.FormatInt(time.Now().UnixMicro(), 10) + strconv.FormatInt(time.Now().UnixNano()%1000000, 10)
	}
	for i := range suffix {
		suffix[i] = oidAlphabet[int(suffix[i])%len(oidAlphabet)]
	}
	return "LN" + strconv.FormatInt(time.Now().UnixMicro(), 10) + string(suffix)
}

// ToMinorUnits переводит десятичную сумму в целые куруши. Дробные суммы в
// подпись передавать нельзя — ошибка округления ломает сверку хэша.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// EncodeBasket канонизирует корзину в [[name, "%.2f", qty], ...] и кодирует в
// base64. Подпись считается ровно над этими байтами, поэтому формат цен
// фиксирован двумя знаками.
func EncodeBasket(items []BasketItem) (string, error) {
	entries := make([][3]any, 0, len(items))
	for _, it := range items {
		if it.Name == "" || it.Quantity <= 0 || it.Price < 0 || math.IsNaN(it.Price) {
			return "", ErrInvalidBasket
		}
		entries = append(entries, [3]any{it.Name, strconv.FormatFloat(it.Price, 'f', 2, 64), it.Quantity})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeBasket — обратная операция, используется в сверках и тестах.
func DecodeBasket(encoded string) ([]BasketItem, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var entries [][3]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	items := make([]BasketItem, 0, len(entries))
	for _, e := range entries {
		var (
			name     string
			priceStr string
			qty      int
		)
		if err := json.Unmarshal(e[0], &name); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(e[1], &priceStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(e[2], &qty); err != nil {
			return nil, err
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			return nil, err
		}
		items = append(items, BasketItem{Name: name, Price: price, Quantity: qty})
	}
	return items, nil
}

func (c *Client) signToken(userIP, oid, email string, minorAmount int64, basket64, noInst, maxInst, currency, testMode string) string {
	hashStr := c.cfg.MerchantID + userIP + oid + email +
		strconv.FormatInt(minorAmount, 10) + basket64 +
		noInst + maxInst + currency + testMode

	mac := hmac.New(sha256.New, []byte(c.cfg.MerchantKey))
	mac.Write([]byte(hashStr + c.cfg.MerchantSalt))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackHash сверяет подпись callback-уведомления. Это единственная
// аутентификация этого канала — несовпадение значит подделку или повреждение.
func (c *Client) VerifyCallbackHash(n CallbackNotification) bool {
	hashStr := n.MerchantOID + c.cfg.MerchantSalt + n.Status + n.TotalAmount
	mac := hmac.New(sha256.New, []byte(c.cfg.MerchantKey))
	mac.Write([]byte(hashStr))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.Hash)) == 1
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// GetToken валидирует вход, подписывает и обменивает его на iframe-токен.
// Никаких побочных эффектов кроме исходящего HTTP-запроса: журнал заказов
// трогает вызывающая сторона, и только после успешного токена.
func (c *Client) GetToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) {
		return nil, ErrInvalidAmount
	}
	cust := req.Customer
	if cust.Email == "" || cust.Name == "" || cust.Address == "" || cust.Phone == "" {
		return nil, ErrMissingCustomer
	}
	if len(req.Basket) == 0 {
		return nil, ErrEmptyBasket
	}

	oid := req.MerchantOID
	if oid == "" {
		oid = GenerateMerchantOID()
	}

	basket64, err := EncodeBasket(req.Basket)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "TL"
	}
	userIP := req.UserIP
	if userIP == "" {
		userIP = cust.IP
	}
	if userIP == "" {
		userIP = "127.0.0.1"
	}

	testMode := c.cfg.TestMode
	if req.TestMode != nil {
		testMode = *req.TestMode
	}

	minorAmount := ToMinorUnits(req.Amount)
	noInst := boolFlag(req.NoInstallment)
	maxInst := strconv.Itoa(req.MaxInstallment)
	testFlag := boolFlag(testMode)

	token := c.signToken(userIP, oid, cust.Email, minorAmount, basket64, noInst, maxInst, currency, testFlag)

	form := url.Values{
		"merchant_id":       {c.cfg.MerchantID},
		"user_ip":           {userIP},
		"merchant_oid":      {oid},
		"email":             {cust.Email},
		"payment_amount":    {strconv.FormatInt(minorAmount, 10)},
		"paytr_token":       {token},
		"user_basket":       {basket64},
		"debug_on":          {boolFlag(c.cfg.DebugOn)},
		"no_installment":    {noInst},
		"max_installment":   {maxInst},
		"user_name":         {cust.Name},
		"user_address":      {cust.Address},
		"user_phone":        {cust.Phone},
		"merchant_ok_url":   {c.cfg.OKURL},
		"merchant_fail_url": {c.cfg.FailURL},
		"timeout_limit":     {c.cfg.TimeoutLimit},
		"currency":          {currency},
		"test_mode":         {testFlag},
	}
	if c.cfg.CallbackURL != "" {
		form.Set("callback_url", c.cfg.CallbackURL)
	}

	if c.cfg.DebugOn {
		c.log.Debug("paytr token request",
			zap.String("merchant_oid", oid),
			zap.String("user_ip", userIP),
			zap.Int64("payment_amount", minorAmount),
			zap.String("test_mode", testFlag),
		)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIBase+"/odeme/api/get-token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGatewayUnreachable, err)
	}

	var data struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrGatewayUnreachable, err)
	}

	if data.Status != "success" || data.Token == "" {
		return nil, &GatewayError{Status: data.Status, Reason: data.Reason}
	}

	return &TokenResponse{
		Token:       data.Token,
		MerchantOID: oid,
		IframeURL:   c.cfg.APIBase + "/odeme/guvenli/" + data.Token,
	}, nil
}
