package paytr_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abdullah-koca/lunora/internal/paytr"

	"go.uber.org/zap"
)

func testConfig(apiBase string) paytr.Config {
	return paytr.Config{
		MerchantID:   "123456",
		MerchantKey:  "test-merchant-key",
		MerchantSalt: "test-merchant-salt",
		APIBase:      apiBase,
		OKURL:        "https://shop.example.com/odeme/basarili",
		FailURL:      "https://shop.example.com/odeme/hata",
		CallbackURL:  "https://shop.example.com/api/paytr/callback",
		TimeoutLimit: "30",
		TestMode:     true,
	}
}

func hmacBase64(key, payload string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestGenerateMerchantOID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		oid := paytr.GenerateMerchantOID()
		if !strings.HasPrefix(oid, "LN") {
			t.Fatalf("oid %q has no LN prefix", oid)
		}
		if len(oid) < 20 {
			t.Fatalf("oid %q suspiciously short", oid)
		}
		suffix := oid[len(oid)-6:]
		for _, r := range suffix {
			if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", r) {
				t.Fatalf("oid %q suffix has unexpected rune %q", oid, r)
			}
		}
		if seen[oid] {
			t.Fatalf("duplicate oid %q", oid)
		}
		seen[oid] = true
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{1299.90, 129990},
		{50, 5000},
		{0.01, 1},
		{1500.00, 150000},
	}
	for _, c := range cases {
		if got := paytr.ToMinorUnits(c.in); got != c.want {
			t.Fatalf("ToMinorUnits(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEncodeBasket_CanonicalForm(t *testing.T) {
	encoded, err := paytr.EncodeBasket([]paytr.BasketItem{
		{Name: "Keten Gömlek", Price: 899.9, Quantity: 2},
		{Name: "Tişört", Price: 299, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("EncodeBasket: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	want := `[["Keten Gömlek","899.90",2],["Tişört","299.00",1]]`
	if string(raw) != want {
		t.Fatalf("canonical basket mismatch:\n got %s\nwant %s", raw, want)
	}

	items, err := paytr.DecodeBasket(encoded)
	if err != nil {
		t.Fatalf("DecodeBasket: %v", err)
	}
	if len(items) != 2 || items[0].Price != 899.9 || items[1].Quantity != 1 {
		t.Fatalf("round trip mismatch: %+v", items)
	}
}

func TestEncodeBasket_Invalid(t *testing.T) {
	if _, err := paytr.EncodeBasket([]paytr.BasketItem{{Name: "", Price: 10, Quantity: 1}}); !errors.Is(err, paytr.ErrInvalidBasket) {
		t.Fatalf("empty name: expected ErrInvalidBasket, got %v", err)
	}
	if _, err := paytr.EncodeBasket([]paytr.BasketItem{{Name: "x", Price: 10, Quantity: 0}}); !errors.Is(err, paytr.ErrInvalidBasket) {
		t.Fatalf("zero quantity: expected ErrInvalidBasket, got %v", err)
	}
}

func TestVerifyCallbackHash(t *testing.T) {
	cfg := testConfig("")
	client := paytr.NewClient(cfg, zap.NewNop())

	n := paytr.CallbackNotification{
		MerchantOID: "LN1700000000000000ABC123",
		Status:      "success",
		TotalAmount: "129990",
	}
	n.Hash = hmacBase64(cfg.MerchantKey, n.MerchantOID+cfg.MerchantSalt+n.Status+n.TotalAmount)

	if !client.VerifyCallbackHash(n) {
		t.Fatal("valid hash rejected")
	}

	// подмена суммы после подписи
	tampered := n
	tampered.TotalAmount = "1"
	if client.VerifyCallbackHash(tampered) {
		t.Fatal("tampered total_amount accepted")
	}

	tampered = n
	tampered.Status = "failed"
	if client.VerifyCallbackHash(tampered) {
		t.Fatal("tampered status accepted")
	}
}

func TestGetToken_SignsAndParses(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","token":"tok123"}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	client := paytr.NewClient(cfg, zap.NewNop())

	resp, err := client.GetToken(context.Background(), paytr.TokenRequest{
		MerchantOID: "LN1700000000000000ABC123",
		Amount:      1299.90,
		Currency:    "TL",
		UserIP:      "10.0.0.7",
		Customer: paytr.Customer{
			Email:   "musteri@example.com",
			Name:    "Ayşe Yılmaz",
			Address: "Bağdat Cad. 1, Kadıköy, İstanbul",
			Phone:   "+905551112233",
		},
		Basket: []paytr.BasketItem{{Name: "Keten Gömlek", Price: 1299.90, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}

	if resp.Token != "tok123" {
		t.Fatalf("token = %q", resp.Token)
	}
	if resp.IframeURL != srv.URL+"/odeme/guvenli/tok123" {
		t.Fatalf("iframe url = %q", resp.IframeURL)
	}
	if resp.MerchantOID != "LN1700000000000000ABC123" {
		t.Fatalf("merchant oid = %q", resp.MerchantOID)
	}

	if gotForm["merchant_id"] != cfg.MerchantID {
		t.Fatalf("merchant_id = %q", gotForm["merchant_id"])
	}
	if gotForm["payment_amount"] != "129990" {
		t.Fatalf("payment_amount = %q, want minor units", gotForm["payment_amount"])
	}
	if gotForm["test_mode"] != "1" || gotForm["no_installment"] != "0" || gotForm["max_installment"] != "0" {
		t.Fatalf("flags mismatch: %+v", gotForm)
	}
	if gotForm["callback_url"] != cfg.CallbackURL {
		t.Fatalf("callback_url = %q", gotForm["callback_url"])
	}

	// подпись пересчитывается независимо по рецепту провайдера
	wantToken := hmacBase64(cfg.MerchantKey,
		cfg.MerchantID+"10.0.0.7"+"LN1700000000000000ABC123"+"musteri@example.com"+
			"129990"+gotForm["user_basket"]+"0"+"0"+"TL"+"1"+cfg.MerchantSalt)
	if gotForm["paytr_token"] != wantToken {
		t.Fatalf("paytr_token mismatch:\n got %s\nwant %s", gotForm["paytr_token"], wantToken)
	}

	items, err := paytr.DecodeBasket(gotForm["user_basket"])
	if err != nil || len(items) != 1 || items[0].Name != "Keten Gömlek" {
		t.Fatalf("user_basket malformed: %v %+v", err, items)
	}
}

func TestGetToken_GatewayRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"failed","reason":"INVALID_MERCHANT"}`))
	}))
	defer srv.Close()

	client := paytr.NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := client.GetToken(context.Background(), paytr.TokenRequest{
		Amount: 100,
		Customer: paytr.Customer{
			Email: "a@b.c", Name: "A", Address: "Adr", Phone: "+90",
		},
		Basket: []paytr.BasketItem{{Name: "x", Price: 100, Quantity: 1}},
	})

	var gw *paytr.GatewayError
	if !errors.As(err, &gw) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gw.Reason != "INVALID_MERCHANT" {
		t.Fatalf("reason = %q", gw.Reason)
	}
}

func TestGetToken_Validation(t *testing.T) {
	client := paytr.NewClient(testConfig("http://127.0.0.1:0"), zap.NewNop())
	ctx := context.Background()

	okCustomer := paytr.Customer{Email: "a@b.c", Name: "A", Address: "Adr", Phone: "+90"}
	okBasket := []paytr.BasketItem{{Name: "x", Price: 1, Quantity: 1}}

	if _, err := client.GetToken(ctx, paytr.TokenRequest{Amount: 0, Customer: okCustomer, Basket: okBasket}); !errors.Is(err, paytr.ErrInvalidAmount) {
		t.Fatalf("zero amount: %v", err)
	}
	if _, err := client.GetToken(ctx, paytr.TokenRequest{Amount: 1, Customer: paytr.Customer{Email: "a@b.c"}, Basket: okBasket}); !errors.Is(err, paytr.ErrMissingCustomer) {
		t.Fatalf("incomplete customer: %v", err)
	}
	if _, err := client.GetToken(ctx, paytr.TokenRequest{Amount: 1, Customer: okCustomer}); !errors.Is(err, paytr.ErrEmptyBasket) {
		t.Fatalf("empty basket: %v", err)
	}
}
