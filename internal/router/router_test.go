package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdullah-koca/lunora/config"

	"github.com/gin-gonic/gin"
)

func TestConfigEndpointExposesGatewayMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		APIBaseURL:   "https://api.example.com",
		PublicOrigin: "https://shop.example.com",
		PayTR:        config.PayTR{TestMode: true},
	}
	r := Router(cfg, Handlers{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}
	var resp struct {
		APIBaseURL string `json:"apiBaseUrl"`
		TestMode   *bool  `json:"testMode"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.APIBaseURL != cfg.APIBaseURL {
		t.Fatalf("apiBaseUrl = %q", resp.APIBaseURL)
	}
	if resp.TestMode == nil || !*resp.TestMode {
		t.Fatalf("testMode missing or false: %s", w.Body.String())
	}
}
