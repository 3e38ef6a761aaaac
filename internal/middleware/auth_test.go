package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/fuzzcast/internal/logging"
)

func testKey(length int) string {
	key := make([]byte, length)
	for i := range key {
		key[i] = 'a' + byte(i%26)
	}
	return string(key)
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected bool
	}{
		{"exactly minimum length", testKey(MinAPIKeyLength), true},
		{"longer key", testKey(64), true},
		{"one short", testKey(MinAPIKeyLength - 1), false},
		{"empty", "", false},
		{"only spaces", strings.Repeat(" ", MinAPIKeyLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.key); got != tt.expected {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("abc"); got != "****" {
		t.Errorf("Expected '****', got %q", got)
	}
	if got := maskAPIKey("abcdefgh"); got != "abcd****" {
		t.Errorf("Expected 'abcd****', got %q", got)
	}
}

func newAuthApp(keys []string, enabled bool) *fiber.App {
	app := fiber.New()
	app.Use(APIKeyAuth(logging.Nop(), keys, enabled))
	app.Get("/v1/models", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAPIKeyAuth(t *testing.T) {
	valid := testKey(40)
	other := testKey(48)

	tests := []struct {
		name    string
		keys    []string
		enabled bool
		headers map[string]string
		status  int
	}{
		{"disabled allows anonymous", nil, false, nil, fiber.StatusOK},
		{"x-api-key header", []string{valid}, true, map[string]string{HeaderAPIKey: valid}, fiber.StatusOK},
		{"bearer token", []string{other, valid}, true, map[string]string{"Authorization": "Bearer " + valid}, fiber.StatusOK},
		{"plain authorization", []string{valid}, true, map[string]string{"Authorization": valid}, fiber.StatusOK},
		{"missing key", []string{valid}, true, nil, fiber.StatusUnauthorized},
		{"wrong key", []string{valid}, true, map[string]string{HeaderAPIKey: other}, fiber.StatusUnauthorized},
		{"weak configured key is ignored", []string{"short"}, true, map[string]string{HeaderAPIKey: "short"}, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthApp(tt.keys, tt.enabled)
			req := httptest.NewRequest("GET", "/v1/models", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to perform request: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}
