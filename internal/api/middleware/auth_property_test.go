package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_APIKeyAuthenticationValidity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	tempDir, err := os.MkdirTemp("", "spam_killer_auth_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	apiKeyManager, err := NewAPIKeyManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create API key manager: %v", err)
	}

	validKey := apiKeyManager.GetCurrentKey()

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(APIKeyMiddleware(apiKeyManager))
		router.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return router
	}

	properties.Property("valid_api_key_accepted", prop.ForAll(
		func(_ string) bool {
			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set(APIKeyHeader, validKey)

			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			return w.Code == http.StatusOK
		},
		gen.AlphaString(),
	))

	properties.Property("missing_api_key_rejected", prop.ForAll(
		func(_ string) bool {
			req, _ := http.NewRequest("GET", "/test", nil)

			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.Property("invalid_api_key_rejected", prop.ForAll(
		func(bogus string) bool {
			if bogus == validKey {
				return true
			}
			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set(APIKeyHeader, bogus)

			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestAPIKeyManagerPersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "spam_killer_key_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	first, err := NewAPIKeyManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create API key manager: %v", err)
	}

	key := first.GetCurrentKey()
	if len(key) != APIKeyLength*2 {
		t.Fatalf("expected %d hex chars, got %d", APIKeyLength*2, len(key))
	}

	// A second manager over the same data dir loads the persisted key.
	second, err := NewAPIKeyManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to reopen API key manager: %v", err)
	}
	if second.GetCurrentKey() != key {
		t.Fatal("persisted key was not reloaded")
	}

	rotated, err := second.ResetKey()
	if err != nil {
		t.Fatalf("ResetKey failed: %v", err)
	}
	if rotated == key {
		t.Fatal("rotated key should differ from the old key")
	}
	if second.ValidateKey(key) {
		t.Fatal("old key should no longer validate")
	}
	if !second.ValidateKey(rotated) {
		t.Fatal("rotated key should validate")
	}
}
