package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.PlatformFeeRate.Equal(decimal.RequireFromString("0.20")) {
		t.Errorf("fee rate: got %s, want 0.20", cfg.PlatformFeeRate)
	}
	if cfg.GeofenceRadiusFeet != 200 {
		t.Errorf("radius: got %v, want 200", cfg.GeofenceRadiusFeet)
	}
}

func TestLoad_RejectsBadFeeRate(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("fee rate >= 1 should be rejected")
	}

	t.Setenv("PLATFORM_FEE_RATE", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("non-numeric fee rate should be rejected")
	}
}

func TestLoad_RejectsBadRadius(t *testing.T) {
	t.Setenv("GEOFENCE_RADIUS_FEET", "-10")
	if _, err := Load(); err == nil {
		t.Fatal("negative radius should be rejected")
	}
}

func TestLoad_RejectsBadPaymentKey(t *testing.T) {
	t.Setenv("PAYMENT_SECRET_KEY", "pk_test_wrong_kind")
	if _, err := Load(); err == nil {
		t.Fatal("non-secret payment key should be rejected")
	}

	t.Setenv("PAYMENT_SECRET_KEY", "sk_live_abc123")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PaymentSecretKey != "sk_live_abc123" {
		t.Errorf("payment key: got %s", cfg.PaymentSecretKey)
	}
}
