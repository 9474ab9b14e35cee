package config

import (
	"testing"
	"time"
)

func TestLoadRequiresCoreKeys(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost/pos",
		"REDIS_URL":        "redis://localhost:6379",
		"JWT_SECRET":       "secret",
		"TAX_STANDARD_BPS": "",
		"TAX_REDUCED_BPS":  "",
		"CURRENCY_CODE":    "",
		"PORT":             "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxStandardBps != 1000 {
		t.Fatalf("expected default standard tax 1000 bps, got %d", cfg.TaxStandardBps)
	}
	if cfg.TaxReducedBps != 500 {
		t.Fatalf("expected default reduced tax 500 bps, got %d", cfg.TaxReducedBps)
	}
	if cfg.CurrencyCode != "USD" {
		t.Fatalf("expected USD default currency, got %s", cfg.CurrencyCode)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.HTTPAddr())
	}
	if cfg.AccessTokenTTL != 12*time.Hour {
		t.Fatalf("expected 12h access token TTL, got %s", cfg.AccessTokenTTL)
	}
}

func TestLoadRejectsOutOfRangeBps(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost/pos",
		"REDIS_URL":        "redis://localhost:6379",
		"JWT_SECRET":       "secret",
		"TAX_STANDARD_BPS": "20000",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxStandardBps != 1000 {
		t.Fatalf("out of range bps should fall back to default, got %d", cfg.TaxStandardBps)
	}
}
