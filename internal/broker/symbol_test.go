package broker

import (
	"testing"

	"github.com/quantpilot/quantpilot/internal/core"
)

func TestTranslateSymbol_Stock(t *testing.T) {
	got, err := TranslateSymbol(core.Asset{Symbol: "AAPL", Class: core.AssetStock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "AAPL" {
		t.Errorf("expected AAPL, got %s", got)
	}
}

func TestTranslateSymbol_Crypto(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"BTCUSDT", "BTC/USD"},
		{"ETHUSDT", "ETH/USD"},
		{"btc-usdt", "BTC/USD"},
		{"SOL/USDC", "SOL/USD"},
		{"DOGEBUSD", "DOGE/USD"},
		{"BTC", "BTC/USD"},
	}

	for _, tc := range tests {
		got, err := TranslateSymbol(core.Asset{Symbol: tc.input, Class: core.AssetCrypto})
		if err != nil {
			t.Errorf("TranslateSymbol(%s) unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("TranslateSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestTranslateSymbol_UnsupportedCrypto(t *testing.T) {
	_, err := TranslateSymbol(core.Asset{Symbol: "PEPEUSDT", Class: core.AssetCrypto})
	if err == nil {
		t.Fatal("expected error for unsupported crypto base")
	}
}

func TestTranslateSymbol_Empty(t *testing.T) {
	_, err := TranslateSymbol(core.Asset{Symbol: "", Class: core.AssetStock})
	if err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		asset    core.Asset
		expected bool
	}{
		{core.Asset{Symbol: "AAPL", Class: core.AssetStock}, true},
		{core.Asset{Symbol: "BTCUSDT", Class: core.AssetCrypto}, true},
		{core.Asset{Symbol: "PEPEUSDT", Class: core.AssetCrypto}, false},
		{core.Asset{Symbol: "GLD", Class: core.AssetClass("commodity")}, false},
	}

	for _, tc := range tests {
		if got := Supported(tc.asset); got != tc.expected {
			t.Errorf("Supported(%s/%s) = %v, want %v", tc.asset.Symbol, tc.asset.Class, got, tc.expected)
		}
	}
}
