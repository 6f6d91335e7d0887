package broker

import (
	"strings"

	"github.com/quantpilot/quantpilot/internal/core"
)

// Common quote currencies in order of priority for suffix detection.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "USD"}

// supportedCryptoBases is the allow-list of crypto base currencies the
// paper brokerage trades. Assets outside this list are skipped.
var supportedCryptoBases = map[string]struct{}{
	"BTC":  {},
	"ETH":  {},
	"LTC":  {},
	"BCH":  {},
	"SOL":  {},
	"DOGE": {},
	"AVAX": {},
	"LINK": {},
	"UNI":  {},
	"AAVE": {},
}

// TranslateSymbol converts an asset's exchange symbol to the broker's
// notation. Stocks pass through unchanged; crypto pairs are reduced to
// their base currency and quoted against USD ("BTCUSDT" -> "BTC/USD").
func TranslateSymbol(asset core.Asset) (string, error) {
	if asset.Symbol == "" {
		return "", ErrInvalidSymbol
	}
	if asset.Class != core.AssetCrypto {
		return strings.ToUpper(asset.Symbol), nil
	}

	base := cryptoBase(asset.Symbol)
	if _, ok := supportedCryptoBases[base]; !ok {
		return "", core.WrapError(core.ErrSymbolUnsupported, ErrInvalidSymbol)
	}
	return base + "/USD", nil
}

// Supported reports whether an asset can be traded at all: stocks always,
// crypto only when the base currency is on the allow-list.
func Supported(asset core.Asset) bool {
	switch asset.Class {
	case core.AssetStock:
		return true
	case core.AssetCrypto:
		_, ok := supportedCryptoBases[cryptoBase(asset.Symbol)]
		return ok
	default:
		return false
	}
}

// cryptoBase strips separators and a trailing quote currency.
// "BTC-USDT", "btc/usdt" and "BTCUSDT" all yield "BTC".
func cryptoBase(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
