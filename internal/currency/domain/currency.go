package domain

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "MYR"

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrRateNotFound        = errors.New("exchange rate not found")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// CurrencyInfo describe cómo se muestra una moneda.
type CurrencyInfo struct {
	Code          string `json:"code"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Flag          string `json:"flag"`
	SymbolAfter   bool   `json:"symbol_after"`
	DecimalPlaces int32  `json:"decimal_places"`
}

func info(code, symbol, name, flag string) CurrencyInfo {
	return CurrencyInfo{Code: code, Symbol: symbol, Name: name, Flag: flag, DecimalPlaces: 2}
}

var catalog = func() map[string]CurrencyInfo {
	list := []CurrencyInfo{
		info("MYR", "RM", "Malaysian Ringgit", "🇲🇾"),
		info("USD", "$", "US Dollar", "🇺🇸"),
		info("SGD", "S$", "Singapore Dollar", "🇸🇬"),
		info("CNY", "¥", "Chinese Yuan", "🇨🇳"),
		info("THB", "฿", "Thai Baht", "🇹🇭"),
		info("AUD", "A$", "Australian Dollar", "🇦🇺"),
		info("NZD", "NZ$", "New Zealand Dollar", "🇳🇿"),
		info("GBP", "£", "British Pound", "🇬🇧"),
		info("EUR", "€", "Euro", "🇪🇺"),
		info("PHP", "₱", "Philippine Peso", "🇵🇭"),
		info("HKD", "HK$", "Hong Kong Dollar", "🇭🇰"),
		info("TWD", "NT$", "Taiwan Dollar", "🇹🇼"),
		info("INR", "₹", "Indian Rupee", "🇮🇳"),
		info("AED", "د.إ", "UAE Dirham", "🇦🇪"),
	}
	// Monedas sin decimales
	for _, c := range []CurrencyInfo{
		info("JPY", "¥", "Japanese Yen", "🇯🇵"),
		info("KRW", "₩", "South Korean Won", "🇰🇷"),
		info("IDR", "Rp", "Indonesian Rupiah", "🇮🇩"),
		info("VND", "₫", "Vietnamese Dong", "🇻🇳"),
	} {
		c.DecimalPlaces = 0
		list = append(list, c)
	}
	// Símbolo detrás del importe
	for _, c := range []CurrencyInfo{
		info("SAR", "ر.س", "Saudi Riyal", "🇸🇦"),
		info("QAR", "ر.ق", "Qatari Riyal", "🇶🇦"),
	} {
		c.SymbolAfter = true
		list = append(list, c)
	}

	m := make(map[string]CurrencyInfo, len(list))
	for _, c := range list {
		m[c.Code] = c
	}
	return m
}()

var citizenshipCurrency = map[string]string{
	"malaysia":             "MYR",
	"singapore":            "SGD",
	"indonesia":            "IDR",
	"thailand":             "THB",
	"vietnam":              "VND",
	"philippines":          "PHP",
	"china":                "CNY",
	"japan":                "JPY",
	"south_korea":          "KRW",
	"india":                "INR",
	"australia":            "AUD",
	"new_zealand":          "NZD",
	"united_states":        "USD",
	"united_kingdom":       "GBP",
	"hong_kong":            "HKD",
	"taiwan":               "TWD",
	"united_arab_emirates": "AED",
	"saudi_arabia":         "SAR",
	"qatar":                "QAR",
}

// Lookup devuelve la información de una moneda soportada.
func Lookup(code string) (CurrencyInfo, bool) {
	c, ok := catalog[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

func Supported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Catalog devuelve las monedas soportadas ordenadas por código.
func Catalog() []CurrencyInfo {
	out := make([]CurrencyInfo, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// DefaultFor devuelve la moneda por defecto de una nacionalidad, MYR si no se conoce.
func DefaultFor(citizenship string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(citizenship)), " ", "_")
	if code, ok := citizenshipCurrency[key]; ok {
		return code
	}
	return DefaultCurrency
}

// Format da formato a un importe: separador de miles, decimales de la moneda y
// símbolo delante o detrás. Una moneda desconocida usa 2 decimales y el código detrás.
func Format(amount decimal.Decimal, code string) string {
	c, ok := Lookup(code)
	if !ok {
		return groupThousands(amount.StringFixed(2)) + " " + code
	}

	number := groupThousands(amount.StringFixed(c.DecimalPlaces))
	if c.SymbolAfter {
		return number + c.Symbol
	}
	return c.Symbol + number
}

func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, frac = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}

// Conversion es el resultado de convertir un importe.
type Conversion struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Result    decimal.Decimal `json:"result"`
	Formatted string          `json:"formatted"`
}
