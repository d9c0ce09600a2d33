package currency

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Format describes how amounts in one currency are rendered.
type Format struct {
	Code               string
	Symbol             string
	DecimalSeparator   string
	ThousandsSeparator string
	DecimalPlaces      int
}

// builtinFormats covers the currencies the application was designed
// around. Everything else resolves through the go-money currency table.
var builtinFormats = map[string]Format{
	"BRL": {Code: "BRL", Symbol: "R$", DecimalSeparator: ",", ThousandsSeparator: ".", DecimalPlaces: 2},
	"USD": {Code: "USD", Symbol: "$", DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
	"EUR": {Code: "EUR", Symbol: "€", DecimalSeparator: ",", ThousandsSeparator: ".", DecimalPlaces: 2},
}

// FormatFor returns the rendering rules for a currency code.
func FormatFor(code string) Format {
	if f, ok := builtinFormats[code]; ok {
		return f
	}
	if cur := money.GetCurrency(code); cur != nil {
		return Format{
			Code:               code,
			Symbol:             cur.Grapheme,
			DecimalSeparator:   cur.Decimal,
			ThousandsSeparator: cur.Thousand,
			DecimalPlaces:      cur.Fraction,
		}
	}
	// Unknown code: render the code itself as the symbol.
	return Format{Code: code, Symbol: code, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2}
}

// render formats the absolute value of amount. The sign, if any, is
// the caller's concern.
func (f Format) render(amount float64) string {
	fixed := decimal.NewFromFloat(math.Abs(amount)).StringFixed(int32(f.DecimalPlaces))

	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	grouped := groupDigits(intPart, f.ThousandsSeparator)
	if fracPart != "" {
		grouped += f.DecimalSeparator + fracPart
	}
	return f.Symbol + " " + grouped
}

// groupDigits inserts sep between every group of three digits,
// counting from the right.
func groupDigits(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
