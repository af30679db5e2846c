package render

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/matthewbaird/scheduler/internal/types"
)

// symbolPlacement lists locales by where their currency pattern puts the
// symbol. x/text always writes it first, so trailing locales are formatted
// here. Regional entries override their language; anything unmatched falls
// back to the first entry.
var symbolPlacement = []struct {
	tag      language.Tag
	trailing bool
}{
	{language.English, false},
	{language.Russian, true},
	{language.Ukrainian, true},
	{language.MustParse("be"), true},
	{language.Kazakh, true},
	{language.German, true},
	{language.MustParse("de-AT"), false},
	{language.MustParse("de-CH"), false},
	{language.French, true},
	{language.MustParse("fr-CH"), false},
	{language.Spanish, true},
	{language.LatinAmericanSpanish, false},
	{language.Italian, true},
	{language.Polish, true},
	{language.Czech, true},
	{language.Swedish, true},
	{language.Finnish, true},
	{language.Norwegian, true},
	{language.Danish, true},
	{language.EuropeanPortuguese, true},
	{language.BrazilianPortuguese, false},
}

var placementMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(symbolPlacement))
	for i, p := range symbolPlacement {
		tags[i] = p.tag
	}
	return language.NewMatcher(tags)
}()

func symbolTrails(tag language.Tag) bool {
	_, i, conf := placementMatcher.Match(tag)
	return conf != language.No && symbolPlacement[i].trailing
}

// CurrencyFormatter renders amounts for one locale and currency.
type CurrencyFormatter struct {
	printer  *message.Printer
	unit     currency.Unit
	symbol   string
	scale    int
	trailing bool
}

// NewCurrencyFormatter builds a formatter for a BCP 47 locale and an ISO
// 4217 currency code.
func NewCurrencyFormatter(locale, code string) (*CurrencyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("render: locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("render: currency %q: %w", code, err)
	}
	p := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	return &CurrencyFormatter{
		printer:  p,
		unit:     unit,
		symbol:   p.Sprint(currency.Symbol(unit)),
		scale:    scale,
		trailing: symbolTrails(tag),
	}, nil
}

// Format renders d with the currency's standard number of decimals and the
// symbol on the side the locale writes it.
func (f *CurrencyFormatter) Format(d types.Decimal) string {
	if !f.trailing {
		return f.printer.Sprint(currency.Symbol(f.unit.Amount(d.Float64())))
	}
	return f.printer.Sprint(number.Decimal(d.Float64(), number.Scale(f.scale))) + " " + f.symbol
}
