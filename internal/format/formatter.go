package format

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders timestamps, counts and prices for one display locale
// and timezone. It is safe for concurrent use.
type Formatter struct {
	tag        language.Tag
	printer    *message.Printer
	caser      cases.Caser
	location   *time.Location
	layout     string
	decimalSep string
}

// New creates a formatter for a BCP 47 locale such as "en-US" and an IANA
// timezone name such as "Europe/Berlin".
func New(locale, timezone string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid display locale %q: %w", locale, err)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", timezone, err)
	}

	printer := message.NewPrinter(tag)

	return &Formatter{
		tag:        tag,
		printer:    printer,
		caser:      cases.Title(tag),
		location:   loc,
		layout:     dateTimeLayout(tag),
		decimalSep: decimalSeparator(printer),
	}, nil
}

// decimalSeparator asks the locale how it writes 5.0
func decimalSeparator(p *message.Printer) string {
	sep := strings.Trim(p.Sprint(number.Decimal(5, number.Scale(1))), "50")
	if sep == "" {
		return "."
	}
	return sep
}

// dateTimeLayout picks the short date-time pattern a browser shows for tag.
func dateTimeLayout(tag language.Tag) string {
	base, _ := tag.Base()
	region, _ := tag.Region()

	switch base.String() {
	case "en":
		switch region.String() {
		case "US", "ZZ":
			return "1/2/2006, 3:04:05 PM"
		default:
			return "02/01/2006, 15:04:05"
		}
	case "de":
		return "2.1.2006, 15:04:05"
	case "fr", "es", "it", "pt":
		return "02/01/2006 15:04:05"
	default:
		return "2006-01-02 15:04:05"
	}
}

// Timestamp renders epoch milliseconds as local date and time.
func (f *Formatter) Timestamp(millis int64) string {
	if millis <= 0 {
		return ""
	}
	return time.UnixMilli(millis).In(f.location).Format(f.layout)
}

// Count renders n with the locale's digit grouping.
func (f *Formatter) Count(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// Price renders a catalog price in dollars with two decimals. Digits come
// straight from the decimal; only grouping and separators are localised.
func (f *Formatter) Price(price decimal.Decimal) string {
	sign := ""
	if price.IsNegative() {
		sign = "-"
		price = price.Neg()
	}

	whole, frac, _ := strings.Cut(price.StringFixed(2), ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = f.printer.Sprintf("%d", n)
	}

	return sign + "$" + whole + f.decimalSep + frac
}

// Title capitalises each word of s, e.g. a product category.
func (f *Formatter) Title(s string) string {
	return f.caser.String(s)
}

// FuncMap exposes the formatter to html/template.
func (f *Formatter) FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatTimestamp": f.Timestamp,
		"formatCount":     f.Count,
		"formatPrice":     f.Price,
		"title":           f.Title,
	}
}
