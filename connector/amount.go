package connector

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 alphabetic currency code.
type Currency string

// zeroDecimalCurrencies have no minor unit: the minor amount IS the major
// amount.
var zeroDecimalCurrencies = map[Currency]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "IRR": {}, "ISK": {},
	"JPY": {}, "KMF": {}, "KRW": {}, "MGA": {}, "PYG": {}, "RWF": {},
	"UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// threeDecimalCurrencies carry three digits after the decimal point.
var threeDecimalCurrencies = map[Currency]struct{}{
	"BHD": {}, "IQD": {}, "JOD": {}, "KWD": {}, "LYD": {}, "OMR": {}, "TND": {},
}

// fourDecimalCurrencies carry four digits after the decimal point.
var fourDecimalCurrencies = map[Currency]struct{}{
	"CLF": {}, "UYW": {},
}

// Exponent returns the number of digits after the decimal point for the
// currency (0, 2, 3 or 4).
func (c Currency) Exponent() int32 {
	if _, ok := zeroDecimalCurrencies[c]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[c]; ok {
		return 3
	}
	if _, ok := fourDecimalCurrencies[c]; ok {
		return 4
	}
	return 2
}

// IsZeroDecimal reports whether the currency has no minor unit.
func (c Currency) IsZeroDecimal() bool {
	_, ok := zeroDecimalCurrencies[c]
	return ok
}

// IsThreeDecimal reports whether the currency uses three fractional digits.
func (c Currency) IsThreeDecimal() bool {
	_, ok := threeDecimalCurrencies[c]
	return ok
}

// MinorUnit is an integer count of a currency's smallest unit. All internal
// amounts are minor units; connector-facing representations are derived at
// the wire boundary and converted straight back.
type MinorUnit int64

func (m MinorUnit) Add(other MinorUnit) MinorUnit { return m + other }
func (m MinorUnit) Sub(other MinorUnit) MinorUnit { return m - other }
func (m MinorUnit) MulBy(n int64) MinorUnit       { return m * MinorUnit(n) }

// SumMinorUnits totals a slice of minor-unit amounts.
func SumMinorUnits(amounts []MinorUnit) MinorUnit {
	var total MinorUnit
	for _, a := range amounts {
		total += a
	}
	return total
}

// Connector-facing amount representations.
type (
	StringMinorUnit string
	StringMajorUnit string
	FloatMajorUnit  float64
)

// AmountConvertor converts between the internal minor-unit amount and one
// connector-facing representation. Each connector selects exactly one
// implementation as its canonical unit; the instances below are stateless and
// safe to share process-wide.
type AmountConvertor[T any] interface {
	Convert(amount MinorUnit, currency Currency) (T, error)
	ConvertBack(value T, currency Currency) (MinorUnit, error)
}

// MinorUnitConvertor is the identity conversion for connectors whose wire
// amounts are integer minor units.
type MinorUnitConvertor struct{}

func (MinorUnitConvertor) Convert(amount MinorUnit, _ Currency) (MinorUnit, error) {
	return amount, nil
}

func (MinorUnitConvertor) ConvertBack(value MinorUnit, _ Currency) (MinorUnit, error) {
	return value, nil
}

// StringMinorUnitConvertor renders minor units as a decimal integer string.
type StringMinorUnitConvertor struct{}

func (StringMinorUnitConvertor) Convert(amount MinorUnit, _ Currency) (StringMinorUnit, error) {
	return StringMinorUnit(decimal.NewFromInt(int64(amount)).String()), nil
}

func (StringMinorUnitConvertor) ConvertBack(value StringMinorUnit, _ Currency) (MinorUnit, error) {
	d, err := decimal.NewFromString(string(value))
	if err != nil {
		return 0, WrapError(ErrParsing, "", fmt.Sprintf("amount '%s' is not a decimal number", value), err)
	}
	return decimalToMinor(d)
}

// StringMajorUnitConvertor renders the major amount as a decimal string with
// exactly the currency's number of fractional digits ("10.45" for USD,
// "1000" for JPY, "12.345" for KWD).
type StringMajorUnitConvertor struct{}

func (StringMajorUnitConvertor) Convert(amount MinorUnit, currency Currency) (StringMajorUnit, error) {
	exp := currency.Exponent()
	major := decimal.New(int64(amount), -exp)
	return StringMajorUnit(major.StringFixed(exp)), nil
}

func (StringMajorUnitConvertor) ConvertBack(value StringMajorUnit, currency Currency) (MinorUnit, error) {
	d, err := decimal.NewFromString(string(value))
	if err != nil {
		return 0, WrapError(ErrParsing, "", fmt.Sprintf("amount '%s' is not a decimal number", value), err)
	}
	return decimalToMinor(d.Shift(currency.Exponent()))
}

// FloatMajorUnitConvertor renders the major amount as a float. The float path
// accepts precision loss on Convert; ConvertBack rounds to the nearest minor
// unit rather than failing on binary-float noise.
type FloatMajorUnitConvertor struct{}

func (FloatMajorUnitConvertor) Convert(amount MinorUnit, currency Currency) (FloatMajorUnit, error) {
	major := decimal.New(int64(amount), -currency.Exponent())
	f, _ := major.Float64()
	return FloatMajorUnit(f), nil
}

func (FloatMajorUnitConvertor) ConvertBack(value FloatMajorUnit, currency Currency) (MinorUnit, error) {
	d := decimal.NewFromFloat(float64(value)).Shift(currency.Exponent()).Round(0)
	return decimalToMinor(d)
}

// decimalToMinor narrows a decimal to an integer minor-unit amount, failing
// on fractional remainders and on int64 overflow instead of truncating.
func decimalToMinor(d decimal.Decimal) (MinorUnit, error) {
	if !d.IsInteger() {
		return 0, NewError(ErrParsing, "", fmt.Sprintf("amount %s has fractional minor units", d.String()))
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, NewError(ErrParsing, "", fmt.Sprintf("amount %s overflows the minor unit range", d.String()))
	}
	return MinorUnit(bi.Int64()), nil
}
