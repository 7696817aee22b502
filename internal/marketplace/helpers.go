package marketplace

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FloorDiffUnknown is reported when no floor price was available to compare
// a sale against.
const FloorDiffUnknown = "UNKNOWN"

// FormatPrice renders a price with at most five decimals, trimming trailing
// zeroes. A zero value renders as "0".
func FormatPrice(price float64) string {
	s := strconv.FormatFloat(price, 'f', 5, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// TruncateDecimal rounds a value towards zero at four decimals.
func TruncateDecimal(value float64) float64 {
	return math.Trunc(value*10000) / 10000
}

// RoundDecimal rounds a value half away from zero at two decimals.
func RoundDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}

// CalculateFloorPriceDiff renders the percentage difference between a sale
// price and the collection floor as a signed string, e.g. "+20.00%" or
// "-98.50%". When there is no floor to compare against it returns
// FloorDiffUnknown.
func CalculateFloorPriceDiff(avgItemPrice, floorPrice float64) string {
	if floorPrice == 0 {
		return FloorDiffUnknown
	}
	diff := (avgItemPrice - floorPrice) / floorPrice * 100
	sign := ""
	if diff >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, diff)
}

// ExtractNumericalValue parses the numeric part of a formatted percentage or
// price string. Unparseable input, including FloorDiffUnknown, yields zero.
func ExtractNumericalValue(s string) float64 {
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ShortenAddress abbreviates a hex address for display, 0x1234...abcd style.
func ShortenAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Erc20Amount converts a raw token amount to its decimal representation.
func Erc20Amount(amount *big.Int, decimals uint8) float64 {
	return weiToFloat(amount, decimals)
}

// weiToFloat converts a raw token amount to its decimal representation.
// Precision loss past float64 is acceptable for pricing purposes.
func weiToFloat(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	div := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, div).Float64()
	return out
}
