package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var priceNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParsePrice reads the first amount from a Brazilian price label such as
// "R$ 1.250,50" or "A partir de R$ 90". Returns nil when no amount is present.
func ParsePrice(text string) *float64 {
	text = strings.ReplaceAll(text, ".", "")
	text = strings.ReplaceAll(text, ",", ".")

	match := priceNumber.FindString(text)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}
