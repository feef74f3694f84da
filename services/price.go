package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"olx-scraper/models"
)

// priceRegexp captures a Brazilian-formatted amount: 1-3 digit groups
// separated by "." with an optional ",decimals" tail.
var priceRegexp = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*(?:,\d+)?`)

// ParsePrice converts displayed price text like "R$ 1.234,56" into a
// number. It returns nil for the missing-price sentinel, for text without
// an amount, and for a zero amount.
func ParsePrice(text string) *float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	lower := cases.Lower(language.BrazilianPortuguese)
	if lower.String(s) == lower.String(models.PriceMissing) {
		return nil
	}

	match := priceRegexp.FindString(s)
	if match == "" {
		return nil
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(match, ".", ""), ",", ".")
	val, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(val) || val == 0 {
		return nil
	}
	return &val
}
