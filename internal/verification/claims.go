package verification

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	durationTolerance = 0.05
	feeTolerance      = 0.01
)

var (
	numberWords = map[string]float64{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
		"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
		"fifteen": 15, "eighteen": 18, "twenty four": 24, "twenty-four": 24, "thirty six": 36, "thirty-six": 36,
	}

	durationPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|fifteen|eighteen|twenty[- ]four|thirty[- ]six)[\s-]*(days?|weeks?|months?|years?)\b`)

	currencyFeePattern = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr|\$|\busd)\s*(\d[\d,]*(?:\.\d+)?)(?:\s*(lakhs?|lacs?|k|thousand)\b)?`)
	unitFeePattern     = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)\s*(lakhs?|lacs?|thousand|rupees|dollars)\b`)
)

type duration struct {
	text string
	days float64
}

type fee struct {
	text     string
	amount   float64
	currency string
}

func parseDuration(s string) (duration, bool) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return duration{}, false
	}

	n, found := numberWords[strings.ToLower(m[1])]
	if !found {
		var err error
		if n, err = strconv.ParseFloat(m[1], 64); err != nil {
			return duration{}, false
		}
	}

	unit := strings.TrimSuffix(strings.ToLower(m[2]), "s")
	days := map[string]float64{"day": 1, "week": 7, "month": 30, "year": 365}[unit]
	return duration{text: strings.TrimSpace(m[0]), days: n * days}, true
}

func parseFee(s string) (fee, bool) {
	if m := currencyFeePattern.FindStringSubmatchIndex(s); m != nil {
		symbol := strings.ToLower(s[m[2]:m[3]])
		unit := ""
		if m[6] >= 0 {
			unit = s[m[6]:m[7]]
		}
		amount, ok := parseAmount(s[m[4]:m[5]], unit)
		if !ok {
			return fee{}, false
		}
		currency := "INR"
		if symbol == "$" || symbol == "usd" {
			currency = "USD"
		}
		return fee{text: strings.TrimSpace(s[m[0]:m[1]]), amount: amount, currency: currency}, true
	}

	if m := unitFeePattern.FindStringSubmatch(s); m != nil {
		amount, ok := parseAmount(m[1], m[2])
		if !ok {
			return fee{}, false
		}
		currency := "INR"
		if strings.EqualFold(m[2], "dollars") {
			currency = "USD"
		}
		return fee{text: strings.TrimSpace(m[0]), amount: amount, currency: currency}, true
	}

	return fee{}, false
}

func parseAmount(number string, unit string) (float64, bool) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(unit) {
	case "lakh", "lakhs", "lac", "lacs":
		amount *= 100_000
	case "k", "thousand":
		amount *= 1_000
	}
	return amount, true
}

func (d duration) matches(other duration) bool {
	return within(d.days, other.days, durationTolerance)
}

func (f fee) matches(other fee) bool {
	return f.currency == other.currency && within(f.amount, other.amount, feeTolerance)
}

func within(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tolerance*math.Max(a, b)
}
