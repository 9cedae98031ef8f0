package parsers

import (
	"encoding/json"
	"log"
	"math"
	"strconv"
	"strings"
)

// ParsePrice converts a backend price (number or locale formatted string) into a float.
// Invalid input yields 0, which callers read as "no price".
func ParsePrice(raw any) float64 {
	v, ok := ParsePriceOK(raw)
	if !ok {
		log.Printf("[price] level=warn invalid price value=%q type=%T\n", truncateForLog(raw), raw)
	}
	return v
}

// ParsePriceOK is ParsePrice without logging; ok is false on an invalid price.
func ParsePriceOK(raw any) (float64, bool) {
	switch t := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return finiteOrZero(t)
	case float32:
		return finiteOrZero(float64(t))
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return 0, false
		}
		return finiteOrZero(f)
	case string:
		return parsePriceString(t)
	}
	return 0, false
}

func parsePriceString(s string) (float64, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	lastDot := strings.LastIndexByte(cleaned, '.')
	lastComma := strings.LastIndexByte(cleaned, ',')
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// 1.234,56
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		// 1,234.56
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	return parseFloatPrefix(cleaned)
}

// parseFloatPrefix parses the longest leading decimal number, like JavaScript parseFloat.
func parseFloatPrefix(s string) (float64, bool) {
	end := 0
	digits := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			digits++
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if digits == 0 {
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return finiteOrZero(f)
}

func finiteOrZero(f float64) (float64, bool) {
	if !isFiniteFloat(f) {
		return 0, false
	}
	return f, true
}

func isFiniteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func truncateForLog(raw any) string {
	s := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(toLogString(raw), "\n", " "), "\r", " "))
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

func toLogString(raw any) string {
	switch t := raw.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "<unprintable>"
	}
	return string(b)
}
