package parser

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are tried in order; day-first wins for ambiguous numeric dates
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
	"02.01.2006",
	"2006/01/02",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4}[-/]\d{2}[-/]\d{2})\b`),
	regexp.MustCompile(`\b(\d{2}[-/]\d{2}[-/]\d{4})\b`),
	regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{4})\b`),
	regexp.MustCompile(`\b([A-Za-z]{3,9}\s+\d{1,2},\s*\d{4})\b`),
	regexp.MustCompile(`\b(\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4})\b`),
}

var dateKeywords = []string{
	"invoice date",
	"date of invoice",
	"issue date",
	"issued on",
}

var (
	spaces     = regexp.MustCompile(`\s+`)
	commaSpace = regexp.MustCompile(`\s*,\s*`)
)

// findInvoiceDate prefers a date on a line labelled as the invoice date and
// otherwise takes the first parseable date in the text
func findInvoiceDate(text string, lines []string) *string {
	for _, line := range lines {
		lowered := strings.ToLower(line)
		if !containsAny(lowered, dateKeywords) {
			continue
		}
		if match := searchLineForDate(line); match != "" {
			if normalized, ok := NormalizeDate(match); ok {
				return &normalized
			}
		}
	}

	for _, re := range datePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if normalized, ok := NormalizeDate(m[1]); ok {
				return &normalized
			}
		}
	}
	return nil
}

func searchLineForDate(line string) string {
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// NormalizeDate parses value in any supported layout and returns it as YYYY-MM-DD
func NormalizeDate(value string) (string, bool) {
	candidate := spaces.ReplaceAllString(strings.TrimSpace(value), " ")
	candidate = commaSpace.ReplaceAllString(candidate, ", ")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	// textual dates written without the comma, e.g. "January 5 2023"
	withoutComma := strings.ReplaceAll(candidate, ",", "")
	if withoutComma != candidate {
		for _, layout := range []string{"Jan 2 2006", "January 2 2006"} {
			if t, err := time.Parse(layout, withoutComma); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
	}
	return "", false
}
