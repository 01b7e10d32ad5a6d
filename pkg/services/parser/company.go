package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxCompanyLines limits the company search to the document header
const maxCompanyLines = 20

var companyExcludeTerms = []string{
	"bill to",
	"billed to",
	"invoice to",
	"sold to",
	"customer",
	"client",
	"ship to",
}

var companySuffixes = map[string]bool{
	"inc": true, "inc.": true, "co": true, "co.": true, "corp": true, "corp.": true,
	"ltd": true, "ltd.": true, "llc": true, "gmbh": true, "pte": true, "pte.": true,
	"company": true, "limited": true, "corporation": true, "plc": true, "sas": true,
	"sa": true, "kg": true, "ag": true, "bv": true, "srl": true, "oy": true,
}

var addressTerms = []string{
	"street", "st.", "road", "rd.", "avenue", "ave", "suite", "unit", "floor", "fl",
	"building", "blvd", "boulevard", "drive", "dr", "lane", "ln", "highway", "hwy",
	"no.", "zip", "postal", "p.o.", "box",
}

var contactTerms = []string{
	"@", "www.", "http://", "https://", "support", "contact", "phone", "tel", "fax", "email",
}

var wordSplit = regexp.MustCompile(`[,\s]+`)

// findCompanyName scores the header lines and returns the most company-like
// one. Issuers usually sit directly above their address block.
func findCompanyName(lines []string) *string {
	best := ""
	bestScore := 0
	found := false

	for i, raw := range lines {
		if i >= maxCompanyLines {
			break
		}
		line := strings.TrimSpace(raw)
		if line == "" || looksLikeContact(line) {
			continue
		}

		lower := strings.ToLower(line)
		score := baseCompanyScore(line)

		if containsAny(lower, companyExcludeTerms) {
			score -= 4
		}
		if looksLikeAddress(line) {
			score -= 6
		}
		if i+1 < len(lines) && looksLikeAddress(lines[i+1]) {
			score += 7
		}
		if i+1 < len(lines) && looksLikeContact(strings.TrimSpace(lines[i+1])) {
			score += 2
		}
		if i > 0 && looksLikeAddress(lines[i-1]) {
			score -= 2
		}
		if i <= 2 {
			score++
		}
		if len(strings.Fields(line)) > 4 {
			score--
		}

		if !found || score > bestScore {
			best, bestScore, found = line, score, true
		}
	}

	if !found || bestScore < 0 {
		return nil
	}
	return &best
}

func baseCompanyScore(value string) int {
	text := strings.TrimSpace(value)
	if text == "" {
		return -5
	}

	lower := strings.ToLower(text)
	words := wordSplit.Split(lower, -1)
	length := utf8.RuneCountInString(text)
	score := 0

	for _, w := range words {
		if companySuffixes[w] {
			score += 4
			break
		}
	}

	if isUpper(text) && length > 3 {
		score += 3
	}
	if containsAny(lower, companyExcludeTerms) {
		score -= 4
	}
	if containsAny(lower, addressTerms) {
		score -= 3
	}

	digits := 0
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits > 0 {
		if float64(digits)/float64(length) > 0.3 {
			score -= 2
		} else {
			score--
		}
	}

	if len(words) >= 2 {
		score++
	}
	if length > 45 {
		score -= 2
	}
	if length < 3 {
		score -= 2
	}
	return score
}

func looksLikeAddress(line string) bool {
	lowered := strings.ToLower(line)
	if containsAny(lowered, addressTerms) {
		return true
	}

	fields := strings.Fields(lowered)
	if len(fields) == 0 {
		return false
	}
	digits := 0
	for _, r := range lowered {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 2 && strings.IndexFunc(fields[0], unicode.IsDigit) >= 0
}

func looksLikeContact(value string) bool {
	lowered := strings.ToLower(value)
	if containsAny(lowered, contactTerms) {
		return true
	}
	return strings.HasSuffix(lowered, ".com") || strings.HasSuffix(lowered, ".net") || strings.HasSuffix(lowered, ".org")
}

// isUpper reports whether s has at least one cased letter and no lowercase ones
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
