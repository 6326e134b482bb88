package intent

import (
	"regexp"
	"strings"
)

var (
	nameTokenPattern  = regexp.MustCompile(`[^0-9a-zA-Z\x{0E00}-\x{0E7F}]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeNameToken lowercases text and strips everything outside Thai
// characters, ASCII letters and digits. Place names compare equal through
// this regardless of spacing and punctuation.
func NormalizeNameToken(text string) string {
	return nameTokenPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "")
}

// NormalizeQueryKey collapses whitespace and lowercases, producing the
// cache key form of a message.
func NormalizeQueryKey(text string) string {
	return strings.ToLower(whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " "))
}

// NameVariations expands a stored place name into its searchable forms:
// the full name, the part before any parenthetical, the parenthetical
// itself, and each slash-separated alias.
func NameVariations(value string) []string {
	var variants []string
	add := func(text string) {
		cleaned := strings.TrimSpace(text)
		if cleaned == "" {
			return
		}
		for _, existing := range variants {
			if existing == cleaned {
				return
			}
		}
		variants = append(variants, cleaned)
	}

	add(value)
	if idx := strings.Index(value, "("); idx >= 0 {
		add(value[:idx])
		remainder := value[idx+1:]
		if end := strings.Index(remainder, ")"); end >= 0 {
			add(remainder[:end])
		} else {
			add(remainder)
		}
	}
	if strings.Contains(value, "/") {
		for _, part := range strings.Split(value, "/") {
			add(part)
		}
	}
	return variants
}

// MergeKeywords concatenates keyword sets, dropping blanks and
// case-insensitive duplicates while preserving first-seen order.
func MergeKeywords(keywordSets ...[]string) []string {
	merged := []string{}
	seen := make(map[string]bool)
	for _, keywordList := range keywordSets {
		for _, keyword := range keywordList {
			text := strings.TrimSpace(keyword)
			if text == "" {
				continue
			}
			lowered := strings.ToLower(text)
			if seen[lowered] {
				continue
			}
			seen[lowered] = true
			merged = append(merged, text)
		}
	}
	return merged
}

// DetectLanguage reports "th" when the text contains any Thai character,
// otherwise "en".
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0E00 && r <= 0x0E7F {
			return "th"
		}
	}
	return "en"
}

var greetingWords = []string{
	"สวัสดี", "หวัดดี", "ดีจ้า", "สวัสดีค่ะ", "สวัสดีครับ",
	"hello", "hi", "hey", "greetings",
}

// IsGreeting reports whether the message is a salutation with no travel
// content worth retrieving for.
func IsGreeting(message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return false
	}
	normalized := strings.ToLower(trimmed)
	for _, word := range greetingWords {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

var tripKeywords = []string{
	"ทริป", "แผนเที่ยว", "จัดทริป", "แผนการเดินทาง",
	"trip plan", "itinerary", "travel plan",
}

// IsTripIntent reports whether the message asks for a multi-stop plan
// rather than individual places.
func IsTripIntent(message string) bool {
	normalized := strings.ToLower(message)
	for _, keyword := range tripKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// Trip guide slugs keyed by the phrasings that trigger them.
var tripGuideTriggers = []struct {
	slug     string
	keywords []string
}{
	{"9temples", []string{"9 วัด", "๙ วัด", "ไหว้พระ", "temple tour", "nine temples"}},
	{"2days1nighttrip", []string{"2 วัน", "สองวัน", "2-day", "2 day", "1 คืน", "ค้างคืน", "2d1n", "weekend"}},
	{"1daytrip", []string{"1 วัน", "วันเดียว", "ครึ่งวัน", "half day", "one day"}},
}

// SelectTripGuideSlugs returns the identifiers of curated trip guides the
// message asks for, in trigger order without duplicates.
func SelectTripGuideSlugs(message string) []string {
	normalized := strings.ToLower(message)
	var slugs []string
	for _, trigger := range tripGuideTriggers {
		for _, keyword := range trigger.keywords {
			if strings.Contains(normalized, keyword) {
				slugs = append(slugs, trigger.slug)
				break
			}
		}
	}
	return slugs
}
