package intent

import (
	"regexp"
	"strings"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Classifier = (*RuleClassifier)(nil)

// Classifier decides how a message should be routed before any retrieval
// happens.
type Classifier interface {
	Classify(message string, placeNames []string) Classification
	AutoDetectKeywords(message string, placeNames []string, limit int) []string
	IsSpecificPlaceQuery(message string, matched []types.Place) bool
	MentionsOtherProvince(message string, keywords []string, placeCandidates []string) bool
}

// Classification is the rule-based intent decision with the keywords that
// drove it.
type Classification struct {
	Intent   types.IntentType
	Keywords []string
}

// Phrasings that point at one named place.
var specificIndicators = []string{
	"อยู่ที่ไหน", "where is", "อยู่ตรงไหน", "ที่อยู่",
	"เกี่ยวกับ", "about", "tell me about", "บอกเกี่ยวกับ",
	"คือ", "คืออะไร", "what is", "เป็นอย่างไร",
	"ไปยังไง", "how to get", "วิธีไป", "เดินทางไป",
}

// Phrasings that ask for recommendations or categories.
var generalIndicators = []string{
	"แนะนำ", "recommend", "suggestion", "มีอะไร", "what",
	"บ้าง", "some", "ไหนดี", "where should", "ควรไป",
	"อยากไป", "want to visit", "หา", "find", "looking for",
	"มี", "are there", "any", "list",
}

// Phrasings that anchor the question to a reference location.
var nearIndicators = []string{
	"ใกล้", "แถว", "ละแวก", "รอบๆ", "บริเวณ",
	"near", "nearby", "around", "close to",
}

var provincePattern = regexp.MustCompile(`จังหวัด\s*([^\s,.;!?]+)`)

// RuleClassifier implements the rule-based analysis. It needs no model
// call, so it always answers and serves as the floor under the LLM
// extraction.
type RuleClassifier struct {
	// localTerms mark a mention as in-province, e.g. the province name
	// in Thai and transliterated English.
	localTerms []string
	// placeNameScanLimit caps how many dataset names the specific-place
	// scan touches per message.
	placeNameScanLimit int
}

func NewRuleClassifier(localTerms []string) *RuleClassifier {
	lowered := make([]string, 0, len(localTerms))
	for _, term := range localTerms {
		lowered = append(lowered, strings.ToLower(term))
	}
	return &RuleClassifier{
		localTerms:         lowered,
		placeNameScanLimit: 50,
	}
}

// Classify labels the message specific or general. A dataset place name
// appearing in the message wins outright; otherwise specific phrasing
// only counts when no general phrasing is present.
func (c *RuleClassifier) Classify(message string, placeNames []string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalizedTokens := NormalizeNameToken(normalized)

	var keywords []string
	placeMatch := false

	scanned := 0
	for _, name := range placeNames {
		if scanned >= c.placeNameScanLimit {
			break
		}
		scanned++
		if len([]rune(name)) < 3 {
			continue
		}
		normalizedName := NormalizeNameToken(name)
		if normalizedName != "" && strings.Contains(normalizedTokens, normalizedName) {
			placeMatch = true
			keywords = append(keywords, name)
			break
		}
	}

	hasSpecific := containsAny(normalized, specificIndicators)
	hasGeneral := containsAny(normalized, generalIndicators)

	intent := types.IntentGeneralTravel
	if placeMatch || (hasSpecific && !hasGeneral) {
		intent = types.IntentSpecificPlace
	}
	if containsAny(normalized, nearIndicators) {
		intent = types.IntentNearLocation
	}

	if len(keywords) == 0 {
		keywords = c.AutoDetectKeywords(message, placeNames, 3)
	}

	return Classification{Intent: intent, Keywords: keywords}
}

// AutoDetectKeywords finds dataset names the message mentions, expanding
// stored names into their variations first.
func (c *RuleClassifier) AutoDetectKeywords(message string, placeNames []string, limit int) []string {
	if message == "" || len(placeNames) == 0 || limit <= 0 {
		return nil
	}
	normalizedQuery := NormalizeNameToken(message)
	loweredQuery := strings.ToLower(message)

	var detected []string
	seenTokens := make(map[string]bool)

	for _, name := range placeNames {
		if len(detected) >= limit {
			break
		}
		for _, variant := range NameVariations(name) {
			normalizedVariant := NormalizeNameToken(variant)
			loweredVariant := strings.ToLower(variant)
			if normalizedVariant == "" || seenTokens[normalizedVariant] {
				continue
			}
			if strings.Contains(normalizedQuery, normalizedVariant) || strings.Contains(loweredQuery, loweredVariant) {
				seenTokens[normalizedVariant] = true
				detected = append(detected, strings.TrimSpace(variant))
				break
			}
		}
	}
	return detected
}

// Category phrasings that mean the user wants a list, not one place.
var categoryKeywords = []string{
	"ร้านอาหาร", "ที่กิน", "อาหาร", "restaurant", "food",
	"ที่พัก", "โรงแรม", "รีสอร์ท", "accommodation", "hotel",
	"วัด", "temple", "สถานที่", "แหล่ง", "place",
	"ตลาด", "market", "ทะเล", "sea", "beach",
	"ชุมชน", "community", "museum", "พิพิธภัณฑ์",
	"แนะนำ", "recommend", "suggest", "เที่ยว", "travel",
	"visit", "ไปไหน", "where", "ดี", "good", "น่าสนใจ",
	"interesting", "มีอะไร", "what", "บ้าง", "some",
}

var multipleIndicators = []string{
	"บ้าง", "มีอะไร", "แนะนำ", "หลาย", "several", "some", "list", "ไหน",
}

// Phrasings that ask for the headline attractions of the province.
var mainAttractionIndicators = []string{
	"ที่เที่ยวหลัก", "สถานที่หลัก", "ที่เที่ยวสำคัญ", "ที่เที่ยวดัง",
	"แลนด์มาร์ค", "ไฮไลท์", "ห้ามพลาด",
	"main attraction", "landmark", "must see", "highlight",
}

// categoryRules map browse phrasings onto dataset categories. Order
// matters: the first rule whose keyword appears wins, so cafe phrasings
// sit above the broader restaurant ones and ตลาดน้ำ above ตลาด.
var categoryRules = []struct {
	keywords []string
	category string
}{
	{[]string{"คาเฟ่", "ร้านกาแฟ", "กาแฟ", "cafe", "coffee"}, "คาเฟ่"},
	{[]string{"ร้านอาหาร", "ที่กิน", "ของกิน", "restaurant"}, "ร้านอาหาร"},
	{[]string{"ตลาดน้ำ", "floating market"}, "ตลาดน้ำ"},
	{[]string{"ตลาด", "market"}, "ตลาด"},
	{[]string{"วัด", "ไหว้พระ", "temple"}, "วัด"},
	{[]string{"ที่พัก", "โรงแรม", "รีสอร์ท", "โฮมสเตย์", "hotel", "resort", "homestay"}, "ที่พัก"},
	{[]string{"ธรรมชาติ", "หิ่งห้อย", "ล่องเรือ", "nature"}, "ธรรมชาติ"},
}

// IsMainAttractionsQuery reports whether the message asks for the
// province's headline attractions.
func IsMainAttractionsQuery(message string) bool {
	return containsAny(strings.ToLower(message), mainAttractionIndicators)
}

// DetectCategory maps the message onto a dataset category for a curated
// browse, or "" when no rule applies.
func DetectCategory(message string) string {
	normalized := strings.ToLower(message)
	for _, rule := range categoryRules {
		if containsAny(normalized, rule.keywords) {
			return rule.category
		}
	}
	return ""
}

// IsSpecificPlaceQuery re-checks the specific/general call once results
// exist, using the top match. The answer decides how hard results get
// trimmed.
func (c *RuleClassifier) IsSpecificPlaceQuery(message string, matched []types.Place) bool {
	if len(matched) == 0 {
		return false
	}

	normalizedQuery := strings.ToLower(message)

	if containsAny(normalizedQuery, categoryKeywords) {
		if containsAny(normalizedQuery, multipleIndicators) {
			return false
		}
	}

	top := matched[0]
	normalizedName := NormalizeNameToken(top.Name)
	normalizedQueryTokens := NormalizeNameToken(normalizedQuery)
	if normalizedName == "" || normalizedQueryTokens == "" {
		return false
	}

	if len([]rune(normalizedName)) >= 3 && strings.Contains(normalizedQueryTokens, normalizedName) {
		return true
	}
	if len(strings.Fields(normalizedQuery)) <= 3 && normalizedName == normalizedQueryTokens {
		return true
	}
	// No name signal either way: one or two hits read as a specific
	// answer, anything more as suggestions.
	return len(matched) <= 2
}

// MentionsOtherProvince detects questions about places outside the
// province: an explicit "จังหวัด X" for a non-local X, a non-local place
// candidate, or a keyword naming another province.
func (c *RuleClassifier) MentionsOtherProvince(message string, keywords []string, placeCandidates []string) bool {
	normalized := strings.ToLower(message)

	if m := provincePattern.FindStringSubmatch(normalized); m != nil {
		if !c.containsLocalReference(m[1]) {
			return true
		}
	}

	for _, candidate := range placeCandidates {
		lowered := strings.ToLower(candidate)
		if lowered != "" && !c.containsLocalReference(lowered) {
			return true
		}
	}

	for _, keyword := range keywords {
		kw := strings.ToLower(keyword)
		if kw != "" && strings.Contains(kw, "จังหวัด") && !c.containsLocalReference(kw) {
			return true
		}
	}

	return false
}

// ContainsLocalReference reports whether the text names the home
// province.
func (c *RuleClassifier) ContainsLocalReference(text string) bool {
	return c.containsLocalReference(strings.ToLower(text))
}

func (c *RuleClassifier) containsLocalReference(lowered string) bool {
	for _, term := range c.localTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
