package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var localTerms = []string{"สมุทรสงคราม", "samut songkhram"}

func TestNormalizeNameToken(t *testing.T) {
	assert.Equal(t, "ตลาดน้ำอัมพวา", NormalizeNameToken(" ตลาดน้ำอัมพวา "))
	assert.Equal(t, "donhoilot", NormalizeNameToken("Don Hoi Lot!"))
	assert.Equal(t, "วัดบางกุ้งcamp", NormalizeNameToken("วัดบางกุ้ง (Camp)"))
	assert.Equal(t, "", NormalizeNameToken("  ...  "))
}

func TestNameVariations(t *testing.T) {
	variants := NameVariations("ตลาดน้ำอัมพวา (Amphawa Floating Market)")
	assert.Contains(t, variants, "ตลาดน้ำอัมพวา (Amphawa Floating Market)")
	assert.Contains(t, variants, "ตลาดน้ำอัมพวา")
	assert.Contains(t, variants, "Amphawa Floating Market")

	variants = NameVariations("ดอนหอยหลอด/Don Hoi Lot")
	assert.Contains(t, variants, "ดอนหอยหลอด")
	assert.Contains(t, variants, "Don Hoi Lot")
}

func TestMergeKeywords(t *testing.T) {
	merged := MergeKeywords(
		[]string{"ตลาดน้ำ", " วัด ", ""},
		[]string{"ตลาดน้ำ", "Amphawa", "amphawa"},
	)
	assert.Equal(t, []string{"ตลาดน้ำ", "วัด", "Amphawa"}, merged)
}

func TestMergeKeywords_EmptyInput(t *testing.T) {
	assert.Empty(t, MergeKeywords(nil, []string{}))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "th", DetectLanguage("แนะนำที่เที่ยวหน่อย"))
	assert.Equal(t, "th", DetectLanguage("recommend วัด please"))
	assert.Equal(t, "en", DetectLanguage("where is the floating market"))
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, IsGreeting("สวัสดีครับ"))
	assert.True(t, IsGreeting("หวัดดีจ้า"))
	assert.True(t, IsGreeting("Hello there"))
	assert.False(t, IsGreeting("แนะนำที่เที่ยวหน่อย"))
	assert.False(t, IsGreeting("   "))
}

func TestSelectTripGuideSlugs(t *testing.T) {
	assert.Equal(t, []string{"9temples"}, SelectTripGuideSlugs("อยากไปไหว้พระ 9 วัด"))
	assert.Equal(t, []string{"2days1nighttrip"}, SelectTripGuideSlugs("จัดทริป 2 วัน 1 คืน"))
	assert.Equal(t, []string{"1daytrip"}, SelectTripGuideSlugs("เที่ยววันเดียวไปไหนดี"))
	assert.Empty(t, SelectTripGuideSlugs("ตลาดน้ำเปิดกี่โมง"))
}

func TestClassify_SpecificByPlaceName(t *testing.T) {
	c := NewRuleClassifier(localTerms)
	placeNames := []string{"ตลาดน้ำอัมพวา", "ดอนหอยหลอด", "วัดบางกุ้ง"}

	result := c.Classify("ตลาดน้ำอัมพวาเปิดกี่โมง", placeNames)

	assert.Equal(t, types.IntentSpecificPlace, result.Intent)
	require.NotEmpty(t, result.Keywords)
	assert.Equal(t, "ตลาดน้ำอัมพวา", result.Keywords[0])
}

func TestClassify_GeneralIndicatorWins(t *testing.T) {
	c := NewRuleClassifier(localTerms)

	// "แนะนำ" plus "คือ" phrasing: general wins because a general
	// indicator is present
	result := c.Classify("แนะนำวัดสวยๆ ให้หน่อย", []string{"ตลาดน้ำอัมพวา"})

	assert.Equal(t, types.IntentGeneralTravel, result.Intent)
}

func TestClassify_SpecificIndicatorWithoutGeneral(t *testing.T) {
	c := NewRuleClassifier(localTerms)

	result := c.Classify("โบสถ์ปรกโพธิ์อยู่ที่ไหน", []string{"ตลาดน้ำอัมพวา"})

	assert.Equal(t, types.IntentSpecificPlace, result.Intent)
}

func TestClassify_NearIndicatorWins(t *testing.T) {
	c := NewRuleClassifier(localTerms)

	result := c.Classify("มีร้านอาหารใกล้ตลาดน้ำอัมพวาไหม", []string{"ตลาดน้ำอัมพวา"})

	assert.Equal(t, types.IntentNearLocation, result.Intent)
}

func TestAutoDetectKeywords_RespectsLimit(t *testing.T) {
	c := NewRuleClassifier(localTerms)
	placeNames := []string{"ตลาดน้ำอัมพวา", "ดอนหอยหลอด", "วัดบางกุ้ง"}

	detected := c.AutoDetectKeywords("อยากไปตลาดน้ำอัมพวาแล้วต่อดอนหอยหลอดกับวัดบางกุ้ง", placeNames, 2)

	assert.Len(t, detected, 2)
}

func TestIsSpecificPlaceQuery(t *testing.T) {
	c := NewRuleClassifier(localTerms)
	matched := []types.Place{{ID: 1, Name: "ตลาดน้ำอัมพวา"}}

	assert.True(t, c.IsSpecificPlaceQuery("ตลาดน้ำอัมพวา", matched))
	assert.False(t, c.IsSpecificPlaceQuery("มีตลาดน้ำไหนเปิดบ้าง", matched))
	assert.False(t, c.IsSpecificPlaceQuery("อะไรก็ได้", nil))
}

func TestIsSpecificPlaceQuery_FallsBackToResultCount(t *testing.T) {
	c := NewRuleClassifier(localTerms)

	// no name signal in the message: one or two hits read as specific
	few := []types.Place{{ID: 1, Name: "ตลาดน้ำอัมพวา"}, {ID: 2, Name: "ดอนหอยหลอด"}}
	assert.True(t, c.IsSpecificPlaceQuery("เปิดกี่โมงครับ", few))

	many := append(few, types.Place{ID: 3, Name: "วัดบางกุ้ง"})
	assert.False(t, c.IsSpecificPlaceQuery("เปิดกี่โมงครับ", many))
}

func TestIsMainAttractionsQuery(t *testing.T) {
	assert.True(t, IsMainAttractionsQuery("ที่เที่ยวหลักของสมุทรสงครามมีอะไรบ้าง"))
	assert.True(t, IsMainAttractionsQuery("What landmarks should I see?"))
	assert.False(t, IsMainAttractionsQuery("แนะนำร้านกาแฟ"))
}

func TestDetectCategory(t *testing.T) {
	assert.Equal(t, "คาเฟ่", DetectCategory("แนะนำร้านกาแฟ"))
	assert.Equal(t, "ร้านอาหาร", DetectCategory("หาที่กินอร่อยๆ"))
	// ตลาดน้ำ outranks the broader ตลาด rule
	assert.Equal(t, "ตลาดน้ำ", DetectCategory("มีตลาดน้ำที่ไหนบ้าง"))
	assert.Equal(t, "ตลาด", DetectCategory("อยากเดินตลาดเช้า"))
	assert.Equal(t, "", DetectCategory("แนะนำที่เที่ยวหน่อย"))
}

func TestMentionsOtherProvince(t *testing.T) {
	c := NewRuleClassifier(localTerms)

	assert.True(t, c.MentionsOtherProvince("ที่เที่ยวจังหวัดเชียงใหม่", nil, nil))
	assert.False(t, c.MentionsOtherProvince("ที่เที่ยวจังหวัดสมุทรสงคราม", nil, nil))
	assert.True(t, c.MentionsOtherProvince("ไปเที่ยวทะเล", nil, []string{"ภูเก็ต"}))
	assert.False(t, c.MentionsOtherProvince("ไปเที่ยวตลาดน้ำ", []string{"ตลาดน้ำ"}, nil))
}

func TestTopicMatcher(t *testing.T) {
	m := NewTopicMatcher(localTerms)

	match := m.FindBestMatch("หาคาเฟ่ริมน้ำแถวอัมพวา")
	assert.Equal(t, "cafe", match.Topic)
	assert.Greater(t, match.Confidence, 0.0)
	assert.True(t, match.IsLocal)
	assert.NotEmpty(t, m.TopicKeywords("cafe"))

	empty := m.FindBestMatch("")
	assert.Equal(t, "", empty.Topic)
	assert.Equal(t, 0.0, empty.Confidence)
}
