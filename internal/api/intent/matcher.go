package intent

import "strings"

// TopicMatch is the best topic found for a message.
type TopicMatch struct {
	Topic      string
	Confidence float64
	Keywords   []string
	IsLocal    bool
}

// TopicMatcher maps free-form questions onto coarse tourism topics. Each
// topic carries the search keywords that retrieve well for it, so a topic
// hit enriches the keyword pool even when the message itself contains no
// searchable term.
type TopicMatcher struct {
	topics     map[string][]string
	localTerms []string
}

func NewTopicMatcher(localTerms []string) *TopicMatcher {
	lowered := make([]string, 0, len(localTerms))
	for _, term := range localTerms {
		lowered = append(lowered, strings.ToLower(term))
	}
	return &TopicMatcher{
		localTerms: lowered,
		topics: map[string][]string{
			"floating_market": {"ตลาดน้ำ", "อัมพวา", "ตลาดน้ำอัมพวา", "floating market", "amphawa", "ตลาดร่มหุบ"},
			"temple":          {"วัด", "ไหว้พระ", "temple", "โบสถ์", "ทำบุญ"},
			"food":            {"อาหาร", "ร้านอาหาร", "ที่กิน", "ของกิน", "อร่อย", "food", "restaurant", "ปลาทู", "seafood"},
			"cafe":            {"คาเฟ่", "กาแฟ", "ร้านกาแฟ", "cafe", "coffee"},
			"accommodation":   {"ที่พัก", "โรงแรม", "รีสอร์ท", "โฮมสเตย์", "hotel", "resort", "homestay"},
			"nature":          {"ธรรมชาติ", "ดอนหอยหลอด", "หิ่งห้อย", "ล่องเรือ", "คลอง", "firefly", "nature"},
			"trip_plan":       {"ทริป", "แผนเที่ยว", "เที่ยว", "itinerary", "trip", "one day", "วันเดียว"},
		},
	}
}

// FindBestMatch scores every topic by how many of its keywords appear in
// the message and returns the strongest one. Confidence is the matched
// share of the topic's keywords, zero when nothing matches.
func (m *TopicMatcher) FindBestMatch(message string) TopicMatch {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return TopicMatch{}
	}

	best := TopicMatch{}
	for topic, keywords := range m.topics {
		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(normalized, keyword) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := float64(matches) / float64(len(keywords))
		if confidence > best.Confidence || (confidence == best.Confidence && topic < best.Topic) {
			best = TopicMatch{
				Topic:      topic,
				Confidence: confidence,
				Keywords:   keywords,
			}
		}
	}
	best.IsLocal = m.IsLocal(message)
	return best
}

// IsLocal reports whether the message references the home province or any
// of its signature destinations.
func (m *TopicMatcher) IsLocal(message string) bool {
	normalized := strings.ToLower(message)
	for _, term := range m.localTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	for _, landmark := range []string{"อัมพวา", "amphawa", "ดอนหอยหลอด", "แม่กลอง", "mae klong", "บางคนที"} {
		if strings.Contains(normalized, landmark) {
			return true
		}
	}
	return false
}

// TopicKeywords returns the search keywords registered for a topic.
func (m *TopicMatcher) TopicKeywords(topic string) []string {
	return m.topics[topic]
}
