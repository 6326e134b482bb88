package chat

import (
	"fmt"
	"strings"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// Canned persona texts used when no model output is available. Thai is
// the default; English is served when the question was in English.

func greetingMessage(language string) string {
	if language == "en" {
		return "Hello! I'm Nong Pla Too, happy to help plan your Samut Songkhram adventures!"
	}
	return "สวัสดีค่ะ! น้องปลาทูพร้อมช่วยแนะนำทริปในสมุทรสงครามให้เลยค่ะ"
}

func emptyQueryMessage(language string) string {
	if language == "en" {
		return "Please share a travel question for Samut Songkhram."
	}
	return "กรุณาพิมพ์คำถามเกี่ยวกับการท่องเที่ยวในสมุทรสงครามนะคะ"
}

func outOfScopeMessage(language string) string {
	if language == "en" {
		return "Nong Pla Too can only give reliable answers about Samut Songkhram province. Sorry about that!"
	}
	return "น้องปลาทูจะให้ข้อมูลได้ชัดเจนและครอบคลุม หากถามข้อมูลในจังหวัดสมุทรสงครามค่ะ ขออภัยด้วยนะคะ"
}

func staticPersonaMessage(language string) string {
	if language == "en" {
		return "I'm Nong Pla Too, your Samut Songkhram travel buddy. I can't reach my data right now, " +
			"but feel free to ask again in a moment!"
	}
	return "น้องปลาทูเป็นผู้ช่วยแนะนำการท่องเที่ยวสมุทรสงครามค่ะ ตอนนี้ยังติดต่อข้อมูลไม่ได้ " +
		"รบกวนลองถามใหม่อีกครั้งนะคะ"
}

func noDataMessage(language string) string {
	if language == "en" {
		return "I'm ready to provide tourism information about Samut Songkhram. " +
			"Feel free to ask about attractions, restaurants, or accommodations! " +
			"(Sorry, no matching data found right now)"
	}
	return "น้องปลาทูพร้อมให้ข้อมูลการท่องเที่ยวสมุทรสงครามให้คุณนะคะ " +
		"ลองถามเกี่ยวกับสถานที่ท่องเที่ยว ร้านอาหาร หรือที่พักในสมุทรสงครามได้เลยค่ะ " +
		"(ขออภัยที่ตอนนี้ยังไม่พบข้อมูลที่ตรงกับคำถาม)"
}

const simpleResponseMax = 3

// composeSimpleResponse renders matched places as plain text without a
// model. A single specific place gets the long guide format; lists get
// the compact numbered format.
func composeSimpleResponse(places []types.Place, language string, isSpecific bool) string {
	if len(places) == 0 {
		return noDataMessage(language)
	}

	if isSpecific && len(places) == 1 {
		return composeGuideEntry(places[0], language)
	}

	var b strings.Builder
	if language == "en" {
		fmt.Fprintf(&b, "Here are %d verified Samut Songkhram spots that match your question:\n", len(places))
	} else {
		fmt.Fprintf(&b, "น้องปลาทูเตรียมข้อมูลจากสมุทรสงครามมาให้ %d สถานที่ค่ะ:\n", len(places))
	}

	shown := places
	if len(shown) > simpleResponseMax {
		shown = shown[:simpleResponseMax]
	}
	for i, p := range shown {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		if p.Category != "" {
			if language == "en" {
				fmt.Fprintf(&b, "   Category: %s\n", p.Category)
			} else {
				fmt.Fprintf(&b, "   ประเภท: %s\n", p.Category)
			}
		}
		if p.Description != "" {
			desc := p.Description
			if len([]rune(desc)) > 100 {
				desc = string([]rune(desc)[:100]) + "..."
			}
			if language == "en" {
				fmt.Fprintf(&b, "   Why visit: %s\n", desc)
			} else {
				fmt.Fprintf(&b, "   จุดเด่น: %s\n", desc)
			}
		}
		if p.DistanceKm != nil {
			if language == "en" {
				fmt.Fprintf(&b, "   Distance: %.2f km\n", *p.DistanceKm)
			} else {
				fmt.Fprintf(&b, "   ระยะทาง: %.2f กม.\n", *p.DistanceKm)
			}
		}
	}
	if len(places) > simpleResponseMax {
		if language == "en" {
			fmt.Fprintf(&b, "\n... plus %d more related places.\n", len(places)-simpleResponseMax)
		} else {
			fmt.Fprintf(&b, "\n... และยังมีอีก %d สถานที่ที่เกี่ยวข้องค่ะ\n", len(places)-simpleResponseMax)
		}
	}
	if language == "en" {
		b.WriteString("\nFeel free to ask for more information!")
	} else {
		b.WriteString("\nหากต้องการข้อมูลเพิ่มเติม สามารถถามเพิ่มได้เลยค่ะ")
	}
	return b.String()
}

func composeGuideEntry(p types.Place, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", p.Name)
	if language == "en" {
		if p.Category != "" {
			fmt.Fprintf(&b, "Type: %s\n", p.Category)
		}
		if p.Rating != nil {
			fmt.Fprintf(&b, "Rating: %.1f\n", *p.Rating)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "\nAbout: %s\n", p.Description)
		}
		if p.Address != "" {
			fmt.Fprintf(&b, "Address: %s\n", p.Address)
		}
		if p.MapURL != "" {
			fmt.Fprintf(&b, "Map: %s\n", p.MapURL)
		}
	} else {
		if p.Category != "" {
			fmt.Fprintf(&b, "ประเภท: %s\n", p.Category)
		}
		if p.Rating != nil {
			fmt.Fprintf(&b, "คะแนน: %.1f\n", *p.Rating)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "\nเรื่องราว: %s\n", p.Description)
		}
		if p.Address != "" {
			fmt.Fprintf(&b, "ที่ตั้ง: %s\n", p.Address)
		}
		if p.MapURL != "" {
			fmt.Fprintf(&b, "แผนที่: %s\n", p.MapURL)
		}
	}
	return b.String()
}
