package generativeai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// TravelService builds prompts around the bot persona and turns model
// output into the shapes the chat orchestrator needs.
type TravelService struct {
	ai     *AIClient
	cfg    config.AIConfig
	logger *slog.Logger
}

func NewTravelService(ai *AIClient, cfg config.AIConfig, logger *slog.Logger) *TravelService {
	return &TravelService{ai: ai, cfg: cfg, logger: logger}
}

const personaPreamble = `คุณคือ "น้องปลาทู" ไกด์ท่องเที่ยวประจำจังหวัดสมุทรสงคราม
พูดจาเป็นกันเอง สุภาพ ใช้คำลงท้าย "ค่ะ" ตอบสั้นกระชับและอิงข้อมูลที่ให้มาเท่านั้น
ห้ามแต่งชื่อสถานที่ขึ้นมาเอง ถ้าไม่มีข้อมูลให้บอกตามตรง`

// GenerateTravelResponse produces the conversational answer for a set of
// retrieved places. The places block is the only source the model may
// cite, which keeps it from inventing attractions.
func (s *TravelService) GenerateTravelResponse(ctx context.Context, question string, places []types.Place, history []types.ConversationTurn, language string) (string, error) {
	ctx, span := otel.Tracer("TravelService").Start(ctx, "GenerateTravelResponse", trace.WithAttributes(
		attribute.Int("places.count", len(places)),
		attribute.String("language", language),
	))
	defer span.End()

	prompt := s.buildTravelPrompt(question, places, history, language)

	text, err := s.ai.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(s.cfg.Temperature)),
		MaxOutputTokens: int32(s.cfg.MaxOutputTokens),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate travel response")
		return "", fmt.Errorf("failed to generate travel response: %w", err)
	}

	span.SetStatus(codes.Ok, "Travel response generated")
	return strings.TrimSpace(text), nil
}

// GenerateTravelResponseStream is the streaming variant used by the SSE
// endpoint. The caller consumes the iterator chunk by chunk.
func (s *TravelService) GenerateTravelResponseStream(ctx context.Context, question string, places []types.Place, history []types.ConversationTurn, language string) (func(yield func(string, error) bool), error) {
	prompt := s.buildTravelPrompt(question, places, history, language)

	stream, err := s.ai.GenerateContentStream(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(s.cfg.Temperature)),
		MaxOutputTokens: int32(s.cfg.MaxOutputTokens),
	})
	if err != nil {
		return nil, err
	}

	return func(yield func(string, error) bool) {
		for resp, err := range stream {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}, nil
}

func (s *TravelService) buildTravelPrompt(question string, places []types.Place, history []types.ConversationTurn, language string) string {
	var b strings.Builder
	b.WriteString(personaPreamble)
	if language == "en" {
		b.WriteString("\nThe visitor wrote in English, so answer in friendly English.")
	}
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("บทสนทนาก่อนหน้า:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "ผู้ใช้: %s\nน้องปลาทู: %s\n", turn.UserText, turn.BotText)
		}
		b.WriteString("\n")
	}

	if len(places) > 0 {
		b.WriteString("ข้อมูลสถานที่:\n")
		for i, p := range places {
			fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
			if p.Category != "" {
				fmt.Fprintf(&b, " (%s)", p.Category)
			}
			if p.Description != "" {
				fmt.Fprintf(&b, " - %s", p.Description)
			}
			if p.Address != "" {
				fmt.Fprintf(&b, " ที่อยู่: %s", p.Address)
			}
			if p.DistanceKm != nil {
				fmt.Fprintf(&b, " ระยะทาง %.2f กม.", *p.DistanceKm)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("ไม่มีข้อมูลสถานที่ที่ตรงกับคำถามนี้ในฐานข้อมูล\n\n")
	}

	fmt.Fprintf(&b, "คำถาม: %s\n", question)
	return b.String()
}

// EntityResult is the structured output of query entity extraction.
type EntityResult struct {
	Keywords   []string `json:"keywords"`
	IsSpecific bool     `json:"is_specific"`
}

// ExtractQueryEntities asks the model for search keywords and whether the
// message targets one named place. Errors degrade to nil so rule-based
// analysis can carry the request alone.
func (s *TravelService) ExtractQueryEntities(ctx context.Context, message string) (*EntityResult, error) {
	ctx, span := otel.Tracer("TravelService").Start(ctx, "ExtractQueryEntities", trace.WithAttributes(
		attribute.Int("message.length", len(message)),
	))
	defer span.End()

	prompt := fmt.Sprintf(`วิเคราะห์ข้อความของนักท่องเที่ยวแล้วตอบเป็น JSON เท่านั้น:
{"keywords": ["คำค้นหาสถานที่ 1-5 คำ"], "is_specific": true เมื่อถามถึงสถานที่ชื่อเฉพาะแห่งเดียว}

ข้อความ: %s`, message)

	text, err := s.ai.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to extract entities")
		return nil, fmt.Errorf("failed to extract query entities: %w", err)
	}

	var result EntityResult
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to parse entity JSON")
		return nil, fmt.Errorf("failed to parse entity extraction output: %w", err)
	}

	span.SetAttributes(attribute.Int("keywords.count", len(result.Keywords)))
	span.SetStatus(codes.Ok, "Entities extracted")
	return &result, nil
}

// DecomposeLocationQuery splits a proximity question into the thing being
// searched for and the anchor location. It never fails the request: on any
// error the whole message becomes the target with no reference.
func (s *TravelService) DecomposeLocationQuery(ctx context.Context, message string, defaultRadiusKm float64) *types.LocationQuery {
	ctx, span := otel.Tracer("TravelService").Start(ctx, "DecomposeLocationQuery", trace.WithAttributes(
		attribute.Int("message.length", len(message)),
	))
	defer span.End()

	fallback := &types.LocationQuery{Target: message, RadiusKm: defaultRadiusKm}

	prompt := fmt.Sprintf(`แยกคำถามหาสถานที่ "ใกล้" ออกเป็นสองส่วน ตอบเป็น JSON เท่านั้น:
{"target": "สิ่งที่ต้องการหา", "reference": "สถานที่อ้างอิง หรือว่างถ้าไม่มี"}

ตัวอย่าง: "คาเฟ่ใกล้ตลาดน้ำอัมพวา" -> {"target": "คาเฟ่", "reference": "ตลาดน้ำอัมพวา"}

คำถาม: %s`, message)

	text, err := s.ai.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Location decomposition failed, using whole message as target", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Decomposition failed")
		return fallback
	}

	var decoded struct {
		Target    string `json:"target"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &decoded); err != nil || strings.TrimSpace(decoded.Target) == "" {
		s.logger.WarnContext(ctx, "Location decomposition returned unusable output", slog.Any("error", err))
		span.SetStatus(codes.Error, "Unusable decomposition output")
		return fallback
	}

	span.SetStatus(codes.Ok, "Location query decomposed")
	return &types.LocationQuery{
		Target:    strings.TrimSpace(decoded.Target),
		Reference: strings.TrimSpace(decoded.Reference),
		RadiusKm:  defaultRadiusKm,
	}
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// around JSON output even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
