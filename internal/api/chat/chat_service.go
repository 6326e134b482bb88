package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/TajimeRose/NongPlatoo.Ai/app/observability/metrics"
	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/external"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/generativeai"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/geocode"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/intent"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// ErrNoDatabase is returned by persistence operations when the service
// runs without a reachable database.
var ErrNoDatabase = errors.New("database not configured")

type Service interface {
	GetResponse(ctx context.Context, message, sessionID string) (*types.ChatResponse, error)
	StreamResponse(ctx context.Context, message, sessionID string) <-chan types.StreamEvent
	History(sessionID string) []types.ConversationTurn
	ClearHistory(sessionID string)
	GetChatLogs(ctx context.Context, sessionID string, limit int) ([]types.ChatLog, error)
	SaveFeedback(ctx context.Context, feedback types.MessageFeedback) (uuid.UUID, error)
	DatasetSummary(ctx context.Context) (*types.DatasetSummary, error)
}

// Composer is the model surface the orchestrator depends on. A nil
// Composer means no API key was configured and every answer falls back
// to templated text.
type Composer interface {
	GenerateTravelResponse(ctx context.Context, question string, places []types.Place, history []types.ConversationTurn, language string) (string, error)
	GenerateTravelResponseStream(ctx context.Context, question string, places []types.Place, history []types.ConversationTurn, language string) (func(yield func(string, error) bool), error)
	ExtractQueryEntities(ctx context.Context, message string) (*generativeai.EntityResult, error)
	DecomposeLocationQuery(ctx context.Context, message string, defaultRadiusKm float64) *types.LocationQuery
}

var _ Composer = (*generativeai.TravelService)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	cfg        config.ChatbotConfig
	places     place.Service
	classifier intent.Classifier
	matcher    *intent.TopicMatcher
	ai         Composer
	geocoder   geocode.Service
	google     external.Service
	repo       Repository

	cache      *ResponseCache
	memory     *ConversationMemory
	travelData *gocache.Cache

	// probe reports database reachability. A nil probe means the
	// service runs without a database.
	probe func(ctx context.Context) error
}

func NewService(
	logger *slog.Logger,
	cfg config.ChatbotConfig,
	places place.Service,
	classifier intent.Classifier,
	matcher *intent.TopicMatcher,
	ai Composer,
	geocoder geocode.Service,
	google external.Service,
	repo Repository,
	probe func(ctx context.Context) error,
) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		cfg:        cfg,
		places:     places,
		classifier: classifier,
		matcher:    matcher,
		ai:         ai,
		geocoder:   geocoder,
		google:     google,
		repo:       repo,
		cache:      NewResponseCache(cfg.ResponseCacheTTL, cfg.DuplicateWindow),
		memory:     NewConversationMemory(cfg.ConversationMemoryPairs, cfg.ConversationMemoryTTL),
		travelData: gocache.New(cfg.TravelDataCacheTTL, cfg.TravelDataCacheTTL),
		probe:      probe,
	}
}

// resolution carries everything the composing stage needs. A non-nil
// short response means the pipeline already finished.
type resolution struct {
	language   string
	key        string
	places     []types.Place
	fromGoogle bool
	isSpecific bool
	short      *types.ChatResponse
}

// GetResponse runs the full pipeline for one message: caches, intent,
// retrieval, external fallback and composition.
func (s *ServiceImpl) GetResponse(ctx context.Context, message, sessionID string) (*types.ChatResponse, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GetResponse", trace.WithAttributes(
		attribute.String("chat.session_id", sessionID),
	))
	defer span.End()

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	res := s.resolve(ctx, message, sessionID)
	if res.short != nil {
		s.recordRequest(ctx, res.short.Source, start)
		return res.short, nil
	}

	resp := s.compose(ctx, message, sessionID, res)
	s.finalize(ctx, message, sessionID, res.key, resp)
	s.recordRequest(ctx, resp.Source, start)
	span.SetAttributes(attribute.String("chat.source", resp.Source))
	return resp, nil
}

// resolve handles the pre-composition stages shared by the blocking and
// streaming endpoints.
func (s *ServiceImpl) resolve(ctx context.Context, message, sessionID string) *resolution {
	l := s.logger.With(slog.String("method", "resolve"), slog.String("session_id", sessionID))

	language := intent.DetectLanguage(message)
	trimmed := strings.TrimSpace(message)
	res := &resolution{language: language}

	if trimmed == "" {
		res.short = s.shortResponse(emptyQueryMessage(language), "empty_query", types.DataStatusNotFound, language)
		return res
	}

	res.key = intent.NormalizeQueryKey(trimmed)

	// Same-session repeats must be flagged as duplicates, so the
	// per-session check runs before the global cache.
	if replay := s.cache.ReplayDuplicate(sessionID, res.key); replay != nil {
		metrics.Get().DuplicateRequestsTotal.Add(ctx, 1)
		res.short = replay
		return res
	}
	if cached, ok := s.cache.GetGlobal(res.key); ok {
		metrics.Get().CacheHitsTotal.Add(ctx, 1)
		res.short = cached
		return res
	}

	if intent.IsGreeting(trimmed) {
		resp := s.shortResponse(greetingMessage(language), "greeting", types.DataStatusGreeting, language)
		s.cache.Store(sessionID, res.key, *resp)
		res.short = resp
		return res
	}

	if err := s.probeDatabase(ctx); err != nil {
		l.WarnContext(ctx, "Database unavailable, degrading", slog.Any("error", err))
		res.short = s.noDatabaseResponse(ctx, message, sessionID, res.key, language)
		return res
	}

	names := s.placeNames(ctx)
	classification, entities, topic := s.analyze(ctx, trimmed, names)

	keywords := intent.MergeKeywords(classification.Keywords, topic.Keywords)
	if entities != nil {
		keywords = intent.MergeKeywords(keywords, entities.Keywords)
	}
	if len(keywords) == 0 {
		keywords = s.classifier.AutoDetectKeywords(trimmed, names, s.cfg.KeywordDetectLimit)
	}

	includesLocal := topic.IsLocal || s.containsLocal(trimmed, keywords)

	if !includesLocal && s.classifier.MentionsOtherProvince(trimmed, keywords, nil) {
		resp := s.shortResponse(outOfScopeMessage(language), "out_of_scope", types.DataStatusOutOfScope, language)
		s.cache.Store(sessionID, res.key, *resp)
		res.short = resp
		return res
	}

	matched := s.retrieve(ctx, trimmed, classification, keywords)

	matched = s.mergeTripGuides(ctx, trimmed, matched)
	matched = boostExactName(trimmed, matched)

	res.isSpecific = s.classifier.IsSpecificPlaceQuery(trimmed, matched)
	matched = s.trimResults(matched, res.isSpecific)

	if len(matched) == 0 && includesLocal && s.google != nil {
		matched = s.googleFallback(ctx, trimmed)
		res.fromGoogle = len(matched) > 0
	}

	res.places = matched
	return res
}

// analyze runs the rule classifier, the model entity extractor and the
// topic matcher concurrently.
func (s *ServiceImpl) analyze(ctx context.Context, message string, names []string) (intent.Classification, *generativeai.EntityResult, intent.TopicMatch) {
	var (
		classification intent.Classification
		entities       *generativeai.EntityResult
		topic          intent.TopicMatch
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		classification = s.classifier.Classify(message, names)
		return nil
	})
	g.Go(func() error {
		topic = s.matcher.FindBestMatch(message)
		return nil
	})
	if s.ai != nil {
		g.Go(func() error {
			result, err := s.ai.ExtractQueryEntities(gctx, message)
			if err != nil {
				s.logger.WarnContext(gctx, "Entity extraction failed, continuing with rules", slog.Any("error", err))
				return nil
			}
			entities = result
			return nil
		})
	}
	_ = g.Wait()

	return classification, entities, topic
}

// retrieve picks the retrieval strategy for the classified intent.
// Curated branches (nearby, main attractions, category browse) run
// before the hybrid search; each falls through when it finds nothing.
func (s *ServiceImpl) retrieve(ctx context.Context, message string, classification intent.Classification, keywords []string) []types.Place {
	l := s.logger.With(slog.String("method", "retrieve"))

	if classification.Intent == types.IntentNearLocation {
		if matched := s.retrieveNearby(ctx, message); len(matched) > 0 {
			return matched
		}
	}

	// Browse branches are for list-style questions. A message naming one
	// place still goes through the hybrid search even when it mentions a
	// category word like วัด.
	if classification.Intent != types.IntentSpecificPlace {
		if intent.IsMainAttractionsQuery(message) {
			matched, err := s.places.SearchMainAttractions(ctx)
			if err != nil {
				l.ErrorContext(ctx, "Main attraction search failed", slog.Any("error", err))
			}
			if len(matched) > 0 {
				return matched
			}
		}

		if category := intent.DetectCategory(message); category != "" {
			matched, err := s.places.GetAttractionsByType(ctx, category)
			if err != nil {
				l.ErrorContext(ctx, "Category search failed", slog.Any("error", err), slog.String("category", category))
			}
			if len(matched) > 0 {
				return matched
			}
		}
	}

	matched, err := s.places.SearchHybrid(ctx, message, s.cfg.MatchLimit)
	if err != nil {
		l.ErrorContext(ctx, "Hybrid search failed", slog.Any("error", err))
	}

	if len(keywords) > 0 && len(matched) < s.cfg.MatchLimit {
		extra, err := s.places.SearchByKeywords(ctx, keywords, s.cfg.PerKeywordLimit)
		if err != nil {
			l.ErrorContext(ctx, "Keyword search failed", slog.Any("error", err))
		}
		seen := make(map[int]bool, len(matched))
		for _, p := range matched {
			seen[p.ID] = true
		}
		for _, p := range extra {
			if seen[p.ID] || len(matched) >= s.cfg.MatchLimit {
				continue
			}
			seen[p.ID] = true
			matched = append(matched, p)
		}
	}
	return matched
}

// retrieveNearby resolves the reference location and searches around it.
// An unresolvable reference widens to the whole province.
func (s *ServiceImpl) retrieveNearby(ctx context.Context, message string) []types.Place {
	l := s.logger.With(slog.String("method", "retrieveNearby"))

	loc := &types.LocationQuery{Target: message, RadiusKm: s.cfg.DefaultRadiusKm}
	if s.ai != nil {
		loc = s.ai.DecomposeLocationQuery(ctx, message, s.cfg.DefaultRadiusKm)
	}

	lat, lon := s.cfg.DefaultLatitude, s.cfg.DefaultLongitude
	radius := s.cfg.ProvinceRadiusKm
	if s.geocoder != nil {
		anchor := loc.Target
		if loc.Reference != "" {
			anchor = loc.Reference
		}
		point, err := s.geocoder.Resolve(ctx, anchor)
		if err != nil {
			l.WarnContext(ctx, "Geocoding failed, using province centre", slog.Any("error", err))
		}
		if point != nil {
			lat, lon = point.Latitude, point.Longitude
			radius = loc.RadiusKm
		}
	}

	// The decomposed target narrows the proximity search, so asking for
	// restaurants near a landmark does not return temples around it. When
	// decomposition degraded to the raw message, search unfiltered.
	keyword := loc.Target
	if keyword == message {
		keyword = ""
	}

	matched, err := s.places.SearchNearLocation(ctx, keyword, lat, lon, radius, s.cfg.DisplayLimit)
	if err != nil {
		l.ErrorContext(ctx, "Nearby search failed", slog.Any("error", err))
		return nil
	}
	return matched
}

// mergeTripGuides appends curated trip guide entries when the message
// asks for one, skipping guides already in the result set.
func (s *ServiceImpl) mergeTripGuides(ctx context.Context, message string, matched []types.Place) []types.Place {
	slugs := intent.SelectTripGuideSlugs(message)
	if len(slugs) == 0 {
		return matched
	}

	seen := make(map[int]bool, len(matched))
	for _, p := range matched {
		seen[p.ID] = true
	}
	for _, slug := range slugs {
		guides, err := s.places.SearchPlaces(ctx, slug, 1)
		if err != nil {
			continue
		}
		for _, g := range guides {
			if !seen[g.ID] {
				seen[g.ID] = true
				matched = append(matched, g)
			}
		}
	}
	return matched
}

// boostExactName moves the first result whose full name appears in the
// message to the front. The keyword leg matches the whole message as one
// pattern, so a place named mid-sentence can otherwise rank behind
// broader matches.
func boostExactName(message string, matched []types.Place) []types.Place {
	query := intent.NormalizeNameToken(message)
	if query == "" {
		return matched
	}
	for i, p := range matched {
		name := intent.NormalizeNameToken(p.Name)
		if name == "" || len([]rune(name)) < 3 || !strings.Contains(query, name) {
			continue
		}
		if i > 0 {
			hit := matched[i]
			matched = append(matched[:i], matched[i+1:]...)
			matched = append([]types.Place{hit}, matched...)
		}
		break
	}
	return matched
}

func (s *ServiceImpl) trimResults(matched []types.Place, isSpecific bool) []types.Place {
	limit := s.cfg.DisplayLimit
	if isSpecific {
		limit = s.cfg.SpecificResultLimit
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func (s *ServiceImpl) googleFallback(ctx context.Context, message string) []types.Place {
	l := s.logger.With(slog.String("method", "googleFallback"))
	metrics.Get().ExternalLookupsTotal.Add(ctx, 1)

	results, err := s.google.SearchFallback(ctx, message)
	if err != nil {
		l.WarnContext(ctx, "Google fallback failed", slog.Any("error", err))
		return nil
	}
	l.InfoContext(ctx, "Google fallback results", slog.Int("count", len(results)))
	return results
}

// compose turns retrieved places into the final message, degrading from
// model output to templated text.
func (s *ServiceImpl) compose(ctx context.Context, message, sessionID string, res *resolution) *types.ChatResponse {
	l := s.logger.With(slog.String("method", "compose"))

	status := types.DataStatusFound
	if len(res.places) == 0 {
		status = types.DataStatusNotFound
	}

	prefix := "data"
	if res.fromGoogle {
		prefix = "google"
	}

	if s.ai == nil {
		return &types.ChatResponse{
			Message:    composeSimpleResponse(res.places, res.language, res.isSpecific),
			Places:     res.places,
			Source:     "simple",
			DataStatus: status,
			Language:   res.language,
			Timestamp:  time.Now(),
		}
	}

	history := s.memory.History(sessionID)
	answer, err := s.ai.GenerateTravelResponse(ctx, message, res.places, history, res.language)
	if err != nil {
		l.ErrorContext(ctx, "Model composition failed, using template", slog.Any("error", err))
		metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", "simple")))
		return &types.ChatResponse{
			Message:    composeSimpleResponse(res.places, res.language, res.isSpecific),
			Places:     res.places,
			Source:     prefix + "+simple",
			DataStatus: status,
			Language:   res.language,
			Timestamp:  time.Now(),
		}
	}

	source := prefix + "+ai"
	if len(res.places) == 0 {
		source = "gpt_fallback"
		metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", "gpt")))
	}
	return &types.ChatResponse{
		Message:    answer,
		Places:     res.places,
		Source:     source,
		DataStatus: status,
		Language:   res.language,
		Timestamp:  time.Now(),
	}
}

// noDatabaseResponse answers from the model alone, or from the static
// persona text when the model is also unavailable.
func (s *ServiceImpl) noDatabaseResponse(ctx context.Context, message, sessionID, key, language string) *types.ChatResponse {
	if s.ai != nil {
		history := s.memory.History(sessionID)
		answer, err := s.ai.GenerateTravelResponse(ctx, message, nil, history, language)
		if err == nil {
			resp := &types.ChatResponse{
				Message:    answer,
				Source:     "ai_no_db",
				DataStatus: types.DataStatusUnavailable,
				Language:   language,
				Timestamp:  time.Now(),
			}
			s.memory.Append(sessionID, message, answer)
			s.cache.Store(sessionID, key, *resp)
			return resp
		}
		s.logger.ErrorContext(ctx, "Model failed without database", slog.Any("error", err))
	}
	metrics.Get().FallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", "static")))
	return s.shortResponse(staticPersonaMessage(language), "static_persona_fallback", types.DataStatusUnavailable, language)
}

// finalize stores caches and memory and persists the exchange.
func (s *ServiceImpl) finalize(ctx context.Context, message, sessionID, key string, resp *types.ChatResponse) {
	s.cache.Store(sessionID, key, *resp)
	s.memory.Append(sessionID, message, resp.Message)

	if s.repo == nil {
		return
	}
	logCtx := context.WithoutCancel(ctx)
	go func() {
		logCtx, cancel := context.WithTimeout(logCtx, 5*time.Second)
		defer cancel()
		_, err := s.repo.SaveChatLog(logCtx, types.ChatLog{
			SessionID: sessionID,
			UserText:  message,
			BotText:   resp.Message,
			Source:    resp.Source,
			Language:  resp.Language,
		})
		if err != nil {
			s.logger.WarnContext(logCtx, "Failed to persist chat log", slog.Any("error", err))
		}
	}()
}

func (s *ServiceImpl) shortResponse(message, source string, status types.DataStatus, language string) *types.ChatResponse {
	return &types.ChatResponse{
		Message:    message,
		Source:     source,
		DataStatus: status,
		Language:   language,
		Timestamp:  time.Now(),
	}
}

func (s *ServiceImpl) probeDatabase(ctx context.Context) error {
	if s.probe == nil {
		return ErrNoDatabase
	}
	return s.probe(ctx)
}

func (s *ServiceImpl) containsLocal(message string, keywords []string) bool {
	type localChecker interface {
		ContainsLocalReference(text string) bool
	}
	checker, ok := s.classifier.(localChecker)
	if !ok {
		return false
	}
	if checker.ContainsLocalReference(message) {
		return true
	}
	for _, kw := range keywords {
		if checker.ContainsLocalReference(kw) {
			return true
		}
	}
	return false
}

// placeNames returns the cached list of known place names used by the
// rule classifier.
func (s *ServiceImpl) placeNames(ctx context.Context) []string {
	const cacheKey = "place_names"
	if cached, ok := s.travelData.Get(cacheKey); ok {
		if names, ok := cached.([]string); ok {
			return names
		}
	}

	places, err := s.places.GetAllPlaces(ctx, s.cfg.MatchLimit)
	if err != nil || len(places) == 0 {
		return nil
	}
	names := make([]string, 0, len(places))
	for _, p := range places {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	s.travelData.Set(cacheKey, names, gocache.DefaultExpiration)
	return names
}

func (s *ServiceImpl) recordRequest(ctx context.Context, source string, start time.Time) {
	metrics.Get().ChatRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	metrics.Get().ChatDurationSeconds.Record(ctx, time.Since(start).Seconds())
}

// History returns the in-memory conversation turns for a session.
func (s *ServiceImpl) History(sessionID string) []types.ConversationTurn {
	return s.memory.History(sessionID)
}

// ClearHistory drops the in-memory conversation for a session.
func (s *ServiceImpl) ClearHistory(sessionID string) {
	s.memory.Clear(sessionID)
}

func (s *ServiceImpl) GetChatLogs(ctx context.Context, sessionID string, limit int) ([]types.ChatLog, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GetChatLogs")
	defer span.End()

	if s.repo == nil {
		return []types.ChatLog{}, nil
	}
	logs, err := s.repo.ListChatLogs(ctx, sessionID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, err
	}
	return logs, nil
}

func (s *ServiceImpl) SaveFeedback(ctx context.Context, feedback types.MessageFeedback) (uuid.UUID, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "SaveFeedback")
	defer span.End()

	if s.repo == nil {
		return uuid.Nil, ErrNoDatabase
	}
	id, err := s.repo.SaveFeedback(ctx, feedback)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		return uuid.Nil, err
	}
	return id, nil
}

func (s *ServiceImpl) DatasetSummary(ctx context.Context) (*types.DatasetSummary, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "DatasetSummary")
	defer span.End()

	summary, err := s.places.GetDatasetSummary(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Summary failed")
		return nil, err
	}
	return summary, nil
}
