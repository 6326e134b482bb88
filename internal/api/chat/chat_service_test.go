package chat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TajimeRose/NongPlatoo.Ai/app/observability/metrics"
	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/generativeai"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/intent"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

// MockPlaceService is a mock implementation of place.Service
type MockPlaceService struct {
	mock.Mock
}

func (m *MockPlaceService) SearchPlaces(ctx context.Context, query string, limit int) ([]types.Place, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) SearchMainAttractions(ctx context.Context) ([]types.Place, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) GetAttractionsByType(ctx context.Context, category string) ([]types.Place, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) SearchNearLocation(ctx context.Context, keyword string, lat, lon, radiusKm float64, limit int) ([]types.Place, error) {
	args := m.Called(ctx, keyword, lat, lon, radiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) SearchSemantic(ctx context.Context, query string, limit int) ([]types.Place, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) SearchHybrid(ctx context.Context, query string, limit int) ([]types.Place, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) SearchByKeywords(ctx context.Context, keywords []string, perKeywordLimit int) ([]types.Place, error) {
	args := m.Called(ctx, keywords, perKeywordLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) GetAllPlaces(ctx context.Context, limit int) ([]types.Place, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceService) SavePlace(ctx context.Context, place types.Place) (int, error) {
	args := m.Called(ctx, place)
	return args.Int(0), args.Error(1)
}

func (m *MockPlaceService) GetDatasetSummary(ctx context.Context) (*types.DatasetSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DatasetSummary), args.Error(1)
}

func (m *MockPlaceService) GenerateEmbeddingsForAllPlaces(ctx context.Context, batchSize int) error {
	args := m.Called(ctx, batchSize)
	return args.Error(0)
}

// MockExternalService is a mock implementation of external.Service
type MockExternalService struct {
	mock.Mock
}

func (m *MockExternalService) SearchFallback(ctx context.Context, query string) ([]types.Place, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

// stubComposer returns a canned location decomposition and fails every
// generation call, so composition falls back to templated text.
type stubComposer struct {
	loc *types.LocationQuery
}

func (c *stubComposer) GenerateTravelResponse(ctx context.Context, question string, places []types.Place, history []types.ConversationTurn, language string) (string, error) {
	return "", errors.New("model unavailable")
}

func (c *stubComposer) GenerateTravelResponseStream(ctx context.Context, question string, places []types.Place, history []types.ConversationTurn, language string) (func(yield func(string, error) bool), error) {
	return nil, errors.New("model unavailable")
}

func (c *stubComposer) ExtractQueryEntities(ctx context.Context, message string) (*generativeai.EntityResult, error) {
	return nil, errors.New("model unavailable")
}

func (c *stubComposer) DecomposeLocationQuery(ctx context.Context, message string, defaultRadiusKm float64) *types.LocationQuery {
	return c.loc
}

type stubGeocoder struct {
	point *types.GeoPoint
}

func (g *stubGeocoder) Resolve(ctx context.Context, name string) (*types.GeoPoint, error) {
	return g.point, nil
}

var testLocalTerms = []string{"สมุทรสงคราม", "samut songkhram"}

func testConfig() config.ChatbotConfig {
	return config.ChatbotConfig{
		BotName:                 "น้องปลาทู",
		DefaultLatitude:         13.4098,
		DefaultLongitude:        100.0023,
		LocalKeywords:           testLocalTerms,
		MatchLimit:              50,
		DisplayLimit:            6,
		KeywordDetectLimit:      6,
		PerKeywordLimit:         2,
		SpecificResultLimit:     3,
		DefaultRadiusKm:         2,
		ProvinceRadiusKm:        50,
		ResponseCacheTTL:        time.Minute,
		DuplicateWindow:         15 * time.Second,
		TravelDataCacheTTL:      5 * time.Minute,
		ConversationMemoryPairs: 10,
		ConversationMemoryTTL:   30 * time.Minute,
		RequestTimeout:          30 * time.Second,
	}
}

func newTestService(places *MockPlaceService, google *MockExternalService, dbUp bool) *ServiceImpl {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	var probe func(ctx context.Context) error
	if dbUp {
		probe = func(ctx context.Context) error { return nil }
	}
	svc := NewService(
		logger,
		testConfig(),
		places,
		intent.NewRuleClassifier(testLocalTerms),
		intent.NewTopicMatcher(testLocalTerms),
		nil,
		nil,
		nil,
		nil,
		probe,
	)
	if google != nil {
		svc.google = google
	}
	return svc
}

func TestGetResponse_Greeting(t *testing.T) {
	places := new(MockPlaceService)
	svc := newTestService(places, nil, true)

	resp, err := svc.GetResponse(context.Background(), "สวัสดีค่ะ", "s1")

	require.NoError(t, err)
	assert.Equal(t, "greeting", resp.Source)
	assert.Equal(t, types.DataStatusGreeting, resp.DataStatus)
	assert.Equal(t, "th", resp.Language)
	assert.NotEmpty(t, resp.Message)
	places.AssertNotCalled(t, "SearchHybrid", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetResponse_EmptyMessage(t *testing.T) {
	places := new(MockPlaceService)
	svc := newTestService(places, nil, true)

	resp, err := svc.GetResponse(context.Background(), "   ", "s1")

	require.NoError(t, err)
	assert.Equal(t, "empty_query", resp.Source)
	assert.Equal(t, types.DataStatusNotFound, resp.DataStatus)
}

func TestGetResponse_FoundPlacesWithoutModel(t *testing.T) {
	places := new(MockPlaceService)
	matched := []types.Place{
		{ID: 1, Name: "ตลาดน้ำอัมพวา", Category: "ตลาดน้ำ", Description: "ตลาดน้ำยามเย็นริมคลองอัมพวา"},
		{ID: 2, Name: "ตลาดร่มหุบ", Category: "ตลาด", Description: "ตลาดบนทางรถไฟแม่กลอง"},
	}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchHybrid", mock.Anything, "แนะนำที่เที่ยวหน่อย", 50).Return(matched, nil)
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)
	resp, err := svc.GetResponse(context.Background(), "แนะนำที่เที่ยวหน่อย", "s1")

	require.NoError(t, err)
	assert.Equal(t, "simple", resp.Source)
	assert.Equal(t, types.DataStatusFound, resp.DataStatus)
	assert.Len(t, resp.Places, 2)
	assert.Contains(t, resp.Message, "ตลาดน้ำอัมพวา")
	places.AssertExpectations(t)
}

func TestGetResponse_CachesRepeatQuery(t *testing.T) {
	places := new(MockPlaceService)
	matched := []types.Place{{ID: 1, Name: "ตลาดน้ำอัมพวา", Category: "ตลาดน้ำ"}}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil).Once()
	places.On("SearchHybrid", mock.Anything, "แนะนำที่เที่ยวหน่อย", 50).Return(matched, nil).Once()
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil).Once()

	svc := newTestService(places, nil, true)
	first, err := svc.GetResponse(context.Background(), "แนะนำที่เที่ยวหน่อย", "s1")
	require.NoError(t, err)

	second, err := svc.GetResponse(context.Background(), "แนะนำที่เที่ยวหน่อย", "s2")
	require.NoError(t, err)

	assert.Equal(t, first.Message, second.Message)
	places.AssertExpectations(t)
}

func TestGetResponse_OtherProvinceOutOfScope(t *testing.T) {
	places := new(MockPlaceService)
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)
	resp, err := svc.GetResponse(context.Background(), "ที่เที่ยวในจังหวัดเชียงใหม่", "s1")

	require.NoError(t, err)
	assert.Equal(t, "out_of_scope", resp.Source)
	assert.Equal(t, types.DataStatusOutOfScope, resp.DataStatus)
	places.AssertNotCalled(t, "SearchHybrid", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetResponse_GoogleFallbackWhenLocalAndEmpty(t *testing.T) {
	places := new(MockPlaceService)
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("GetAttractionsByType", mock.Anything, "คาเฟ่").Return([]types.Place{}, nil)
	places.On("SearchHybrid", mock.Anything, mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	google := new(MockExternalService)
	google.On("SearchFallback", mock.Anything, mock.Anything).Return([]types.Place{
		{ID: 99, Name: "คาเฟ่ริมคลอง", Source: "google_search"},
	}, nil)

	svc := newTestService(places, google, true)
	resp, err := svc.GetResponse(context.Background(), "คาเฟ่เปิดใหม่สมุทรสงคราม", "s1")

	require.NoError(t, err)
	assert.Equal(t, types.DataStatusFound, resp.DataStatus)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "google_search", resp.Places[0].Source)
	google.AssertExpectations(t)
}

func TestGetResponse_NoDataNoFallback(t *testing.T) {
	places := new(MockPlaceService)
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("GetAttractionsByType", mock.Anything, "ร้านอาหาร").Return([]types.Place{}, nil)
	places.On("SearchHybrid", mock.Anything, mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)
	resp, err := svc.GetResponse(context.Background(), "แนะนำร้านอาหารอร่อย", "s1")

	require.NoError(t, err)
	assert.Equal(t, "simple", resp.Source)
	assert.Equal(t, types.DataStatusNotFound, resp.DataStatus)
	assert.Empty(t, resp.Places)
}

func TestGetResponse_DatabaseDown(t *testing.T) {
	places := new(MockPlaceService)
	svc := newTestService(places, nil, false)

	resp, err := svc.GetResponse(context.Background(), "แนะนำที่เที่ยวหน่อย", "s1")

	require.NoError(t, err)
	assert.Equal(t, "static_persona_fallback", resp.Source)
	assert.Equal(t, types.DataStatusUnavailable, resp.DataStatus)
	places.AssertNotCalled(t, "SearchHybrid", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetResponse_RecordsConversationMemory(t *testing.T) {
	places := new(MockPlaceService)
	matched := []types.Place{{ID: 1, Name: "ตลาดน้ำอัมพวา", Category: "ตลาดน้ำ"}}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchHybrid", mock.Anything, mock.Anything, 50).Return(matched, nil)
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)
	resp, err := svc.GetResponse(context.Background(), "แนะนำที่เที่ยวหน่อย", "s1")
	require.NoError(t, err)

	turns := svc.History("s1")
	require.Len(t, turns, 1)
	assert.Equal(t, "แนะนำที่เที่ยวหน่อย", turns[0].UserText)
	assert.Equal(t, resp.Message, turns[0].BotText)

	svc.ClearHistory("s1")
	assert.Empty(t, svc.History("s1"))
}

func TestStreamResponse_EmitsChunksAndDone(t *testing.T) {
	places := new(MockPlaceService)
	matched := []types.Place{{ID: 1, Name: "ตลาดน้ำอัมพวา", Category: "ตลาดน้ำ"}}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchHybrid", mock.Anything, mock.Anything, 50).Return(matched, nil)
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)

	var events []types.StreamEvent
	for event := range svc.StreamResponse(context.Background(), "แนะนำที่เที่ยวหน่อย", "s1") {
		events = append(events, event)
	}

	require.NotEmpty(t, events)
	assert.Equal(t, "places", events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, "done", last.Type)
	assert.Equal(t, "simple", last.Source)

	var chunks strings.Builder
	for _, e := range events {
		if e.Type == "chunk" {
			chunks.WriteString(e.Delta)
		}
	}
	assert.Equal(t, last.Message, chunks.String())
}

func TestGetResponse_SameSessionRepeatIsDuplicate(t *testing.T) {
	places := new(MockPlaceService)
	matched := []types.Place{{ID: 9, Name: "ดอนหอยหลอด", Category: "main_attraction"}}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil).Once()
	places.On("SearchHybrid", mock.Anything, "อยากไปดอนหอยหลอด", 50).Return(matched, nil).Once()
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)
	first, err := svc.GetResponse(context.Background(), "อยากไปดอนหอยหลอด", "s1")
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.GetResponse(context.Background(), "อยากไปดอนหอยหลอด", "s1")
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Source+"_cached", second.Source)
	assert.Equal(t, first.Message, second.Message)
	places.AssertExpectations(t)
}

func TestGetResponse_PlaceNamedInMessageRanksFirst(t *testing.T) {
	places := new(MockPlaceService)
	matched := []types.Place{
		{ID: 4, Name: "อาสนวิหารแม่พระบังเกิด", Category: "โบสถ์"},
		{ID: 7, Name: "วัดบางกุ้ง", Category: "วัด"},
	}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchHybrid", mock.Anything, "วัดบางกุ้งไปยังไง", 50).Return(matched, nil)
	places.On("SearchByKeywords", mock.Anything, mock.Anything, 2).Return([]types.Place{}, nil)

	svc := newTestService(places, nil, true)
	resp, err := svc.GetResponse(context.Background(), "วัดบางกุ้งไปยังไง", "s1")

	require.NoError(t, err)
	require.NotEmpty(t, resp.Places)
	assert.Equal(t, "วัดบางกุ้ง", resp.Places[0].Name)
	assert.Contains(t, resp.Message, "วัดบางกุ้ง")
}

func TestGetResponse_CategoryBrowseUsesCuratedList(t *testing.T) {
	places := new(MockPlaceService)
	cafes := []types.Place{
		{ID: 21, Name: "คาเฟ่ริมคลอง", Category: "คาเฟ่"},
		{ID: 22, Name: "บ้านสวนกาแฟ", Category: "คาเฟ่"},
		{ID: 23, Name: "ชานชาลา คาเฟ่", Category: "คาเฟ่"},
	}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("GetAttractionsByType", mock.Anything, "คาเฟ่").Return(cafes, nil)

	svc := newTestService(places, nil, true)
	resp, err := svc.GetResponse(context.Background(), "แนะนำร้านกาแฟ", "s1")

	require.NoError(t, err)
	assert.Equal(t, types.DataStatusFound, resp.DataStatus)
	assert.Len(t, resp.Places, 3)
	places.AssertNotCalled(t, "SearchHybrid", mock.Anything, mock.Anything, mock.Anything)
	places.AssertExpectations(t)
}

func TestGetResponse_NearbyFiltersByTarget(t *testing.T) {
	places := new(MockPlaceService)
	dist := 0.6
	nearby := []types.Place{{ID: 11, Name: "ครัวริมน้ำแม่กลอง", Category: "ร้านอาหาร", DistanceKm: &dist}}
	places.On("GetAllPlaces", mock.Anything, 50).Return([]types.Place{}, nil)
	places.On("SearchNearLocation", mock.Anything, "ร้านอาหาร", 13.4125, 100.0021, 2.0, 6).Return(nearby, nil)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := NewService(
		logger,
		testConfig(),
		places,
		intent.NewRuleClassifier(testLocalTerms),
		intent.NewTopicMatcher(testLocalTerms),
		&stubComposer{loc: &types.LocationQuery{
			Target:    "ร้านอาหาร",
			Reference: "วิทยาลัยเทคนิคสมุทรสงคราม",
			RadiusKm:  2,
		}},
		&stubGeocoder{point: &types.GeoPoint{Latitude: 13.4125, Longitude: 100.0021}},
		nil,
		nil,
		func(ctx context.Context) error { return nil },
	)

	resp, err := svc.GetResponse(context.Background(), "มีร้านอาหารใกล้วิทยาลัยเทคนิคสมุทรสงครามไหม", "s1")

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "ครัวริมน้ำแม่กลอง", resp.Places[0].Name)
	places.AssertExpectations(t)
}

func TestStreamResponse_GreetingShortCircuit(t *testing.T) {
	places := new(MockPlaceService)
	svc := newTestService(places, nil, true)

	var events []types.StreamEvent
	for event := range svc.StreamResponse(context.Background(), "hello", "s1") {
		events = append(events, event)
	}

	require.Len(t, events, 1)
	assert.Equal(t, "done", events[0].Type)
	assert.Equal(t, "greeting", events[0].Source)
}
