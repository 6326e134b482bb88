package place

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// MockPlaceRepository is a mock implementation of Repository
type MockPlaceRepository struct {
	mock.Mock
}

func (m *MockPlaceRepository) SearchPlaces(ctx context.Context, query string, limit int) ([]types.Place, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) SearchMainAttractions(ctx context.Context, limit int) ([]types.Place, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) GetAttractionsByType(ctx context.Context, category string) ([]types.Place, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) SearchPlacesNearLocation(ctx context.Context, keyword string, lat, lon, radiusKm float64, limit int) ([]types.Place, error) {
	args := m.Called(ctx, keyword, lat, lon, radiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) GetAllPlaces(ctx context.Context, limit int) ([]types.Place, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) SavePlace(ctx context.Context, place types.Place) (int, error) {
	args := m.Called(ctx, place)
	return args.Int(0), args.Error(1)
}

func (m *MockPlaceRepository) FindPlaceCoordinates(ctx context.Context, name string) (*types.GeoPoint, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GeoPoint), args.Error(1)
}

func (m *MockPlaceRepository) GetDatasetSummary(ctx context.Context) (*types.DatasetSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DatasetSummary), args.Error(1)
}

func (m *MockPlaceRepository) SearchPlacesSemantic(ctx context.Context, queryEmbedding []float32, limit int) ([]types.Place, error) {
	args := m.Called(ctx, queryEmbedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) UpdatePlaceEmbedding(ctx context.Context, placeID int, embedding []float32) error {
	args := m.Called(ctx, placeID, embedding)
	return args.Error(0)
}

func (m *MockPlaceRepository) GetPlacesWithoutEmbeddings(ctx context.Context, limit int) ([]types.Place, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func testChatbotConfig() config.ChatbotConfig {
	return config.ChatbotConfig{
		MatchLimit:          50,
		DisplayLimit:        6,
		PerKeywordLimit:     2,
		DefaultRadiusKm:     2,
		HybridKeywordWeight: 0.3,
	}
}

func newTestService(repo Repository) *ServiceImpl {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewServiceImpl(repo, nil, testChatbotConfig(), logger)
}

func TestSearchPlaces_DegradesToEmptyOnError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	mockRepo.On("SearchPlaces", ctx, "วัด", 50).Return(nil, errors.New("connection refused"))

	places, err := service.SearchPlaces(ctx, "วัด", 0)

	require.NoError(t, err)
	assert.Empty(t, places)
	mockRepo.AssertExpectations(t)
}

func TestSearchPlaces_ReturnsMatches(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	expected := []types.Place{
		{ID: 1, Name: "ตลาดน้ำอัมพวา", Category: "ตลาดน้ำ"},
		{ID: 2, Name: "ตลาดร่มหุบ", Category: "ตลาด"},
	}
	mockRepo.On("SearchPlaces", ctx, "ตลาด", 10).Return(expected, nil)

	places, err := service.SearchPlaces(ctx, "ตลาด", 10)

	require.NoError(t, err)
	assert.Equal(t, expected, places)
	mockRepo.AssertExpectations(t)
}

func TestSearchByKeywords_DeduplicatesAcrossKeywords(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	amphawa := types.Place{ID: 1, Name: "ตลาดน้ำอัมพวา"}
	temple := types.Place{ID: 2, Name: "วัดบางกุ้ง"}

	mockRepo.On("SearchPlaces", mock.Anything, "ตลาดน้ำ", 2).Return([]types.Place{amphawa}, nil)
	mockRepo.On("SearchPlaces", mock.Anything, "อัมพวา", 2).Return([]types.Place{amphawa, temple}, nil)

	places, err := service.SearchByKeywords(ctx, []string{"ตลาดน้ำ", "อัมพวา"}, 2)

	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, 1, places[0].ID)
	assert.Equal(t, 2, places[1].ID)
	mockRepo.AssertExpectations(t)
}

func TestSearchByKeywords_SkipsFailedKeyword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	temple := types.Place{ID: 5, Name: "วัดเพชรสมุทรวรวิหาร"}

	mockRepo.On("SearchPlaces", mock.Anything, "โบสถ์", 2).Return(nil, errors.New("timeout"))
	mockRepo.On("SearchPlaces", mock.Anything, "วัด", 2).Return([]types.Place{temple}, nil)

	places, err := service.SearchByKeywords(ctx, []string{"โบสถ์", "วัด"}, 2)

	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "วัดเพชรสมุทรวรวิหาร", places[0].Name)
}

func TestSearchHybrid_KeywordOnlyWhenNoEmbeddings(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	// nil embedding service means the semantic leg contributes nothing
	service := newTestService(mockRepo)

	keywordHits := []types.Place{
		{ID: 1, Name: "ดอนหอยหลอด"},
		{ID: 2, Name: "ตลาดร่มหุบ"},
	}
	mockRepo.On("SearchPlaces", mock.Anything, "ที่เที่ยว", 10).Return(keywordHits, nil)

	places, err := service.SearchHybrid(ctx, "ที่เที่ยว", 10)

	require.NoError(t, err)
	require.Len(t, places, 2)
	for _, p := range places {
		require.NotNil(t, p.CombinedScore)
		assert.InDelta(t, 0.3, *p.CombinedScore, 1e-9)
	}
}

func TestSearchHybrid_EqualScoresKeepRetrievalOrder(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	// every keyword hit scores the same; the merged output must keep the
	// repository ordering on every call
	keywordHits := []types.Place{
		{ID: 7, Name: "วัดบางกุ้ง"},
		{ID: 2, Name: "ตลาดร่มหุบ"},
		{ID: 9, Name: "ดอนหอยหลอด"},
		{ID: 1, Name: "ตลาดน้ำอัมพวา"},
		{ID: 5, Name: "วัดเพชรสมุทรวรวิหาร"},
	}
	mockRepo.On("SearchPlaces", mock.Anything, "เที่ยว", 10).Return(keywordHits, nil)

	for run := 0; run < 5; run++ {
		places, err := service.SearchHybrid(ctx, "เที่ยว", 10)
		require.NoError(t, err)
		require.Len(t, places, len(keywordHits))
		for i, expected := range keywordHits {
			assert.Equal(t, expected.ID, places[i].ID)
		}
	}
}

func TestSearchNearLocation_AppliesDefaultRadius(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	dist := 0.85
	nearby := []types.Place{{ID: 3, Name: "คาเฟ่ริมคลอง", DistanceKm: &dist}}
	mockRepo.On("SearchPlacesNearLocation", ctx, "", 13.4256, 99.9556, 2.0, 50).Return(nearby, nil)

	places, err := service.SearchNearLocation(ctx, "", 13.4256, 99.9556, 0, 0)

	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "คาเฟ่ริมคลอง", places[0].Name)
	mockRepo.AssertExpectations(t)
}

func TestSearchNearLocation_PassesKeywordThrough(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	dist := 1.2
	nearby := []types.Place{{ID: 9, Name: "ครัวริมน้ำ", Category: "ร้านอาหาร", DistanceKm: &dist}}
	mockRepo.On("SearchPlacesNearLocation", ctx, "ร้านอาหาร", 13.4125, 100.0021, 2.0, 6).Return(nearby, nil)

	places, err := service.SearchNearLocation(ctx, "ร้านอาหาร", 13.4125, 100.0021, 2.0, 6)

	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "ครัวริมน้ำ", places[0].Name)
	mockRepo.AssertExpectations(t)
}

func TestGetAttractionsByType_DegradesToEmptyOnError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetAttractionsByType", ctx, "คาเฟ่").Return(nil, errors.New("db down"))

	places, err := service.GetAttractionsByType(ctx, "คาเฟ่")

	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSavePlace_PropagatesRepositoryError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPlaceRepository)
	service := newTestService(mockRepo)

	p := types.Place{Name: "ร้านใหม่"}
	mockRepo.On("SavePlace", ctx, p).Return(0, errors.New("constraint violation"))

	_, err := service.SavePlace(ctx, p)

	assert.Error(t, err)
}
