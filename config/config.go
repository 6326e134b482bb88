package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Pprof struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"pprof"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Chatbot  ChatbotConfig  `mapstructure:"chatbot"`
	AI       AIConfig       `mapstructure:"ai"`
	External ExternalConfig `mapstructure:"external"`
}

// ChatbotConfig holds the tuning knobs for query analysis, retrieval and
// response caching.
type ChatbotConfig struct {
	BotName string `mapstructure:"botName"`
	// Province centre used when an external lookup has no better anchor.
	DefaultLatitude  float64 `mapstructure:"defaultLatitude"`
	DefaultLongitude float64 `mapstructure:"defaultLongitude"`
	// LocalKeywords mark a message as in-province even when it names
	// another province.
	LocalKeywords []string `mapstructure:"localKeywords"`

	MatchLimit          int `mapstructure:"matchLimit"`
	DisplayLimit        int `mapstructure:"displayLimit"`
	KeywordDetectLimit  int `mapstructure:"keywordDetectLimit"`
	KeywordResultLimit  int `mapstructure:"keywordResultLimit"`
	PerKeywordLimit     int `mapstructure:"perKeywordLimit"`
	SpecificResultLimit int `mapstructure:"specificResultLimit"`

	DefaultRadiusKm  float64 `mapstructure:"defaultRadiusKm"`
	ProvinceRadiusKm float64 `mapstructure:"provinceRadiusKm"`

	HybridKeywordWeight float64 `mapstructure:"hybridKeywordWeight"`

	ResponseCacheTTL   time.Duration `mapstructure:"responseCacheTTL"`
	DuplicateWindow    time.Duration `mapstructure:"duplicateWindow"`
	TravelDataCacheTTL time.Duration `mapstructure:"travelDataCacheTTL"`

	ConversationMemoryPairs int           `mapstructure:"conversationMemoryPairs"`
	ConversationMemoryTTL   time.Duration `mapstructure:"conversationMemoryTTL"`

	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
}

// AIConfig configures the Gemini client and the embedding model.
type AIConfig struct {
	Model           string  `mapstructure:"model"`
	EmbeddingModel  string  `mapstructure:"embeddingModel"`
	EmbeddingDim    int     `mapstructure:"embeddingDim"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"maxOutputTokens"`
}

// ExternalConfig configures the Google Places fallback and Nominatim.
type ExternalConfig struct {
	GoogleRadiusM   int           `mapstructure:"googleRadiusM"`
	GoogleMaxPlaces int           `mapstructure:"googleMaxPlaces"`
	GoogleTimeout   time.Duration `mapstructure:"googleTimeout"`
	OverallTimeout  time.Duration `mapstructure:"overallTimeout"`
	NominatimURL    string        `mapstructure:"nominatimURL"`
	NominatimAgent  string        `mapstructure:"nominatimAgent"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
