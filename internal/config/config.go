package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/i474232898/livability/internal/dataset"
	"github.com/i474232898/livability/internal/oracle"
)

// AppConfig holds the full application configuration. Keys are flat so that
// each one maps to an upper-case environment variable of the same name.
type AppConfig struct {
	Port string `mapstructure:"port" validate:"required"`

	HTTPTimeout     time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	GeocoderTimeout time.Duration `mapstructure:"geocoder_timeout" validate:"gte=0"`
	JoinerTimeout   time.Duration `mapstructure:"joiner_timeout" validate:"gte=0"`
	OracleTimeout   time.Duration `mapstructure:"oracle_timeout" validate:"gte=0"`

	MatchMaxMiles       float64 `mapstructure:"match_max_miles" validate:"gt=0"`
	HospitalRadiusMiles float64 `mapstructure:"hospital_radius_miles" validate:"gt=0"`

	// DataSource is a local directory or an s3://bucket/prefix URL.
	DataSource         string        `mapstructure:"data_source" validate:"required"`
	ZipFile            string        `mapstructure:"zip_file" validate:"required"`
	OffensesFile       string        `mapstructure:"offenses_file" validate:"required"`
	LawEnforcementFile string        `mapstructure:"law_enforcement_file" validate:"required"`
	EnvironmentFile    string        `mapstructure:"environment_file" validate:"required"`
	SchoolsFile        string        `mapstructure:"schools_file" validate:"required"`
	HospitalsFile      string        `mapstructure:"hospitals_file" validate:"required"`
	HospitalsEncoding  string        `mapstructure:"hospitals_encoding"`
	ReloadInterval     time.Duration `mapstructure:"reload_interval" validate:"gte=0"`
	StoreMaxHistory    int           `mapstructure:"store_max_history" validate:"gte=0"`
	StoreMaxAge        time.Duration `mapstructure:"store_max_age" validate:"gte=0"`

	AWSRegion          string `mapstructure:"aws_region"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`

	NominatimURL       string  `mapstructure:"nominatim_url" validate:"required,url"`
	NominatimUserAgent string  `mapstructure:"nominatim_user_agent" validate:"required"`
	NominatimRate      float64 `mapstructure:"nominatim_rate" validate:"gte=0"`
	GoogleGeocodingKey string  `mapstructure:"google_geocoding_api_key"`

	WalkScoreAPIKey string `mapstructure:"walk_score_api_key"`
	WalkScoreURL    string `mapstructure:"walk_score_url" validate:"required,url"`

	OracleProvider   string `mapstructure:"oracle_provider" validate:"oneof=groq anthropic gemini"`
	GroqAPIKey       string `mapstructure:"groq_api_key"`
	GroqURL          string `mapstructure:"groq_url" validate:"required,url"`
	GroqModel        string `mapstructure:"groq_model" validate:"required"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	AnthropicModel   string `mapstructure:"anthropic_model"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	GeminiModel      string `mapstructure:"gemini_model"`
	SystemPromptPath string `mapstructure:"system_prompt_path"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json console"`
}

// Load reads configuration from an optional .env file, an optional
// livability.yaml and the environment, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("livability")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv picks it up on Unmarshal.
	v.SetDefault("port", "8080")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("geocoder_timeout", "10s")
	v.SetDefault("joiner_timeout", "10s")
	v.SetDefault("oracle_timeout", "60s")
	v.SetDefault("match_max_miles", 10.0)
	v.SetDefault("hospital_radius_miles", 20.0)
	v.SetDefault("data_source", "./data")
	v.SetDefault("zip_file", dataset.DefaultFiles.Zips.Name)
	v.SetDefault("offenses_file", dataset.DefaultFiles.Offenses.Name)
	v.SetDefault("law_enforcement_file", dataset.DefaultFiles.LawEnforcement.Name)
	v.SetDefault("environment_file", dataset.DefaultFiles.Environment.Name)
	v.SetDefault("schools_file", dataset.DefaultFiles.Schools.Name)
	v.SetDefault("hospitals_file", dataset.DefaultFiles.Hospitals.Name)
	v.SetDefault("hospitals_encoding", dataset.DefaultFiles.Hospitals.Encoding)
	v.SetDefault("reload_interval", "0s")
	v.SetDefault("store_max_history", 20)
	v.SetDefault("store_max_age", "168h")
	v.SetDefault("aws_region", "us-west-2")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim_user_agent", "livability-score/1.0")
	v.SetDefault("nominatim_rate", 0.0)
	v.SetDefault("google_geocoding_api_key", "")
	v.SetDefault("walk_score_api_key", "")
	v.SetDefault("walk_score_url", "https://api.walkscore.com/score")
	v.SetDefault("oracle_provider", oracle.ProviderGroq)
	v.SetDefault("groq_api_key", "")
	v.SetDefault("groq_url", oracle.DefaultGroqURL)
	v.SetDefault("groq_model", oracle.DefaultGroqModel)
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_model", oracle.DefaultAnthropicModel)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", oracle.DefaultGeminiModel)
	v.SetDefault("system_prompt_path", "system_context.txt")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: validate")
	}

	return &cfg, nil
}

// DatasetFiles returns the configured reference table layout.
func (c *AppConfig) DatasetFiles() dataset.Files {
	return dataset.Files{
		Zips:           dataset.TableSpec{Name: c.ZipFile},
		Offenses:       dataset.TableSpec{Name: c.OffensesFile},
		LawEnforcement: dataset.TableSpec{Name: c.LawEnforcementFile},
		Environment:    dataset.TableSpec{Name: c.EnvironmentFile},
		Schools:        dataset.TableSpec{Name: c.SchoolsFile},
		Hospitals:      dataset.TableSpec{Name: c.HospitalsFile, Encoding: c.HospitalsEncoding},
	}
}

// S3 returns the S3 settings for an s3:// data source.
func (c *AppConfig) S3() dataset.S3Config {
	return dataset.S3Config{
		Region:    c.AWSRegion,
		AccessKey: c.AWSAccessKeyID,
		SecretKey: c.AWSSecretAccessKey,
	}
}

// Oracle returns the scoring oracle settings.
func (c *AppConfig) Oracle() oracle.Config {
	return oracle.Config{
		Provider:       c.OracleProvider,
		GroqURL:        c.GroqURL,
		GroqKey:        c.GroqAPIKey,
		GroqModel:      c.GroqModel,
		AnthropicKey:   c.AnthropicAPIKey,
		AnthropicModel: c.AnthropicModel,
		GeminiKey:      c.GeminiAPIKey,
		GeminiModel:    c.GeminiModel,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(level, format string) error {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
