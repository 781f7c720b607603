package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// ExtractionConfig holds the arbitration policy and raw-output settings.
type ExtractionConfig struct {
	EnableOCR             bool    `mapstructure:"enable_ocr" yaml:"enable_ocr"`
	RequireDualExtraction bool    `mapstructure:"require_dual_extraction" yaml:"require_dual_extraction"`
	MinConfidenceScore    float64 `mapstructure:"min_confidence_score" yaml:"min_confidence_score"`
	AgreementThreshold    float64 `mapstructure:"agreement_threshold" yaml:"agreement_threshold"`
	AgreementTolerance    float64 `mapstructure:"agreement_tolerance" yaml:"agreement_tolerance"`
	SaveRawData           bool    `mapstructure:"save_raw_data" yaml:"save_raw_data"`
	RawDataPath           string  `mapstructure:"raw_data_path" yaml:"raw_data_path"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext         string       `mapstructure:"pdftotext" yaml:"pdftotext"`
	Pdftoppm          string       `mapstructure:"pdftoppm" yaml:"pdftoppm"`
	Tesseract         string       `mapstructure:"tesseract" yaml:"tesseract"`
	Lang              string       `mapstructure:"lang" yaml:"lang"`
	DPI               int          `mapstructure:"dpi" yaml:"dpi"`
	MaxPages          int          `mapstructure:"max_pages" yaml:"max_pages"`
	TessdataDir       string       `mapstructure:"tessdata_dir" yaml:"tessdata_dir"`
	PSM               int          `mapstructure:"psm" yaml:"psm"`
	OEM               int          `mapstructure:"oem" yaml:"oem"`
	TSVConfidence     bool         `mapstructure:"tsv_confidence" yaml:"tsv_confidence"`
	Engine            string       `mapstructure:"engine" yaml:"engine"`
	PrimaryCopyRegion RegionConfig `mapstructure:"primary_copy_region" yaml:"primary_copy_region"`
}

// RegionConfig is a page sub-rectangle in fractions of width/height.
type RegionConfig struct {
	Left   float64 `mapstructure:"left" yaml:"left"`
	Top    float64 `mapstructure:"top" yaml:"top"`
	Right  float64 `mapstructure:"right" yaml:"right"`
	Bottom float64 `mapstructure:"bottom" yaml:"bottom"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	BusyRetries     uint          `mapstructure:"busy_retries" yaml:"busy_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// BatchConfig sizes the worker queue used by batch and watch.
type BatchConfig struct {
	Workers   int           `mapstructure:"workers" yaml:"workers"`
	QueueSize int           `mapstructure:"queue_size" yaml:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("extraction.enable_ocr", true)
	v.SetDefault("extraction.require_dual_extraction", true)
	v.SetDefault("extraction.min_confidence_score", 0.8)
	v.SetDefault("extraction.agreement_threshold", 0.8)
	v.SetDefault("extraction.agreement_tolerance", 0.05)
	v.SetDefault("extraction.save_raw_data", false)
	v.SetDefault("extraction.raw_data_path", "data/raw/w2")

	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.psm", 0)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.tsv_confidence", false)
	v.SetDefault("ocr.engine", EngineTesseract)
	v.SetDefault("ocr.primary_copy_region.left", 0.0)
	v.SetDefault("ocr.primary_copy_region.top", 0.0)
	v.SetDefault("ocr.primary_copy_region.right", 0.5)
	v.SetDefault("ocr.primary_copy_region.bottom", 0.5)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "moneybin.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.busy_retries", 5)
	v.SetDefault("database.retry_delay", 200*time.Millisecond)

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.queue_size", 64)
	v.SetDefault("batch.timeout", 3*time.Minute)
	v.SetDefault("batch.debounce", 500*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads defaults, an optional .env file, an optional YAML config file
// and MONEYBIN_* environment variables (e.g. MONEYBIN_EXTRACTION_ENABLE_OCR).
func LoadConfig(cfgFile string) (*Config, error) {
	// .env is optional; real environment variables still win
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MONEYBIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("moneybin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.moneybin")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, NewAppError(CodeConfig, "error reading config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "failed to unmarshal config", err)
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	e := c.Extraction
	if e.MinConfidenceScore < 0 || e.MinConfidenceScore > 1 {
		return NewAppError(CodeConfig, "extraction.min_confidence_score must be within [0,1]", ErrInvalidInput)
	}
	if e.AgreementThreshold < 0 || e.AgreementThreshold > 1 {
		return NewAppError(CodeConfig, "extraction.agreement_threshold must be within [0,1]", ErrInvalidInput)
	}
	if e.AgreementTolerance <= 0 || e.AgreementTolerance >= 1 {
		return NewAppError(CodeConfig, "extraction.agreement_tolerance must be within (0,1)", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError(CodeConfig, "ocr.dpi must be positive", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case EngineTesseract, EngineGosseract:
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown ocr.engine %q", c.OCR.Engine), ErrInvalidInput)
	}
	r := c.OCR.PrimaryCopyRegion
	if r.Left < 0 || r.Top < 0 || r.Right > 1 || r.Bottom > 1 || r.Left >= r.Right || r.Top >= r.Bottom {
		return NewAppError(CodeConfig, "ocr.primary_copy_region must be a non-empty rectangle within the page", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown database.driver %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "database.dsn is required", ErrInvalidInput)
	}
	return nil
}
