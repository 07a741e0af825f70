package common

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Intake IntakeConfig
	OCR    OCRConfig
	Index  IndexConfig
}

// IntakeConfig holds watcher and custody-trail configuration
type IntakeConfig struct {
	VaultRoot    string        // watched inbox directory
	ProcessedDir string        // output root for converted artifacts
	LogFile      string        // chain-of-custody log path
	AppLog       string        // optional application log destination; empty -> stderr
	PollInterval time.Duration // idle sweep period for the watch loop
	Workers      int           // pipeline worker pool size
	QueueSize    int           // intake queue depth
}

// OCRConfig holds recognition-engine configuration
type OCRConfig struct {
	OCRCmd       string // ocrmypdf binary name or absolute path
	TesseractCmd string // tesseract binary handed to the OCR tool
	ImageDPI     int    // recognition resolution for scanned input
}

// IndexConfig holds the processed-artifact index configuration
type IndexConfig struct {
	Path string // sqlite database file
}

// rawConfig mirrors the on-disk YAML schema.
type rawConfig struct {
	VaultRoot    string `yaml:"vault_root"`
	ProcessedDir string `yaml:"processed_dir"`
	LogFile      string `yaml:"log_file"`
	AppLog       string `yaml:"app_log"`
	PollInterval string `yaml:"poll_interval"`
	Workers      int    `yaml:"workers"`
	QueueSize    int    `yaml:"queue_size"`
	OCRCmd       string `yaml:"ocr_cmd"`
	TesseractCmd string `yaml:"tesseract_cmd"`
	ImageDPI     int    `yaml:"image_dpi"`
	IndexPath    string `yaml:"index_path"`
}

// LoadConfig reads the YAML config at path and applies defaults.
// A missing file is not an error; defaults apply. A present but
// malformed one is.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	raw := rawConfig{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read %s", path), err)
	}

	cfg := &Config{
		Intake: IntakeConfig{
			VaultRoot:    orDefault(raw.VaultRoot, "incoming"),
			ProcessedDir: orDefault(raw.ProcessedDir, "processed"),
			LogFile:      orDefault(raw.LogFile, "Chain_of_Custody_Log.csv"),
			AppLog:       raw.AppLog,
			PollInterval: 5 * time.Second,
			Workers:      4,
			QueueSize:    256,
		},
		OCR: OCRConfig{
			OCRCmd:       orDefault(raw.OCRCmd, "ocrmypdf"),
			TesseractCmd: orDefault(raw.TesseractCmd, "tesseract"),
			ImageDPI:     300,
		},
		Index: IndexConfig{
			Path: orDefault(raw.IndexPath, "intake_index.db"),
		},
	}
	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "poll_interval must be a duration (e.g. 5s)", err)
		}
		cfg.Intake.PollInterval = d
	}
	if raw.Workers > 0 {
		cfg.Intake.Workers = raw.Workers
	}
	if raw.QueueSize > 0 {
		cfg.Intake.QueueSize = raw.QueueSize
	}
	if raw.ImageDPI > 0 {
		cfg.OCR.ImageDPI = raw.ImageDPI
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Intake.VaultRoot == "" {
		return NewAppError("CONFIG_ERROR", "vault_root is required", ErrInvalidInput)
	}
	if c.Intake.ProcessedDir == "" {
		return NewAppError("CONFIG_ERROR", "processed_dir is required", ErrInvalidInput)
	}
	if c.Intake.LogFile == "" {
		return NewAppError("CONFIG_ERROR", "log_file is required", ErrInvalidInput)
	}
	if c.Intake.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "poll_interval must be positive", ErrInvalidInput)
	}
	if c.OCR.OCRCmd == "" {
		return NewAppError("CONFIG_ERROR", "ocr_cmd is required", ErrInvalidInput)
	}
	if c.OCR.ImageDPI <= 0 {
		return NewAppError("CONFIG_ERROR", "image_dpi must be positive", ErrInvalidInput)
	}
	return nil
}
