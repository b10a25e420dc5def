package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`

	ModelPath          string   `yaml:"model_path"`
	ModelConfigPath    string   `yaml:"model_config_path"`
	Classes            []string `yaml:"classes"`
	DetectionThreshold float64  `yaml:"detection_threshold"`
	ProcessingWorkers  int      `yaml:"processing_workers"` // Liczba detektorów, każdy z własną siecią
	StreamFPS          float64  `yaml:"stream_fps"`         // Limit klatek na sekundę na połączenie

	CaptureDirectory    string `yaml:"capture_dir"`
	DatasetDirectory    string `yaml:"dataset_dir"`
	RejectDirectory     string `yaml:"reject_dir"`
	SplitDirectory      string `yaml:"split_dir"`
	QuarantineDirectory string `yaml:"quarantine_dir"`
	DatabasePath        string `yaml:"db_path"` // Pusty = indeks w pamięci
	LogDirectory        string `yaml:"log_dir"`

	SplitRatio          float64 `yaml:"split_ratio"`
	SplitSeed           int64   `yaml:"split_seed"`           // 0 = losowy
	MaintenanceSchedule string  `yaml:"maintenance_schedule"` // Wyrażenie cron, pusty = wyłączone
}

// Load reads .env (if present), an optional YAML file named by CONFIG_FILE,
// and finally environment variables, which win over both.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env: %v", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Fatalf("Error parsing %s: %v", path, err)
		}
		log.Printf("Loaded config from %s", path)
	}

	cfg.applyEnv()
	return cfg
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Port:                8000,
		ModelPath:           filepath.Join(".", "models", "best.onnx"),
		Classes:             []string{"display", "button"},
		DetectionThreshold:  0.4,
		ProcessingWorkers:   2,
		StreamFPS:           5,
		CaptureDirectory:    filepath.Join(".", "captures"),
		DatasetDirectory:    filepath.Join(".", "dataset_full"),
		RejectDirectory:     filepath.Join(".", "delete"),
		SplitDirectory:      filepath.Join(".", "dataset"),
		QuarantineDirectory: filepath.Join(".", "removed"),
		DatabasePath:        filepath.Join(".", "data", "labelstation.db"),
		LogDirectory:        filepath.Join(".", "logs"),
		SplitRatio:          0.8,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.Password = getEnv("PASSWORD", c.Password)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.ModelConfigPath = getEnv("MODEL_CONFIG_PATH", c.ModelConfigPath)
	c.Classes = getEnvAsList("CLASSES", c.Classes)
	c.DetectionThreshold = getEnvAsFloat("DETECTION_THRESHOLD", c.DetectionThreshold)
	c.ProcessingWorkers = getEnvAsInt("PROCESSING_WORKERS", c.ProcessingWorkers)
	c.StreamFPS = getEnvAsFloat("STREAM_FPS", c.StreamFPS)
	c.CaptureDirectory = getEnv("CAPTURE_DIR", c.CaptureDirectory)
	c.DatasetDirectory = getEnv("DATASET_DIR", c.DatasetDirectory)
	c.RejectDirectory = getEnv("REJECT_DIR", c.RejectDirectory)
	c.SplitDirectory = getEnv("SPLIT_DIR", c.SplitDirectory)
	c.QuarantineDirectory = getEnv("QUARANTINE_DIR", c.QuarantineDirectory)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.SplitRatio = getEnvAsFloat("SPLIT_RATIO", c.SplitRatio)
	c.SplitSeed = getEnvAsInt64("SPLIT_SEED", c.SplitSeed)
	c.MaintenanceSchedule = getEnv("MAINTENANCE_SCHEDULE", c.MaintenanceSchedule)

	// DB_PATH may be set to an empty value on purpose.
	if value, ok := os.LookupEnv("DB_PATH"); ok {
		c.DatabasePath = value
	}
}

// Validate reports settings that would make the server unusable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SplitRatio <= 0 || c.SplitRatio >= 1 {
		return fmt.Errorf("split ratio must be in (0,1), got %v", c.SplitRatio)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one class name is required")
	}
	if c.ProcessingWorkers < 1 {
		return fmt.Errorf("processing workers must be positive, got %d", c.ProcessingWorkers)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
