package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"tcm_diagnosis.db"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Inferenz-Pipeline
	EncodingMode        string        `envconfig:"ENCODING_MODE" default:"scalar"`
	TokenizerMode       string        `envconfig:"TOKENIZER_MODE" default:"auto"`
	TreeMaxDepth        int           `envconfig:"TREE_MAX_DEPTH" default:"0"`
	TreeMinSamplesSplit int           `envconfig:"TREE_MIN_SAMPLES_SPLIT" default:"2"`
	TrainingTimeout     time.Duration `envconfig:"TRAINING_TIMEOUT" default:"10s"`
	ModelCacheTTL       time.Duration `envconfig:"MODEL_CACHE_TTL" default:"10m"`

	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`

	// Statistik-Export nach S3, deaktiviert ohne Cron-Ausdruck
	ExportCronSchedule string `envconfig:"EXPORT_CRON_SCHEDULE"`
	ExportKeep         int    `envconfig:"EXPORT_KEEP" default:"14"`

	// cmd/backup
	BackupKeep int `envconfig:"BACKUP_KEEP" default:"4"`

	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION"`
	S3Bucket string `envconfig:"S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// S3Enabled meldet, ob alle S3-Zugangsdaten gesetzt sind.
func (c *Config) S3Enabled() bool {
	return c.S3Key != "" && c.S3Secret != "" && c.S3URL != "" && c.S3Region != "" && c.S3Bucket != ""
}

// Validate prüft Aufzählungswerte und Abhängigkeiten zwischen Feldern.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required for postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.EncodingMode {
	case "scalar", "onehot":
	default:
		return fmt.Errorf("unknown ENCODING_MODE %q", c.EncodingMode)
	}
	switch c.TokenizerMode {
	case "auto", "delimited", "segment":
	default:
		return fmt.Errorf("unknown TOKENIZER_MODE %q", c.TokenizerMode)
	}
	if c.TreeMaxDepth < 0 {
		return fmt.Errorf("TREE_MAX_DEPTH must not be negative")
	}
	if c.TreeMinSamplesSplit < 2 {
		return fmt.Errorf("TREE_MIN_SAMPLES_SPLIT must be at least 2")
	}
	if c.ExportCronSchedule != "" && !c.S3Enabled() {
		return fmt.Errorf("EXPORT_CRON_SCHEDULE requires S3 credentials")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
