package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"memory://"`
	DBMigrate   bool   `envconfig:"DB_MIGRATE" default:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	// Kosong = jalan tanpa Redis / Kafka.
	RedisAddr    string   `envconfig:"REDIS_ADDR"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	ServiceName     string        `envconfig:"SERVICE_NAME" default:"sepatuku-api"`
	SeedCatalog     bool          `envconfig:"SEED_CATALOG" default:"true"`
	QRISRendererURL string        `envconfig:"QRIS_RENDERER_URL" default:"https://api.qrserver.com/v1/create-qr-code/"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	NotifierGroup   string `envconfig:"NOTIFIER_GROUP" default:"notifier-svc"`
	NotifierWorkers int    `envconfig:"NOTIFIER_WORKERS" default:"8"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, errors.Wrap(err, "load config")
	}
	c.KafkaBrokers = splitCSV(c.KafkaBrokers)
	if c.NotifierWorkers < 1 {
		c.NotifierWorkers = 1
	}
	return c, nil
}

func (c Config) HTTPAddr() string { return ":" + c.Port }

func splitCSV(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
