package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Match    MatchConfig    `yaml:"match"`
	SMS      SMSConfig      `yaml:"sms"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	WorkerCount        int     `yaml:"worker_count"`
}

type MatchConfig struct {
	// MatchThreshold is the maximum Euclidean distance for a positive match.
	MatchThreshold float64 `yaml:"match_threshold"`
	// LowConfidenceThreshold flags matches whose accuracy needs manual review.
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
}

type SMSConfig struct {
	GatewayURL  string        `yaml:"gateway_url"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	// GeocodeURL is the reverse-geocoding endpoint used to enrich locations.
	GeocodeURL string `yaml:"geocode_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 4
	}
	if cfg.Match.MatchThreshold == 0 {
		cfg.Match.MatchThreshold = 0.4
	}
	if cfg.Match.LowConfidenceThreshold == 0 {
		cfg.Match.LowConfidenceThreshold = 0.8
	}
	if cfg.SMS.GatewayURL == "" {
		cfg.SMS.GatewayURL = "https://tabaarakict.so/SendSMS.aspx"
	}
	if cfg.SMS.SendTimeout == 0 {
		cfg.SMS.SendTimeout = 10 * time.Second
	}
	if cfg.SMS.MaxRetries == 0 {
		cfg.SMS.MaxRetries = 2
	}
	if cfg.SMS.GeocodeURL == "" {
		cfg.SMS.GeocodeURL = "https://nominatim.openstreetmap.org/reverse"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MPF_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MPF_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("MPF_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("MPF_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("MPF_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("MPF_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("MPF_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MPF_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("MPF_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("MPF_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("MPF_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("MPF_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("MPF_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("MPF_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
	if v := os.Getenv("MPF_SMS_GATEWAY_URL"); v != "" {
		cfg.SMS.GatewayURL = v
	}
	if v := os.Getenv("MPF_SMS_USERNAME"); v != "" {
		cfg.SMS.Username = v
	}
	if v := os.Getenv("MPF_SMS_PASSWORD"); v != "" {
		cfg.SMS.Password = v
	}
}
