package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Minio    MinioConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	PayPal   PayPalConfig   `mapstructure:"paypal"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Rate     RateConfig     `mapstructure:"rate"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// SiteURL is the public origin of the web front end. It is the CORS
	// allow-list when cors_origins is not set.
	SiteURL     string   `mapstructure:"site_url"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver selects the SQL driver: "postgres" or "mysql".
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	VisionModel string `mapstructure:"vision_model"`
}

type MinioConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Enabled    bool   `mapstructure:"enabled"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	AdminSecret string `mapstructure:"admin_secret"`
	DevMode     bool   `mapstructure:"dev_mode"`
}

type PayPalConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type CacheConfig struct {
	Capacity   int `mapstructure:"capacity"`
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type RateConfig struct {
	Capacity   int `mapstructure:"capacity"`
	RefillRate int `mapstructure:"refill_rate"`
}

// Load reads configuration from a YAML file, with environment variables
// taking precedence for secrets.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.enabled", false)
	v.SetDefault("cache.capacity", 100)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("rate.capacity", 30)
	v.SetDefault("rate.refill_rate", 1)

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Secrets come from the environment in deployment.
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		cfg.OpenAI.APIKey = apiKey
	}
	if secret := v.GetString("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if secret := v.GetString("ADMIN_SECRET"); secret != "" {
		cfg.Auth.AdminSecret = secret
	}
	if secret := v.GetString("PAYPAL_WEBHOOK_SECRET"); secret != "" {
		cfg.PayPal.WebhookSecret = secret
	}
	if pass := v.GetString("DATABASE_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on a config the server cannot run with.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("config: openai api key is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth jwt secret is required")
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("config: database name is required")
	}
	if c.Server.SiteURL == "" {
		return fmt.Errorf("config: server site url is required")
	}
	return nil
}

// CORSAllowedOrigins returns the configured CORS allow-list, defaulting to
// the site origin.
func (c *Config) CORSAllowedOrigins() []string {
	if len(c.Server.CORSOrigins) > 0 {
		return c.Server.CORSOrigins
	}
	return []string{c.Server.SiteURL}
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// MySQLDSN builds the go-sql-driver connection string.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User, c.Database.Password,
		c.Database.Host, c.Database.Port, c.Database.Name)
}
