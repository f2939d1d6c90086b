package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validYAML = `
server:
  port: 9090
  site_url: https://app.creditlens.example
database:
  driver: postgres
  host: db.internal
  port: 5433
  user: app
  password: filepass
  name: creditlens
openai:
  api_key: sk-test
auth:
  jwt_secret: file-jwt
`

func TestLoadValidFile(t *testing.T) {
	// Blank out deployment secrets so file values win.
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "creditlens", cfg.Database.Name)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "file-jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://app.creditlens.example", cfg.Server.SiteURL)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.VisionModel)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, 30, cfg.Rate.Capacity)
	assert.Equal(t, 1, cfg.Rate.RefillRate)
	assert.False(t, cfg.Minio.Enabled)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("JWT_SECRET", "env-jwt")
	t.Setenv("DATABASE_PASSWORD", "env-pass")

	cfg, err := Load(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "env-jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "env-pass", cfg.Database.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{SiteURL: "https://app.creditlens.example"},
			Database: DatabaseConfig{Driver: "postgres", Name: "creditlens"},
			OpenAI:   OpenAIConfig{APIKey: "sk-test"},
			Auth:     AuthConfig{JWTSecret: "secret"},
		}
	}

	assert.NoError(t, base().Validate())

	t.Run("missing api key", func(t *testing.T) {
		c := base()
		c.OpenAI.APIKey = ""
		assert.ErrorContains(t, c.Validate(), "api key")
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		c := base()
		c.Auth.JWTSecret = ""
		assert.ErrorContains(t, c.Validate(), "jwt secret")
	})

	t.Run("unsupported driver", func(t *testing.T) {
		c := base()
		c.Database.Driver = "sqlite"
		assert.ErrorContains(t, c.Validate(), "driver")
	})

	t.Run("mysql driver accepted", func(t *testing.T) {
		c := base()
		c.Database.Driver = "mysql"
		assert.NoError(t, c.Validate())
	})

	t.Run("missing database name", func(t *testing.T) {
		c := base()
		c.Database.Name = ""
		assert.ErrorContains(t, c.Validate(), "database name")
	})

	t.Run("missing site url", func(t *testing.T) {
		c := base()
		c.Server.SiteURL = ""
		assert.ErrorContains(t, c.Validate(), "site url")
	})
}

func TestCORSAllowedOrigins(t *testing.T) {
	c := &Config{Server: ServerConfig{SiteURL: "https://app.creditlens.example"}}
	assert.Equal(t, []string{"https://app.creditlens.example"}, c.CORSAllowedOrigins())

	c.Server.CORSOrigins = []string{"https://a.example", "https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSAllowedOrigins())
}

func TestPostgresDSN(t *testing.T) {
	c := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "pw",
		Name: "creditlens", SSLMode: "require",
	}}
	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=creditlens sslmode=require",
		c.PostgresDSN())
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{Database: DatabaseConfig{
		Host: "db", Port: 3306, User: "app", Password: "pw", Name: "creditlens",
	}}
	assert.Equal(t,
		"app:pw@tcp(db:3306)/creditlens?parseTime=true&charset=utf8mb4&loc=UTC",
		c.MySQLDSN())
}
