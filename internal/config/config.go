package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `yaml:"mode" validate:"oneof=offline online"`
	HTTPAddr string `yaml:"httpAddr" validate:"required"`

	DBDriver string `yaml:"dbDriver" validate:"oneof=sqlite postgres pgx pg"`
	DBDSN    string `yaml:"dbDsn"`

	// AuthSecret signs access tokens. It has no default and must come from
	// the file or AUTH_HMAC_SECRET.
	AuthSecret string        `yaml:"authSecret" validate:"required"`
	TokenTTL   time.Duration `yaml:"tokenTtl" validate:"gt=0"`

	// AllowClaimRole lets a token's role stand in when the user row is missing.
	AllowClaimRole bool `yaml:"allowClaimRole"`

	AdminUser     string `yaml:"adminUser"`
	AdminPassHash string `yaml:"adminPassHash"` // bcrypt

	CORSOrigins []string `yaml:"corsOrigins"`

	ScoreScale     float64       `yaml:"scoreScale" validate:"gt=0"`
	ResubmitPolicy string        `yaml:"resubmitPolicy" validate:"oneof=append reject overwrite"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gt=0"`
}

func defaults() Config {
	return Config{
		Mode:           ModeOffline,
		HTTPAddr:       ":8080",
		DBDriver:       "sqlite",
		TokenTTL:       8 * time.Hour,
		AdminUser:      "admin",
		CORSOrigins:    []string{"http://localhost:3000"},
		ScoreScale:     10,
		ResubmitPolicy: "append",
		RequestTimeout: 30 * time.Second,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then the environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := overlayEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.ResubmitPolicy = strings.ToLower(strings.TrimSpace(cfg.ResubmitPolicy))

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Config{}, fmt.Errorf("config: validate: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
		return Config{}, fmt.Errorf("config: %s", strings.Join(msgs, "; "))
	}
	return cfg, nil
}

// FromEnv is Load without a config file.
func FromEnv() (Config, error) { return Load("") }

func overlayEnv(c *Config) error {
	c.Mode = Mode(envOr("MODE", string(c.Mode)))
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.AuthSecret = envOr("AUTH_HMAC_SECRET", c.AuthSecret)
	c.AllowClaimRole = envBool("ALLOW_CLAIM_ROLE", c.AllowClaimRole)
	c.AdminUser = envOr("ADMIN_USER", c.AdminUser)
	c.AdminPassHash = envOr("ADMIN_PASS_HASH", c.AdminPassHash)
	c.CORSOrigins = csvOr("CORS_ORIGINS", c.CORSOrigins)
	c.ResubmitPolicy = envOr("RESUBMIT_POLICY", c.ResubmitPolicy)

	var err error
	if c.TokenTTL, err = envDuration("TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if v := os.Getenv("SCORE_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: SCORE_SCALE: %w", err)
		}
		c.ScoreScale = f
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return d, nil
}
func csvOr(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
