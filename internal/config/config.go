package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Identity IdentityConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// DBConfig is optional: an empty Host means profiles and audit stay in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for a hosted database.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is only needed when verifications are capped.
type RedisConfig struct {
	Host string
	Port int
}

type IdentityConfig struct {
	// URL is the base URL of the hosted identity provider.
	URL      string
	APIKey   string
	UserPath string

	RequiredTimeout time.Duration
	OptionalTimeout time.Duration

	// VerifyConcurrency caps in-flight provider calls across instances; 0 disables the cap.
	VerifyConcurrency int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Identity.URL = strings.TrimSpace(os.Getenv("IDENTITY_URL"))
	c.Identity.APIKey = os.Getenv("IDENTITY_API_KEY")
	c.Identity.UserPath = strings.TrimSpace(os.Getenv("IDENTITY_USER_PATH"))
	{
		d, err := optionalDuration("AUTH_REQUIRED_TIMEOUT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Identity.RequiredTimeout = d
	}
	{
		d, err := optionalDuration("AUTH_OPTIONAL_TIMEOUT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Identity.OptionalTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_VERIFY_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("AUTH_VERIFY_CONCURRENCY must be an integer, got %q", v))
		}
		c.Identity.VerifyConcurrency = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.HasDatabase() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Local-friendly default; production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Identity.URL == "" {
		errs = append(errs, errors.New("IDENTITY_URL is required"))
	} else if u, err := url.Parse(c.Identity.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("IDENTITY_URL must be an absolute url, got %q", c.Identity.URL))
	} else if c.IsProduction() && u.Scheme != "https" {
		errs = append(errs, errors.New("IDENTITY_URL must use https in production"))
	}
	if c.IsProduction() && c.Identity.APIKey == "" {
		errs = append(errs, errors.New("IDENTITY_API_KEY is required in production"))
	}
	if c.Identity.UserPath == "" {
		c.Identity.UserPath = "/auth/v1/user"
	}

	if c.Identity.RequiredTimeout <= 0 {
		c.Identity.RequiredTimeout = 5 * time.Second
	}
	if c.Identity.OptionalTimeout <= 0 {
		c.Identity.OptionalTimeout = 3 * time.Second
	}
	if c.Identity.VerifyConcurrency < 0 {
		errs = append(errs, fmt.Errorf("AUTH_VERIFY_CONCURRENCY must be >= 0, got %d", c.Identity.VerifyConcurrency))
	}
	if c.Identity.VerifyConcurrency > 0 {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when AUTH_VERIFY_CONCURRENCY is set"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HasDatabase() bool {
	return c.DB.Host != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
