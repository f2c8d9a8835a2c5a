package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/certtrack/certtrack/pkg/cryptox"
	"github.com/certtrack/certtrack/pkg/jwtx"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"

	// DevFallbackSecret is the placeholder secret shipped in old example
	// configs. It is public knowledge, so only dev accepts it.
	DevFallbackSecret = "your-secret-key-change-in-production"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrSecretMissing = errors.New("JWT_SECRET is required outside development")
	ErrSecretShort   = fmt.Errorf("JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	ErrSecretDefault = errors.New("JWT_SECRET is the published development fallback")
)

type Config struct {
	Env       string `koanf:"env"`        // Environment (dev, test, staging, prod) (default: dev)
	LogLevel  string `koanf:"log_level"`  // Log level (debug, info, warn, error) (default: info)
	LogFormat string `koanf:"log_format"` // Log format (json, text) (default: json)
	Port      int    `koanf:"port"`       // HTTP server port (default: 5000)

	StoreDriver   string `koanf:"store_driver"`  // Credential store: mongo or sqlite (default: mongo)
	MongoURI      string `koanf:"mongodb_uri"`   // MongoDB connection string
	MongoDatabase string `koanf:"db_name"`       // MongoDB database name (default: certtrack)
	DatabaseFile  string `koanf:"database_file"` // SQLite database file (default: ./certtrack.db)
	PepperFile    string `koanf:"pepper_file"`   // Path to the password pepper (default: ./pepper)
	JWTSecret     string `koanf:"jwt_secret"`    // HS256 session signing secret
	Issuer        string `koanf:"issuer"`        // iss claim on session tokens (default: certtrack-auth)
	CORSOrigins   string `koanf:"cors_origins"`  // Comma-separated browser origins allowed to send cookies

	SessionTTL          time.Duration `koanf:"session_ttl"`           // Session lifetime (default: 168h)
	ShutdownGracePeriod time.Duration `koanf:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	StoreConnectTimeout time.Duration `koanf:"store_connect_timeout"` // Startup connection budget, retries included (default: 30s)
	StoreHealthInterval time.Duration `koanf:"store_health_interval"` // Store monitor ping interval (default: 30s)
}

// LoadConfig reads the environment on top of built-in defaults.
func LoadConfig() Config {
	return Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 5000),
		StoreDriver:         getEnvOrDefault("AUTH_STORE_DRIVER", DriverMongo),
		MongoURI:            getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnvOrDefault("DB_NAME", "certtrack"),
		DatabaseFile:        getEnvOrDefault("AUTH_DATABASE_FILE", "certtrack.db"),
		PepperFile:          getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		Issuer:              getEnvOrDefault("AUTH_ISSUER", "certtrack-auth"),
		CORSOrigins:         os.Getenv("CORS_ALLOWED_ORIGINS"),
		SessionTTL:          getEnvDurationOrDefault("AUTH_SESSION_TTL", jwtx.DefaultSessionTTL),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		StoreConnectTimeout: getEnvDurationOrDefault("STORE_CONNECT_TIMEOUT", 30*time.Second),
		StoreHealthInterval: getEnvDurationOrDefault("STORE_HEALTH_INTERVAL", 30*time.Second),
	}
}

// Load layers an optional YAML file and then any explicitly set flags over
// the environment. Unset flags never override lower layers.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	cfg := LoadConfig()
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		changedOnly := func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, changedOnly), nil); err != nil {
			return Config{}, fmt.Errorf("failed to read flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// BindFlags registers the command-line overrides for Load.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("env", "", "environment (dev, test, staging, prod)")
	fs.Int("port", 0, "HTTP listen port")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (json, text)")
	fs.String("store-driver", "", "credential store driver (mongo, sqlite)")
	fs.String("mongodb-uri", "", "MongoDB connection string")
	fs.String("database-file", "", "SQLite database file")
	fs.String("cors-origins", "", "comma-separated allowed browser origins")
}

// IsDev reports whether local-development relaxations apply.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// Validate checks driver names, ports and the signing secret policy. In
// dev an empty secret is allowed; SigningSecret generates one.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo driver"))
		}
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Issuer == "" {
		errs = append(errs, errors.New("issuer must not be empty"))
	}

	if !c.IsDev() {
		switch {
		case c.JWTSecret == "":
			errs = append(errs, ErrSecretMissing)
		case c.JWTSecret == DevFallbackSecret:
			errs = append(errs, ErrSecretDefault)
		case len(c.JWTSecret) < jwtx.MinSecretLength:
			errs = append(errs, ErrSecretShort)
		}
	}

	// Sessions last seven days; only local setups may shorten them.
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	} else if c.SessionTTL != jwtx.DefaultSessionTTL && c.Env != "dev" && c.Env != "test" {
		errs = append(errs, fmt.Errorf("session ttl must be %s outside dev and test", jwtx.DefaultSessionTTL))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// SigningSecret returns the configured secret, or in dev a random
// per-process one when none is set. generated tells the caller to warn.
func (c Config) SigningSecret() (secret []byte, generated bool, err error) {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret), false, nil
	}
	if !c.IsDev() {
		return nil, false, ErrSecretMissing
	}

	s, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, false, err
	}
	return []byte(s), true, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
