package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret     = "a-very-secret-key-should-be-longer-and-random"
	defaultRefreshSecret = "default_insecure_refresh_secret_please_change_this_!@#$"
	defaultSessionSecret = "default_insecure_session_secret_please_change_this"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Session cache backends.
const (
	SessionCacheNone   = "none"
	SessionCacheMemory = "memory"
	SessionCacheRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	Port            string
	IsProduction    bool
	ShutdownTimeout time.Duration

	StorageDriver  string
	DatabaseURL    string
	EnableDBCheck  bool
	MigrationsPath string

	// Access tokens
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string
	// Refresh tokens
	RefreshTokenSecret         string
	RefreshTokenExpiryDuration time.Duration

	// Account policy
	AllowCrossProviderLinking bool
	RefreshChecksSession      bool
	VerificationCodeTTL       time.Duration
	PasswordResetTTL          time.Duration

	// External OAuth Providers
	GoogleClientID       string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL    string `mapstructure:"GOOGLE_REDIRECT_URL"`
	GitHubClientID       string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret   string `mapstructure:"GITHUB_CLIENT_SECRET"`
	FacebookClientID     string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `mapstructure:"FACEBOOK_CLIENT_SECRET"`
	OAuthCallbackBaseURL string `mapstructure:"OAUTH_CALLBACK_BASE_URL"`
	OAuthHTTPTimeout     time.Duration
	SessionSecret        string

	FrontendBaseURL    string `mapstructure:"FRONTEND_BASE_URL"`
	CORSAllowedOrigins []string

	// Shared infrastructure
	RedisURL        string
	SessionCache    string
	SessionCacheTTL time.Duration

	// Rate limits in limiter's "<limit>-<period>" format
	LoginRateLimit  string
	SignupRateLimit string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	PosthogAPIKey string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	viper.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_EXPIRY_DURATION", "15m")
	viper.SetDefault("JWT_ISSUER", "saas-starter-auth")
	viper.SetDefault("REFRESH_TOKEN_SECRET", defaultRefreshSecret)
	viper.SetDefault("REFRESH_TOKEN_EXPIRY_DURATION", "168h")
	viper.SetDefault("ALLOW_CROSS_PROVIDER_LINKING", true)
	viper.SetDefault("REFRESH_CHECKS_SESSION", true)
	viper.SetDefault("VERIFICATION_CODE_TTL", "15m")
	viper.SetDefault("PASSWORD_RESET_TTL", "1h")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REDIRECT_URL", "")
	viper.SetDefault("GITHUB_CLIENT_ID", "")
	viper.SetDefault("GITHUB_CLIENT_SECRET", "")
	viper.SetDefault("FACEBOOK_CLIENT_ID", "")
	viper.SetDefault("FACEBOOK_CLIENT_SECRET", "")
	viper.SetDefault("OAUTH_CALLBACK_BASE_URL", "http://localhost:8080")
	viper.SetDefault("OAUTH_HTTP_TIMEOUT", "10s")
	viper.SetDefault("SESSION_SECRET", defaultSessionSecret)
	viper.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("SESSION_CACHE", SessionCacheNone)
	viper.SetDefault("SESSION_CACHE_TTL", "30s")
	viper.SetDefault("LOGIN_RATE_LIMIT", "5-M")
	viper.SetDefault("SIGNUP_RATE_LIMIT", "10-H")
	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM", "no-reply@localhost")
	viper.SetDefault("POSTHOG_API_KEY", "")

	// Actual environment variables override .env values and defaults.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.ShutdownTimeout = durationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.StorageDriver = strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StorageDriverMemory:
		log.Println("Warning: STORAGE_DRIVER=memory, all data is lost on restart.")
	default:
		return nil, errors.New("STORAGE_DRIVER must be one of postgres, memory")
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
		cfg.JWTSecret = defaultJWTSecret // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTExpiryDuration = durationOrDefault("JWT_EXPIRY_DURATION", 15*time.Minute)
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "saas-starter-auth"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.RefreshTokenSecret = viper.GetString("REFRESH_TOKEN_SECRET")
	if cfg.RefreshTokenSecret == "" || cfg.RefreshTokenSecret == defaultRefreshSecret {
		cfg.RefreshTokenSecret = defaultRefreshSecret
		log.Println("Warning: REFRESH_TOKEN_SECRET is not set, using default insecure secret. THIS IS NOT FOR PRODUCTION.")
	}
	cfg.RefreshTokenExpiryDuration = durationOrDefault("REFRESH_TOKEN_EXPIRY_DURATION", 7*24*time.Hour)
	if cfg.JWTSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("JWT_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	cfg.AllowCrossProviderLinking = viper.GetBool("ALLOW_CROSS_PROVIDER_LINKING")
	cfg.RefreshChecksSession = viper.GetBool("REFRESH_CHECKS_SESSION")
	cfg.VerificationCodeTTL = durationOrDefault("VERIFICATION_CODE_TTL", 15*time.Minute)
	cfg.PasswordResetTTL = durationOrDefault("PASSWORD_RESET_TTL", time.Hour)

	cfg.GoogleClientID = viper.GetString("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = viper.GetString("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = viper.GetString("GOOGLE_REDIRECT_URL")
	cfg.GitHubClientID = viper.GetString("GITHUB_CLIENT_ID")
	cfg.GitHubClientSecret = viper.GetString("GITHUB_CLIENT_SECRET")
	cfg.FacebookClientID = viper.GetString("FACEBOOK_CLIENT_ID")
	cfg.FacebookClientSecret = viper.GetString("FACEBOOK_CLIENT_SECRET")
	cfg.OAuthCallbackBaseURL = strings.TrimRight(viper.GetString("OAUTH_CALLBACK_BASE_URL"), "/")
	cfg.OAuthHTTPTimeout = durationOrDefault("OAUTH_HTTP_TIMEOUT", 10*time.Second)
	if cfg.GoogleRedirectURL == "" && cfg.GoogleClientID != "" {
		cfg.GoogleRedirectURL = cfg.OAuthCallbackBaseURL + "/api/v1/oauth/google/callback"
	}

	// Log warnings for missing OAuth ENV variables
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Println("Warning: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set. Google OAuth will not function.")
	}
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		log.Println("Warning: GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set. GitHub OAuth will not function.")
	}

	cfg.SessionSecret = viper.GetString("SESSION_SECRET")
	if cfg.SessionSecret == "" || cfg.SessionSecret == defaultSessionSecret {
		cfg.SessionSecret = defaultSessionSecret
		log.Println("Warning: SESSION_SECRET not set, OAuth state cookies use an insecure key.")
	}

	cfg.FrontendBaseURL = strings.TrimRight(viper.GetString("FRONTEND_BASE_URL"), "/")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{cfg.FrontendBaseURL}
	}

	cfg.RedisURL = viper.GetString("REDIS_URL")
	cfg.SessionCache = strings.ToLower(viper.GetString("SESSION_CACHE"))
	cfg.SessionCacheTTL = durationOrDefault("SESSION_CACHE_TTL", 30*time.Second)
	switch cfg.SessionCache {
	case SessionCacheNone, SessionCacheMemory:
	case SessionCacheRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("SESSION_CACHE=redis requires REDIS_URL")
		}
	default:
		return nil, errors.New("SESSION_CACHE must be one of none, memory, redis")
	}

	cfg.LoginRateLimit = viper.GetString("LOGIN_RATE_LIMIT")
	cfg.SignupRateLimit = viper.GetString("SIGNUP_RATE_LIMIT")

	cfg.SMTPHost = viper.GetString("SMTP_HOST")
	cfg.SMTPPort = viper.GetInt("SMTP_PORT")
	cfg.SMTPUsername = viper.GetString("SMTP_USERNAME")
	cfg.SMTPPassword = viper.GetString("SMTP_PASSWORD")
	cfg.SMTPFrom = viper.GetString("SMTP_FROM")
	if cfg.SMTPHost == "" {
		log.Println("Warning: SMTP_HOST not set. Emails are written to the log instead of being sent.")
	}

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")

	if cfg.IsProduction {
		if err := cfg.validateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) validateProduction() error {
	if c.JWTSecret == defaultJWTSecret || c.RefreshTokenSecret == defaultRefreshSecret {
		return errors.New("JWT_SECRET and REFRESH_TOKEN_SECRET must be set in production")
	}
	if c.SessionSecret == defaultSessionSecret {
		return errors.New("SESSION_SECRET must be set in production")
	}
	if c.StorageDriver == StorageDriverMemory {
		return errors.New("STORAGE_DRIVER=memory is not allowed in production")
	}
	return nil
}

// durationOrDefault parses a duration key, falling back to def with a warning.
func durationOrDefault(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
