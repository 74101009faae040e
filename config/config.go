package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string

	Supabase SupabaseConfig
	Logging  LoggingConfig
	Redis    RedisConfig
	Prices   PricesConfig
	R2       R2Config
	Email    EmailConfig

	// InternalServiceToken authenticates server-to-server callers (email relay, admin tooling).
	InternalServiceToken string
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	JWTSecret      string
}

type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PricesConfig struct {
	CoinGeckoBaseURL    string
	CoinGeckoAPIKey     string
	CoinGeckoCoinID     string
	DexScreenerBaseURL  string
	TokenAddress        string
	CacheTTL            time.Duration
	RefreshInterval     time.Duration
	RequestTimeout      time.Duration
	RateLimitPerMinute  int
	DefaultPriceUSD     float64
	DefaultVolume24hUSD float64
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether avatar uploads can be served.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

type EmailConfig struct {
	ResendAPIKey        string
	ResendBaseURL       string
	From                string
	OpsAddress          string
	ClaimNotifyInterval time.Duration
}

// Enabled reports whether outgoing mail is configured.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.From != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5200")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3")
	v.SetDefault("COINGECKO_COIN_ID", "solana")
	v.SetDefault("DEXSCREENER_BASE_URL", "https://api.dexscreener.com")
	v.SetDefault("PRICE_CACHE_TTL", "2m")
	v.SetDefault("PRICE_REFRESH_INTERVAL", "1m")
	v.SetDefault("PRICE_REQUEST_TIMEOUT", "10s")
	v.SetDefault("PRICE_RATE_LIMIT_PER_MIN", 25)
	v.SetDefault("DEFAULT_PRICE_USD", 0.0)
	v.SetDefault("DEFAULT_VOLUME_24H_USD", 0.0)
	v.SetDefault("RESEND_BASE_URL", "https://api.resend.com")
	v.SetDefault("CLAIM_NOTIFY_INTERVAL", "1m")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:           v.GetString("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
			ServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
			JWTSecret:      v.GetString("SUPABASE_JWT_SECRET"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Prices: PricesConfig{
			CoinGeckoBaseURL:    v.GetString("COINGECKO_BASE_URL"),
			CoinGeckoAPIKey:     v.GetString("COINGECKO_API_KEY"),
			CoinGeckoCoinID:     v.GetString("COINGECKO_COIN_ID"),
			DexScreenerBaseURL:  v.GetString("DEXSCREENER_BASE_URL"),
			TokenAddress:        v.GetString("TOKEN_ADDRESS"),
			CacheTTL:            v.GetDuration("PRICE_CACHE_TTL"),
			RefreshInterval:     v.GetDuration("PRICE_REFRESH_INTERVAL"),
			RequestTimeout:      v.GetDuration("PRICE_REQUEST_TIMEOUT"),
			RateLimitPerMinute:  v.GetInt("PRICE_RATE_LIMIT_PER_MIN"),
			DefaultPriceUSD:     v.GetFloat64("DEFAULT_PRICE_USD"),
			DefaultVolume24hUSD: v.GetFloat64("DEFAULT_VOLUME_24H_USD"),
		},
		R2: R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("CDN_BASE_URL"),
		},
		Email: EmailConfig{
			ResendAPIKey:        v.GetString("RESEND_API_KEY"),
			ResendBaseURL:       strings.TrimRight(v.GetString("RESEND_BASE_URL"), "/"),
			From:                v.GetString("EMAIL_FROM"),
			OpsAddress:          v.GetString("CLAIMS_OPS_EMAIL"),
			ClaimNotifyInterval: v.GetDuration("CLAIM_NOTIFY_INTERVAL"),
		},
		InternalServiceToken: v.GetString("INTERNAL_SERVICE_TOKEN"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable not set")
	}
	if c.Supabase.JWTSecret == "" {
		return errors.New("SUPABASE_JWT_SECRET environment variable not set")
	}
	for _, origin := range c.AllowedOrigins {
		// credentialed CORS cannot answer with a wildcard origin
		if origin == "*" {
			return errors.New("ALLOWED_ORIGINS cannot be \"*\": CORS runs with credentials, list the origins instead")
		}
		if strings.Contains(origin, "*") && !strings.Contains(origin, "://*.") {
			return fmt.Errorf("ALLOWED_ORIGINS entry %q: only subdomain wildcards like https://*.example.com are allowed", origin)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
