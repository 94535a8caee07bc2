package config

import (
	"fmt"
	"strings"
	"time"

	"shibads/internal/domain"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

type Config struct {
	AppPort  string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	BotToken       string        `envconfig:"BOT_TOKEN" required:"true"`
	InitDataMaxAge time.Duration `envconfig:"INIT_DATA_MAX_AGE" default:"24h"`
	BotAPIEndpoint string        `envconfig:"BOT_API_ENDPOINT"`
	BotAPITimeout  time.Duration `envconfig:"BOT_API_TIMEOUT" default:"5s"`

	// Record store
	StoreBackend string `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	SupabaseURL  string `envconfig:"SUPABASE_URL"`
	SupabaseKey  string `envconfig:"SUPABASE_SERVICE_KEY"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`

	// IP throttling in front of the API (redis optional, in-memory otherwise)
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	APIRateLimit  int           `envconfig:"API_RATE_LIMIT" default:"60"`
	APIRateWindow time.Duration `envconfig:"API_RATE_WINDOW" default:"1m"`

	// Shared key for the internal "commission" request type. Empty disables it.
	CommissionAPIKey string `envconfig:"COMMISSION_API_KEY"`

	JanitorSchedule      string        `envconfig:"JANITOR_SCHEDULE" default:"@every 1h"`
	ActionTokenRetention time.Duration `envconfig:"ACTION_TOKEN_RETENTION" default:"24h"`

	Economy Economy `envconfig:"ECONOMY"`
}

// Economy holds the reward constants. It is built once at startup and
// passed by value into every service.
type Economy struct {
	RewardPerAd       decimal.Decimal `envconfig:"REWARD_PER_AD" default:"3"`
	CommissionRate    decimal.Decimal `envconfig:"COMMISSION_RATE" default:"0.05"`
	CommissionFloor   decimal.Decimal `envconfig:"COMMISSION_FLOOR" default:"0.000001"`
	DailyMaxAds       int             `envconfig:"DAILY_MAX_ADS" default:"100"`
	DailyMaxSpins     int             `envconfig:"DAILY_MAX_SPINS" default:"15"`
	ResetInterval     time.Duration   `envconfig:"RESET_INTERVAL" default:"6h"`
	MinActionInterval time.Duration   `envconfig:"MIN_ACTION_INTERVAL" default:"3s"`
	ActionTokenTTL    time.Duration   `envconfig:"ACTION_TOKEN_TTL" default:"60s"`
	SpinSectors       []int64         `envconfig:"SPIN_SECTORS" default:"5,10,15,20,5"`
	MinWithdrawal     decimal.Decimal `envconfig:"MIN_WITHDRAWAL" default:"400"`
	ChannelUsername   string          `envconfig:"CHANNEL_USERNAME" default:"@botbababab"`

	Missions domain.MissionCatalog `envconfig:"-"`
}

// DefaultEconomy returns the production constants without reading the environment.
func DefaultEconomy() Economy {
	e := Economy{
		RewardPerAd:       decimal.NewFromInt(3),
		CommissionRate:    decimal.RequireFromString("0.05"),
		CommissionFloor:   decimal.RequireFromString("0.000001"),
		DailyMaxAds:       100,
		DailyMaxSpins:     15,
		ResetInterval:     6 * time.Hour,
		MinActionInterval: 3 * time.Second,
		ActionTokenTTL:    60 * time.Second,
		SpinSectors:       []int64{5, 10, 15, 20, 5},
		MinWithdrawal:     decimal.NewFromInt(400),
		ChannelUsername:   "@botbababab",
	}
	e.Missions = DefaultMissions(e.ChannelUsername)
	return e
}

// DefaultMissions is the static mission catalog.
func DefaultMissions(channel string) domain.MissionCatalog {
	return domain.MissionCatalog{
		{
			ID:       1,
			NameAr:   "انضمام لقناة التلجرام الرسمية",
			NameEn:   "Join Official Telegram Channel",
			Category: domain.MissionChannelJoin,
			Link:     "https://t.me/" + strings.TrimPrefix(channel, "@"),
			Reward:   decimal.NewFromInt(50),
			Channel:  channel,
		},
		{
			ID:       2,
			NameAr:   "الاشتراك في رابط الإعلانات الهام",
			NameEn:   "Subscribe to Important Ads Link",
			Category: domain.MissionExternalLink,
			Link:     "https://external.important.link/shib",
			Reward:   decimal.NewFromInt(75),
		},
		{
			ID:       3,
			NameAr:   "متابعة قناة المكافآت اليومية",
			NameEn:   "Follow Daily Rewards Channel",
			Category: domain.MissionExternalLink,
			Link:     "https://t.me/shib_daily_rewards",
			Reward:   decimal.NewFromInt(100),
		},
	}
}

func (e Economy) Validate() error {
	if !e.RewardPerAd.IsPositive() {
		return fmt.Errorf("ECONOMY_REWARD_PER_AD must be > 0")
	}
	if e.CommissionRate.IsNegative() || e.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("ECONOMY_COMMISSION_RATE must be within [0, 1]")
	}
	if e.DailyMaxAds <= 0 || e.DailyMaxSpins <= 0 {
		return fmt.Errorf("daily maxima must be > 0")
	}
	if e.ResetInterval <= 0 || e.ActionTokenTTL <= 0 || e.MinActionInterval < 0 {
		return fmt.Errorf("invalid economy durations")
	}
	if len(e.SpinSectors) == 0 {
		return fmt.Errorf("ECONOMY_SPIN_SECTORS must not be empty")
	}
	for _, s := range e.SpinSectors {
		if s <= 0 {
			return fmt.Errorf("spin sector %d must be a positive integer", s)
		}
	}
	if !e.MinWithdrawal.IsPositive() {
		return fmt.Errorf("ECONOMY_MIN_WITHDRAWAL must be > 0")
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.APIRateLimit <= 0 || c.APIRateWindow <= 0 {
		return fmt.Errorf("API_RATE_LIMIT and API_RATE_WINDOW must be > 0")
	}
	return c.Economy.Validate()
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Economy.Missions = DefaultMissions(cfg.Economy.ChannelUsername)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
