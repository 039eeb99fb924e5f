package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port    string `env:"PORT" env-default:"8080"`
	GinMode string `env:"GIN_MODE"`

	Database Database
	Redis    Redis
	Kafka    Kafka
	Log      Log
	Business Business
}

type Database struct {
	Driver   string `env:"DB_DRIVER" env-default:"mysql"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"3306"`
	User     string `env:"DB_USER" env-default:"root"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" env-default:"ledger"`
}

type Redis struct {
	Addr string `env:"REDIS_URL" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers           []string `env:"KAFKA_BROKERS" env-separator:","`
	NotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" env-default:"user-notifications"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

type Business struct {
	TrialFundAmount     string `env:"TRIAL_FUND_AMOUNT" env-default:"200"`
	TrialFundDays       int    `env:"TRIAL_FUND_DAYS" env-default:"4"`
	ReferralBonus       string `env:"REFERRAL_BONUS" env-default:"10"`
	ReferralBonusPoints int64  `env:"REFERRAL_BONUS_POINTS" env-default:"10"`
	CommissionRates     string `env:"COMMISSION_RATES" env-default:"0.18,0.09,0.05"`
	WithdrawFeeRate     string `env:"WITHDRAW_FEE_RATE" env-default:"0.03"`
	GatewaySecret       string `env:"GATEWAY_SECRET"`
}

// Rules is the parsed, validated form of Business.
type Rules struct {
	TrialFundAmount     decimal.Decimal
	TrialFundDays       int
	ReferralBonus       decimal.Decimal
	ReferralBonusPoints int64
	CommissionRates     []decimal.Decimal
	WithdrawFeeRate     decimal.Decimal
	GatewaySecret       string
}

// Load reads an optional .env file (current directory, then parent) and the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found in current directory, trying parent")
		if err := godotenv.Load("../.env"); err != nil {
			logrus.Debug("No .env file found, using system environment variables")
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if _, err := cfg.Business.Rules(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (d Database) DSN() string {
	if d.Driver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.Port)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func (b Business) Rules() (Rules, error) {
	trial, err := parseNonNegative("TRIAL_FUND_AMOUNT", b.TrialFundAmount)
	if err != nil {
		return Rules{}, err
	}
	if b.TrialFundDays <= 0 {
		return Rules{}, fmt.Errorf("TRIAL_FUND_DAYS must be positive, got %d", b.TrialFundDays)
	}
	bonus, err := parseNonNegative("REFERRAL_BONUS", b.ReferralBonus)
	if err != nil {
		return Rules{}, err
	}
	if b.ReferralBonusPoints < 0 {
		return Rules{}, fmt.Errorf("REFERRAL_BONUS_POINTS must not be negative")
	}
	rates, err := ParseRates(b.CommissionRates)
	if err != nil {
		return Rules{}, err
	}
	fee, err := parseRate("WITHDRAW_FEE_RATE", b.WithdrawFeeRate)
	if err != nil {
		return Rules{}, err
	}

	return Rules{
		TrialFundAmount:     trial,
		TrialFundDays:       b.TrialFundDays,
		ReferralBonus:       bonus,
		ReferralBonusPoints: b.ReferralBonusPoints,
		CommissionRates:     rates,
		WithdrawFeeRate:     fee,
		GatewaySecret:       b.GatewaySecret,
	}, nil
}

// MaxCommissionLevels is the deepest upline level that earns commission.
const MaxCommissionLevels = 3

// ParseRates parses a comma separated list of fractions, one per upline
// level, from 1 to MaxCommissionLevels entries.
func ParseRates(raw string) ([]decimal.Decimal, error) {
	var rates []decimal.Decimal
	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRate(fmt.Sprintf("COMMISSION_RATES[%d]", i), part)
		if err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	if len(rates) == 0 || len(rates) > MaxCommissionLevels {
		return nil, fmt.Errorf("COMMISSION_RATES needs 1 to %d rates, got %d", MaxCommissionLevels, len(rates))
	}
	return rates, nil
}

func parseRate(name, raw string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be within [0,1], got %s", name, r)
	}
	return r, nil
}

func parseNonNegative(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
