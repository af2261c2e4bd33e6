package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credit constants that historically diverged between code paths. The canonical
// values are the defaults below; the legacy values are kept for reference by
// data migrations only.
const (
	LegacyInitialBonusCredits  = 500000
	LegacyReferralBonusCredits = 100000
)

type Config struct {
	// Database. DBDriver "sqlite" opens SQLitePath instead of Postgres.
	DBDriver   string
	SQLitePath string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// Admin
	AdminPhones  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string

	// Redis (OTP store). Empty address keeps OTPs in process memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SMS gateway
	SMSAPIKey  string
	SMSAPIURL  string
	SMSTimeout time.Duration

	// Kafka domain events. Empty brokers disables publishing.
	KafkaBrokers []string
	KafkaTopic   string

	// Remote ad backend
	AdBackendURL  string
	AdCostCredits int

	// Credits
	InitialBonusCredits     int
	ReferralBonusCredits    int
	ReferralBonusCap        int
	TemplateContribution    int
	TemplateCredits         int
	PaymentCreditMultiplier int

	// OTP
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OTPSweepInterval time.Duration

	PersonCodeAttempts int
}

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		SQLitePath: getEnv("SQLITE_PATH", "channel_partner.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "channel_partner"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "168h"), 7*24*time.Hour),

		AdminPhones:  getEnv("ADMIN_PHONES", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		SMSAPIKey:  getEnv("FAST2SMS_API_KEY", ""),
		SMSAPIURL:  getEnv("FAST2SMS_URL", "https://www.fast2sms.com/dev/bulkV2"),
		SMSTimeout: parseDuration(getEnv("SMS_TIMEOUT", "10s"), 10*time.Second),

		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "channel-partner-events"),

		AdBackendURL:  getEnv("AD_BACKEND_URL", ""),
		AdCostCredits: getInt("AD_COST_CREDITS", 1020),

		InitialBonusCredits:     getInt("INITIAL_BONUS_CREDITS", 500),
		ReferralBonusCredits:    getInt("REFERRAL_BONUS_CREDITS", 100),
		ReferralBonusCap:        getInt("REFERRAL_BONUS_CAP", 20),
		TemplateContribution:    getInt("TEMPLATE_CONTRIBUTION", 10000),
		TemplateCredits:         getInt("TEMPLATE_CREDITS", 60000),
		PaymentCreditMultiplier: getInt("PAYMENT_CREDIT_MULTIPLIER", 6),

		OTPTTL:           parseDuration(getEnv("OTP_TTL", "5m"), 5*time.Minute),
		OTPMaxAttempts:   getInt("OTP_MAX_ATTEMPTS", 3),
		OTPSweepInterval: parseDuration(getEnv("OTP_SWEEP_INTERVAL", "60s"), time.Minute),

		PersonCodeAttempts: getInt("PERSON_CODE_ATTEMPTS", 10),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
