package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/abdullah-koca/lunora/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Port string
	DB   DB

	PayTR PayTR

	// PublicOrigin — origin фронтенда; только с него принимаются relay-сообщения.
	PublicOrigin   string
	APIBaseURL     string
	AllowedOrigins []string

	KafkaBrokers []string
	KafkaTopic   string
}

type DB struct {
	database.Config
}

type PayTR struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string

	// APIBase переопределяется в тестах, по умолчанию боевой адрес PayTR.
	APIBase      string
	OKURL        string
	FailURL      string
	CallbackURL  string
	TimeoutLimit string
	DebugOn      bool
	TestMode     bool
}

type Notifier struct {
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	TMPLDir      string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		PayTR: PayTR{
			MerchantID:   getEnv("PAYTR_MERCHANT_ID", log),
			MerchantKey:  getEnv("PAYTR_MERCHANT_KEY", log),
			MerchantSalt: getEnv("PAYTR_MERCHANT_SALT", log),
			APIBase:      envDefault("PAYTR_API_BASE", "https://www.paytr.com"),
			OKURL:        getEnv("PAYTR_OK_URL", log),
			FailURL:      getEnv("PAYTR_FAIL_URL", log),
			CallbackURL:  os.Getenv("PAYTR_CALLBACK_URL"),
			TimeoutLimit: envDefault("PAYTR_TIMEOUT_LIMIT", "30"),
			DebugOn:      os.Getenv("PAYTR_DEBUG_ON") == "1",
			TestMode:     os.Getenv("PAYTR_TEST_MODE") == "1",
		},
		PublicOrigin:   getEnv("PUBLIC_ORIGIN", log),
		APIBaseURL:     getEnv("API_BASE_URL", log),
		AllowedOrigins: splitAndTrim(os.Getenv("ALLOWED_ORIGINS")),
		KafkaBrokers:   splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     os.Getenv("KAFKA_TOPIC_EMAIL"),
	}
}

// LoadNotifier — конфиг для cmd/notifier (kafka consumer + SMTP).
func LoadNotifier(log *zap.Logger) *Notifier {
	return &Notifier{
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", log)),
		KafkaTopic:   getEnv("KAFKA_TOPIC_EMAIL", log),
		KafkaGroupID: envDefault("KAFKA_GROUP_ID", "lunora-notifier"),
		SMTPHost:     getEnv("SMTP_HOST", log),
		SMTPPort:     atoiDefault(envDefault("SMTP_PORT", "465"), 465),
		SMTPUser:     getEnv("SMTP_USER", log),
		SMTPPassword: getEnv("SMTP_PASSWORD", log),
		SMTPFrom:     getEnv("SMTP_FROM", log),
		TMPLDir:      envDefault("TMPL_DIR", "templates"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func envDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
