package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`

	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"ceebrain"`
	DatabaseURL   string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	SessionSecret        string `env:"SESSION_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"1440"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	MSG91AuthKey string `env:"MSG91_AUTH_KEY"`
	MSG91FlowID  string `env:"MSG91_FLOW_ID"`
	MSG91BaseURL string `env:"MSG91_BASE_URL" envDefault:"https://api.msg91.com/api/v5/flow/"`

	OTPTTL              time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPMaxWrongAttempts int           `env:"OTP_MAX_WRONG_ATTEMPTS" envDefault:"3"`
	OTPRequestWindow    time.Duration `env:"OTP_REQUEST_WINDOW" envDefault:"10m"`
	OTPRequestMax       int           `env:"OTP_REQUEST_MAX" envDefault:"5"`

	LockoutMaxAttempts int           `env:"LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`
	LockoutDuration    time.Duration `env:"LOCKOUT_DURATION" envDefault:"2h"`

	DefaultAdminName     string `env:"DEFAULT_ADMIN_NAME" envDefault:"Admin"`
	DefaultAdminEmail    string `env:"DEFAULT_ADMIN_EMAIL" envDefault:"admin@example.com"`
	DefaultAdminNumber   string `env:"DEFAULT_ADMIN_NUMBER" envDefault:"0000000000"`
	DefaultAdminPassword string `env:"DEFAULT_ADMIN_PASSWORD" envDefault:"changeme123"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionSecret
	}
	return &cfg, nil
}

// SMSEnabled indica si hay credenciales del gateway SMS; sin ellas los OTP solo se registran en log.
func (c *Config) SMSEnabled() bool {
	return c.MSG91AuthKey != "" && c.MSG91FlowID != ""
}
