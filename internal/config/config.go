package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	AppBaseURL    string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	SMTPHost         string        `env:"SMTP_HOST"`
	SMTPPort         int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser         string        `env:"SMTP_USER"`
	SMTPPass         string        `env:"SMTP_PASS"`
	SMTPFrom         string        `env:"SMTP_FROM"`
	SMTPFromName     string        `env:"SMTP_FROM_NAME" envDefault:"PlanFusion"`
	SMTPUseTLS       bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	EmailSendTimeout time.Duration `env:"EMAIL_SEND_TIMEOUT" envDefault:"10s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ResetTokenSecret   string `env:"RESET_TOKEN_SECRET"`
	SessionTTLMinutes  int    `env:"SESSION_TTL_MINUTES" envDefault:"1440"`
	RememberMeTTLHours int    `env:"REMEMBER_ME_TTL_HOURS" envDefault:"720"`
	PendingTTLMinutes  int    `env:"PENDING_TTL_MINUTES" envDefault:"15"`
	CookieSecure       bool   `env:"COOKIE_SECURE" envDefault:"false"`

	AuthRatePerSecond float64       `env:"AUTH_RATE_PER_SECOND" envDefault:"2"`
	AuthRateBurst     int           `env:"AUTH_RATE_BURST" envDefault:"10"`
	OTPResendLimit    int           `env:"OTP_RESEND_LIMIT" envDefault:"5"`
	OTPResendWindow   time.Duration `env:"OTP_RESEND_WINDOW" envDefault:"10m"`
	// TrustedProxies lista IPs o CIDRs cuyo X-Forwarded-For se acepta; vacio usa la IP del socket.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	AMQPURL string `env:"AMQP_URL"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SessionTTL devuelve la duracion de una sesion autenticada.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) RememberMeTTL() time.Duration {
	return time.Duration(c.RememberMeTTLHours) * time.Hour
}

func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMinutes) * time.Minute
}
