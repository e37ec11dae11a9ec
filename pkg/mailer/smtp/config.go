package smtp

import "time"

// Config holds SMTP relay configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Host     string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	Username string        `env:"SMTP_USER"`
	Password string        `env:"SMTP_PASSWORD"`
	TLS      string        `env:"SMTP_TLS" envDefault:"opportunistic"` // mandatory, opportunistic, none
	Port     int           `env:"SMTP_PORT" envDefault:"587"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
	SSL      bool          `env:"SMTP_SSL" envDefault:"false"`
}
