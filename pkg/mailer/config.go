package mailer

// Config holds mailer configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Provider string `env:"MAIL_PROVIDER" envDefault:"smtp"`
	From     string `env:"MAIL_FROM"`
	FromName string `env:"MAIL_FROM_NAME"`
	ReplyTo  string `env:"MAIL_REPLY_TO"`
}

// FromAddress returns the formatted sender address.
func (c Config) FromAddress() string {
	return Address(c.FromName, c.From)
}
