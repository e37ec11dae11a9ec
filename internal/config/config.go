package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/portmail/portmail/pkg/db"
	"github.com/portmail/portmail/pkg/job"
	"github.com/portmail/portmail/pkg/logger"
	"github.com/portmail/portmail/pkg/mailer"
	"github.com/portmail/portmail/pkg/mailer/resend"
	"github.com/portmail/portmail/pkg/mailer/smtp"
	"github.com/portmail/portmail/pkg/redis"
	"github.com/portmail/portmail/pkg/storage"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

const (
	StorageS3     = storage.DriverS3
	StorageMemory = storage.DriverMemory
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the process configuration, read once at startup.
type Config struct {
	// Env defaults to production so that an unset APP_ENV never relaxes
	// authentication or starts the development ticker.
	Env      string `env:"APP_ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CronSecret authenticates /cron/send-mails outside development.
	CronSecret string `env:"CRON_SECRET"`
	// JWTSecret verifies user tokens on /api. The API is not mounted without it.
	JWTSecret          string   `env:"AUTH_JWT_SECRET"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	SweepSchedule      string        `env:"SWEEP_SCHEDULE" envDefault:"* * * * *"`
	BatchSize          int           `env:"DISPATCH_BATCH_SIZE" envDefault:"50"`
	DevSelfTrigger     bool          `env:"DEV_SELF_TRIGGER" envDefault:"true"`
	DevTriggerInterval time.Duration `env:"DEV_TRIGGER_INTERVAL" envDefault:"60s"`

	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	APIRequestTimeout  time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"60s"`
	AttachmentCacheTTL time.Duration `env:"ATTACHMENT_CACHE_TTL" envDefault:"10m"`

	JobWorkers     int           `env:"JOB_MAX_WORKERS" envDefault:"10"`
	JobTimeout     time.Duration `env:"JOB_TIMEOUT" envDefault:"5m"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Log     logger.Config
	DB      db.Config
	Storage storage.Config
	Mail    mailer.Config
	SMTP    smtp.Config
	Resend  resend.Config
	Redis   redis.Config
}

// Load reads the optional dotenv files (".env" when none are given) and
// parses the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

// parseEnviron parses cfg from an explicit environment instead of the process one.
func parseEnviron(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// APIEnabled reports whether the user-scoped job API is served.
func (c Config) APIEnabled() bool {
	return c.JWTSecret != ""
}

// Validate checks the settings needed by a sweep: the database, the object
// store and the mail provider.
func (c Config) Validate() error {
	var errs []error

	if c.DB.ConnectionString == "" {
		errs = append(errs, errors.New("DATABASE_CONN_URL is required"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("DISPATCH_BATCH_SIZE must be positive"))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case StorageS3:
		if c.Storage.Bucket == "" || c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET, STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required for the s3 driver"))
		}
	case StorageMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_DRIVER=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Mail.From == "" {
		errs = append(errs, errors.New("MAIL_FROM is required"))
	}
	switch strings.ToLower(c.Mail.Provider) {
	case ProviderSMTP:
		if c.SMTP.Host == "" || c.SMTP.Username == "" || c.SMTP.Password == "" {
			errs = append(errs, errors.New("SMTP_HOST, SMTP_USER and SMTP_PASSWORD are required for the smtp provider"))
		}
	case ProviderResend:
		if c.Resend.APIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required for the resend provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider))
	}

	if len(errs) > 0 {
		return errors.Join(ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ValidateServe checks Validate plus the settings of the serving process.
func (c Config) ValidateServe() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}

	// A missing CRON_SECRET is not fatal here: the sweep endpoint answers
	// with a configuration error until it is set.
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required in production"))
	}
	if c.SweepSchedule != "" {
		if _, err := job.ParseSchedule(c.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid SWEEP_SCHEDULE: %w", err))
		}
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
