package config

import (
	"flag"
	"io/fs"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/store"
	"github.com/pkg/errors"
)

const (
	BackendAirtable = "airtable"
	BackendSQLite   = "sqlite"
)

// EnvFile is loaded, if present, before environment defaults are read.
// Variables already set in the environment win.
var EnvFile = ".env"

type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port uint   `env:"PORT" envDefault:"8080"`
	Addr string `env:"-"`

	Backend      string `env:"BACKEND" envDefault:"airtable"`
	DBUrl        string `env:"DB_URL" envDefault:"brand-survey.sqlite"`
	SeedFile     string `env:"SEED_FILE"`
	AirtableURL  string `env:"AIRTABLE_URL"`
	AirtableBase string `env:"AIRTABLE_BASE_ID"`
	AirtableKey  string `env:"AIRTABLE_API_KEY"`
	Tables       store.Tables
	RateLimit    float64 `env:"RATE_LIMIT" envDefault:"5"`
	RateBurst    int     `env:"RATE_BURST" envDefault:"5"`

	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"8h"`

	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`
	LogFile   string `env:"LOG_FILE"`
	Debug     bool   `env:"DEBUG"`
}

// ParseFlags reads the configuration from args, falling back on
// environment variables, then on built-in defaults.
func ParseFlags(args []string) (cfg Config, err error) {
	if err = godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, errors.Wrapf(err, "load %s", EnvFile)
	}
	if err = env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parse environment")
	}
	if cfg.AirtableURL == "" {
		cfg.AirtableURL = airtable.DefaultURL
	}

	flags := flag.NewFlagSet("brand-survey", flag.ContinueOnError)
	flags.StringVar(&cfg.Host, "host", cfg.Host, "listen host name")
	flags.UintVar(&cfg.Port, "port", cfg.Port, "listen port number")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "tables backend: airtable or sqlite")
	flags.StringVar(&cfg.DBUrl, "db-url", cfg.DBUrl, "path to SQLite3 DB file (sqlite backend)")
	flags.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "JSON fixture to load into the SQLite DB (sqlite backend)")
	flags.StringVar(&cfg.AirtableURL, "airtable-url", cfg.AirtableURL, "tables API root URL")
	flags.StringVar(&cfg.AirtableBase, "airtable-base", cfg.AirtableBase, "tables API base identifier")
	flags.StringVar(&cfg.AirtableKey, "airtable-key", cfg.AirtableKey, "tables API key")
	flags.StringVar(&cfg.Tables.Sections, "table-sections", cfg.Tables.Sections, "sections table name")
	flags.StringVar(&cfg.Tables.Questions, "table-questions", cfg.Tables.Questions, "questions table name")
	flags.StringVar(&cfg.Tables.Answers, "table-answers", cfg.Tables.Answers, "answers table name")
	flags.StringVar(&cfg.Tables.Users, "table-users", cfg.Tables.Users, "users table name")
	flags.StringVar(&cfg.Tables.UserAnswers, "table-user-answers", cfg.Tables.UserAnswers, "user answers table name")
	flags.StringVar(&cfg.Tables.Results, "table-results", cfg.Tables.Results, "results table name")
	flags.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "max tables API requests per second (0 disables)")
	flags.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "tables API request burst")
	flags.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "secret key for token signing")
	flags.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "session and token lifetime")
	flags.StringVar(&cfg.PublicDir, "public-dir", cfg.PublicDir, "directory of static files to serve")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also log to this file, rotated")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log at DEBUG level")
	if err = flags.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	err = cfg.validate()
	return
}

func (cfg Config) validate() error {
	var errs *multierror.Error
	if cfg.TokenSecret == "" {
		errs = multierror.Append(errs, errors.New("missing parameter -token-secret"))
	}
	if cfg.TokenTTL <= 0 {
		errs = multierror.Append(errs, errors.Errorf("invalid -token-ttl %s", cfg.TokenTTL))
	}
	if cfg.Port == 0 || cfg.Port > 65535 {
		errs = multierror.Append(errs, errors.Errorf("invalid -port %d", cfg.Port))
	}
	if cfg.RateLimit < 0 {
		errs = multierror.Append(errs, errors.New("-rate-limit must not be negative"))
	}

	switch cfg.Backend {
	case BackendAirtable:
		if cfg.AirtableBase == "" {
			errs = multierror.Append(errs, errors.New("missing parameter -airtable-base"))
		}
		if cfg.AirtableKey == "" {
			errs = multierror.Append(errs, errors.New("missing parameter -airtable-key"))
		}
	case BackendSQLite:
		if cfg.DBUrl == "" {
			errs = multierror.Append(errs, errors.New("missing parameter -db-url"))
		}
	default:
		errs = multierror.Append(errs, errors.Errorf("unknown -backend %q", cfg.Backend))
	}
	return errs.ErrorOrNil()
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
