package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	port           int
	origin         string
	devHost        string
	staticVersion  string
	corpusVersion  string
	corpusPath     string
	cacheBackend   string
	dataDir        string
	manifest       []string
	staticCacheAge time.Duration
	fetchTimeout   time.Duration
	rateLimitRPS   int
	rateLimitBurst int
	production     bool
	verbose        bool

	originURL *url.URL
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	u, err := url.Parse(c.origin)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", c.origin, err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("origin must be an absolute http(s) URL: %q", c.origin)
	}
	c.originURL = u

	switch c.cacheBackend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q (want %s or %s)", c.cacheBackend, BackendSQLite, BackendMemory)
	}
	if c.staticVersion == "" || c.corpusVersion == "" {
		return errors.New("--static-version and --corpus-version must not be empty")
	}
	if c.staticVersion == c.corpusVersion {
		return errors.New("--static-version and --corpus-version must differ")
	}
	if !strings.HasPrefix(c.corpusPath, "/") {
		return fmt.Errorf("corpus path must start with /: %q", c.corpusPath)
	}
	if c.rateLimitRPS <= 0 {
		c.rateLimitRPS = 1
	}
	if c.rateLimitBurst <= 0 {
		c.rateLimitBurst = 1
	}
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production" {
		c.production = true
	}
	return nil
}

func (c *Config) env() string {
	return map[bool]string{true: "production", false: "development"}[c.production]
}

func (c *Config) cachePath() string {
	return filepath.Join(c.dataDir, "cache.db")
}

func (c *Config) guessesPath() string {
	return filepath.Join(c.dataDir, "guesses.db")
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("OPENBEE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "openbee",
		Short:         "Serves the daily spelling bee and keeps it playable when the origin is down.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: OPENBEE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: OPENBEE_PORT)")
	fs.StringVar(&cfg.origin, "origin", "http://localhost:5173/", "base URL of the static site (env: OPENBEE_ORIGIN)")
	fs.StringVar(&cfg.devHost, "dev-host", DefaultDevHost, "hostname whose requests always go to the network (env: OPENBEE_DEV_HOST)")
	fs.StringVar(&cfg.staticVersion, "static-version", DefaultStaticVersion, "static cache generation tag (env: OPENBEE_STATIC_VERSION)")
	fs.StringVar(&cfg.corpusVersion, "corpus-version", DefaultCorpusVersion, "word corpus cache name (env: OPENBEE_CORPUS_VERSION)")
	fs.StringVar(&cfg.corpusPath, "corpus-path", DefaultCorpusPath, "corpus path on the origin, without extension (env: OPENBEE_CORPUS_PATH)")
	fs.StringVar(&cfg.cacheBackend, "cache-backend", BackendSQLite, "cache storage: sqlite or memory (env: OPENBEE_CACHE_BACKEND)")
	fs.StringVar(&cfg.dataDir, "data-dir", "data", "directory for the cache and guess databases (env: OPENBEE_DATA_DIR)")
	fs.StringSliceVar(&cfg.manifest, "manifest", DefaultManifest, "third-party asset URLs cached on install (env: OPENBEE_MANIFEST)")
	fs.DurationVar(&cfg.staticCacheAge, "static-cache-age", 5*time.Minute, "client max-age for cached assets in production (env: OPENBEE_STATIC_CACHE_AGE)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 15*time.Second, "timeout for each upstream request (env: OPENBEE_FETCH_TIMEOUT)")
	fs.IntVar(&cfg.rateLimitRPS, "rate-limit-rps", 5, "guesses per second allowed per client (env: OPENBEE_RATE_LIMIT_RPS)")
	fs.IntVar(&cfg.rateLimitBurst, "rate-limit-burst", 10, "guess burst allowed per client (env: OPENBEE_RATE_LIMIT_BURST)")
	fs.BoolVar(&cfg.production, "production", false, "run in production mode (env: OPENBEE_PRODUCTION)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: OPENBEE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, v.GetString(f.Name))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("openbee v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
