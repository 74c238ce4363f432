package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"feedsink" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"feedsink" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"feedsink" description:"Database name"`

	// Fetch configuration
	UserAgent     string `long:"user-agent" env:"USER_AGENT" default:"feedsink/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout  int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-attempt HTTP timeout in seconds"`
	MaxRetries    int    `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Fetch retries after the first attempt"`
	RetryDelay    int    `long:"retry-delay" env:"RETRY_DELAY" default:"5" description:"Base retry backoff delay in seconds"`
	MaxRetryDelay int    `long:"max-retry-delay" env:"MAX_RETRY_DELAY" default:"160" description:"Retry backoff cap in seconds"`
	MaxFeedSizeMB int    `long:"max-feed-size" env:"MAX_FEED_SIZE_MB" default:"10" description:"Maximum feed response size in megabytes"`
	MaxRedirects  int    `long:"max-redirects" env:"MAX_REDIRECTS" default:"5" description:"Maximum redirect hops per fetch"`
	RespectRobots bool   `long:"respect-robots" env:"RESPECT_ROBOTS" description:"Consult robots.txt before fetching"`

	// Scheduling configuration
	WorkerCount          int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of concurrent feed pipelines per cycle"`
	CycleInterval        int `long:"cycle-interval" env:"CYCLE_INTERVAL" default:"60" description:"Seconds between aggregation cycles"`
	DefaultIntervalHours int `long:"default-interval-hours" env:"DEFAULT_INTERVAL_HOURS" default:"1" description:"Minimum hours between fetches of the same feed"`
	ErrorThreshold       int `long:"error-threshold" env:"ERROR_THRESHOLD" default:"0" description:"Consecutive failures before a feed is deactivated (0 = never)"`

	// Application configuration
	Port     string   `long:"port" env:"PORT" description:"HTTP port for the ops API (empty = disabled)"`
	AddFeeds []string `long:"add-feed" env:"ADD_FEED" env-delim:"," description:"Feed URL to register at startup (repeatable)"`
	Once     bool     `long:"once" description:"Run a single aggregation cycle and exit"`
	Debug    bool     `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:               raw.DBHost,
		DBPort:               raw.DBPort,
		DBUser:               raw.DBUser,
		DBPassword:           raw.DBPassword,
		DBName:               raw.DBName,
		UserAgent:            raw.UserAgent,
		FetchTimeout:         raw.FetchTimeout,
		MaxRetries:           raw.MaxRetries,
		RetryDelay:           raw.RetryDelay,
		MaxRetryDelay:        raw.MaxRetryDelay,
		MaxFeedSizeMB:        raw.MaxFeedSizeMB,
		MaxRedirects:         raw.MaxRedirects,
		RespectRobots:        raw.RespectRobots,
		WorkerCount:          raw.WorkerCount,
		CycleInterval:        raw.CycleInterval,
		DefaultIntervalHours: raw.DefaultIntervalHours,
		ErrorThreshold:       raw.ErrorThreshold,
		Port:                 raw.Port,
		AddFeeds:             raw.AddFeeds,
		Once:                 raw.Once,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
