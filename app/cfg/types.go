package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Fetch configuration
	UserAgent     string
	FetchTimeout  int // seconds, per attempt
	MaxRetries    int
	RetryDelay    int // seconds, base backoff delay
	MaxRetryDelay int // seconds, backoff cap
	MaxFeedSizeMB int
	MaxRedirects  int
	RespectRobots bool

	// Scheduling configuration
	WorkerCount          int
	CycleInterval        int // seconds between cycles in daemon mode
	DefaultIntervalHours int // floor for per-feed update frequency
	ErrorThreshold       int // consecutive failures before deactivation, 0 = never

	// Application configuration
	Port     string
	AddFeeds []string
	Once     bool
	Debug    bool
	Version  string
}
