package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	AppName             = "musicdeck"
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"
	DefaultLrclibURL    = "https://lrclib.net/api"
	DefaultUserAgent    = "musicdeck/1.0 (https://musicdeck.dev)"
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 500 * time.Millisecond
	PollInterval        = 100 * time.Millisecond

	envPrefix = "MUSICDECK_"
)

type Config struct {
	MprisService string
	LrclibURL    string
	UserAgent    string
	SyncOffset   float64
	HideHeader   bool
	NoCache      bool
	// KittyGraphics draws artwork with the kitty graphics protocol.
	KittyGraphics bool
	CacheDir      string
	DataDir       string
	HTTPTimeout   time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
	LogFile       string
}

func Load() *Config {
	cacheDir := getEnvOrDefault("CACHE_DIR", defaultDir("XDG_CACHE_HOME", ".cache"))

	return &Config{
		MprisService:  getEnvOrDefault("MPRIS_SERVICE", DefaultMprisService),
		LrclibURL:     getEnvOrDefault("LRCLIB_URL", DefaultLrclibURL),
		UserAgent:     getEnvOrDefault("USER_AGENT", DefaultUserAgent),
		SyncOffset:    getFloat("SYNC_OFFSET", 0),
		HideHeader:    getBool("HIDE_HEADER"),
		NoCache:       getBool("NO_CACHE"),
		KittyGraphics: getBool("KITTY_GRAPHICS"),
		CacheDir:      cacheDir,
		DataDir:       getEnvOrDefault("DATA_DIR", defaultDir("XDG_DATA_HOME", filepath.Join(".local", "share"))),
		HTTPTimeout:   getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		MaxRetries:    getInt("MAX_RETRIES", DefaultMaxRetries),
		RetryBackoff:  getDuration("RETRY_BACKOFF", DefaultRetryBackoff),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFile:       getEnvOrDefault("LOG_FILE", filepath.Join(cacheDir, AppName+".log")),
	}
}

func (c *Config) LyricsCacheDir() string {
	return filepath.Join(c.CacheDir, "lyrics")
}

func (c *Config) LyricsDataDir() string {
	return filepath.Join(c.DataDir, "lyrics")
}

// defaultDir resolves an xdg directory, falling back to a path under home.
func defaultDir(xdgVar string, homeRel string) string {
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}

	return filepath.Join(home, homeRel, AppName)
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback
	}
	return value
}

func getBool(key string) bool {
	switch getEnvOrDefault(key, "false") {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(getEnvOrDefault(key, ""), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnvOrDefault(key, ""))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnvOrDefault(key, ""))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
