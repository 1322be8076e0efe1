package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

// Scanner modes.
const (
	ScannerCamera = "camera"
	ScannerSerial = "serial"
)

// DataDirName is the per-user directory under $HOME for session and log files.
const DataDirName = ".checkin"

type Config struct {
	APIURL string `env:"CHECKIN_API_URL" envDefault:"https://ticket-dawg-server.onrender.com/api"`
	Token  string `env:"CHECKIN_TOKEN"`

	LogLevel string `env:"CHECKIN_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"CHECKIN_LOG_FILE"`

	Scanner        string `env:"CHECKIN_SCANNER" envDefault:"camera"`
	CameraDevice   string `env:"CHECKIN_CAMERA_DEVICE" envDefault:"/dev/video0"`
	CaptureCommand string `env:"CHECKIN_CAPTURE_COMMAND"`
	ScanFPS        int    `env:"CHECKIN_SCAN_FPS" envDefault:"10"`
	SerialDevice   string `env:"CHECKIN_SERIAL_DEVICE" envDefault:"/dev/ttyACM0"`

	SurfaceID       string        `env:"CHECKIN_SURFACE_ID" envDefault:"qr-reader"`
	AttachAttempts  int           `env:"CHECKIN_ATTACH_ATTEMPTS" envDefault:"20"`
	AttachDelay     time.Duration `env:"CHECKIN_ATTACH_DELAY" envDefault:"100ms"`
	ReleaseGrace    time.Duration `env:"CHECKIN_RELEASE_GRACE" envDefault:"250ms"`
	ReleaseTimeout  time.Duration `env:"CHECKIN_RELEASE_TIMEOUT" envDefault:"2s"`
	ValidateTimeout time.Duration `env:"CHECKIN_VALIDATE_TIMEOUT" envDefault:"10s"`

	RedisURL    string `env:"CHECKIN_REDIS_URL"`
	FeedChannel string `env:"CHECKIN_FEED_CHANNEL" envDefault:"checkins"`
	Gate        string `env:"CHECKIN_GATE" envDefault:"main"`

	StatusAddr string `env:"CHECKIN_STATUS_ADDR"`
	ReleaseURL string `env:"CHECKIN_RELEASE_URL"`
}

// CaptureArgs splits CaptureCommand into argv. Empty means use the default.
func (c *Config) CaptureArgs() []string {
	return strings.Fields(c.CaptureCommand)
}

// FeedEnabled reports whether attempts are published to Redis.
func (c *Config) FeedEnabled() bool {
	return c.RedisURL != ""
}

// StatusEnabled reports whether the local status endpoint is served.
func (c *Config) StatusEnabled() bool {
	return c.StatusAddr != ""
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("CHECKIN_API_URL must not be empty")
	}
	switch c.Scanner {
	case ScannerCamera, ScannerSerial:
	default:
		return fmt.Errorf("CHECKIN_SCANNER must be %q or %q, got %q", ScannerCamera, ScannerSerial, c.Scanner)
	}
	if c.ScanFPS <= 0 {
		return fmt.Errorf("CHECKIN_SCAN_FPS must be positive")
	}
	if c.AttachAttempts <= 0 {
		return fmt.Errorf("CHECKIN_ATTACH_ATTEMPTS must be positive")
	}
	if c.AttachDelay <= 0 || c.ReleaseTimeout <= 0 || c.ValidateTimeout <= 0 {
		return fmt.Errorf("CHECKIN_ATTACH_DELAY, CHECKIN_RELEASE_TIMEOUT and CHECKIN_VALIDATE_TIMEOUT must be positive")
	}
	if c.ReleaseGrace < 0 {
		return fmt.Errorf("CHECKIN_RELEASE_GRACE must not be negative")
	}
	if c.SurfaceID == "" {
		return fmt.Errorf("CHECKIN_SURFACE_ID must not be empty")
	}
	if c.FeedEnabled() && c.FeedChannel == "" {
		return fmt.Errorf("CHECKIN_FEED_CHANNEL must not be empty when CHECKIN_REDIS_URL is set")
	}
	if strings.HasPrefix(c.APIURL, "http://") && !isLocal(c.APIURL) {
		log.Warn().Str("url", c.APIURL).Msg("CHECKIN_API_URL is not TLS: tokens are sent in clear text")
	}
	return nil
}

func isLocal(u string) bool {
	host := strings.TrimPrefix(u, "http://")
	return strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1")
}

// DataDir returns ~/.checkin.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, DataDirName), nil
}

// Load parses the environment. An empty log file defaults to
// ~/.checkin/checkin.log.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.LogFile == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}
		cfg.LogFile = filepath.Join(dir, "checkin.log")
	}
	return &cfg, nil
}
