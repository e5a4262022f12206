package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for the process configuration surface.
const (
	DefaultPlayer              = "kew"
	DefaultAppID               = "1210361074247802940"
	DefaultRetries             = 3
	DefaultSize                = "150x150"
	DefaultSeekTolerance       = 2 * time.Second
	DefaultResubscribeInterval = 5 * time.Second
	DefaultUploadURL           = "https://tmpfiles.org/api/v1/upload"
	DefaultArtCache            = ":memory:"
)

// ErrInvalidSize is returned for size strings not of the form WIDTHxHEIGHT.
var ErrInvalidSize = errors.New("invalid size")

// Size is a target image size in pixels
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ParseSize parses "{width}x{height}" with both parts positive integers.
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return Size{}, fmt.Errorf("%w %q: expected WIDTHxHEIGHT", ErrInvalidSize, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Size{}, fmt.Errorf("%w %q: width must be a positive integer", ErrInvalidSize, s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Size{}, fmt.Errorf("%w %q: height must be a positive integer", ErrInvalidSize, s)
	}
	return Size{Width: width, Height: height}, nil
}

// Config holds application configuration
type Config struct {
	Verbose  bool
	LogLevel string
	LogFile  string

	// Player identity on the media bus, e.g. "kew" for org.mpris.MediaPlayer2.kew
	Player string

	// Discord application used for the presence
	AppID string

	// Maximum consecutive IPC connection attempts before giving up
	Retries int

	// Omit presence buttons entirely
	HideButtons bool

	// Upload local cover art as-is instead of resizing it to Size
	SkipResize bool
	Size       Size

	SeekTolerance       time.Duration
	ResubscribeInterval time.Duration

	// Image hosting endpoint for local cover art
	UploadURL string

	// SQLite database for the cover art cache; ":memory:" keeps it per process
	ArtCache string
}

// Load reads configuration from flags, environment and the optional config
// file, in that order of precedence, and validates it.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")

	v.SetDefault("verbose", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")
	v.SetDefault("player", DefaultPlayer)
	v.SetDefault("app-id", DefaultAppID)
	v.SetDefault("retries", DefaultRetries)
	v.SetDefault("hide-button", false)
	v.SetDefault("no-resize", false)
	v.SetDefault("size", DefaultSize)
	v.SetDefault("seek-tolerance", DefaultSeekTolerance)
	v.SetDefault("resubscribe-interval", DefaultResubscribeInterval)
	v.SetDefault("upload-url", DefaultUploadURL)
	v.SetDefault("art-cache", DefaultArtCache)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TUNECORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	size, err := ParseSize(v.GetString("size"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Verbose:             v.GetBool("verbose"),
		LogLevel:            v.GetString("log-level"),
		LogFile:             v.GetString("log-file"),
		Player:              v.GetString("player"),
		AppID:               v.GetString("app-id"),
		Retries:             v.GetInt("retries"),
		HideButtons:         v.GetBool("hide-button"),
		SkipResize:          v.GetBool("no-resize"),
		Size:                size,
		SeekTolerance:       v.GetDuration("seek-tolerance"),
		ResubscribeInterval: v.GetDuration("resubscribe-interval"),
		UploadURL:           v.GetString("upload-url"),
		ArtCache:            v.GetString("art-cache"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed by flag types alone
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Player) == "" {
		return fmt.Errorf("player name must not be empty")
	}
	if strings.TrimSpace(c.AppID) == "" {
		return fmt.Errorf("application id must not be empty")
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.Size.Width <= 0 || c.Size.Height <= 0 {
		return fmt.Errorf("%w %s", ErrInvalidSize, c.Size)
	}
	if c.SeekTolerance < 0 {
		return fmt.Errorf("seek tolerance must not be negative")
	}
	if c.ResubscribeInterval <= 0 {
		return fmt.Errorf("resubscribe interval must be positive")
	}
	if c.ArtCache == "" {
		c.ArtCache = DefaultArtCache
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tunecord")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "tunecord")
}
