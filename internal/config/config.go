package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"movie-meme-api/internal/thumbnail"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Server holds listener and HTTP surface settings.
type Server struct {
	Port          int      `toml:"port"`
	Mode          string   `toml:"mode"`
	PublicBaseURL string   `toml:"public_base_url"`
	CORSOrigins   []string `toml:"cors_origins"`
}

// Storage locates the Asset Store and the Catalog Store.
type Storage struct {
	UploadDir   string `toml:"upload_dir"`
	DatabaseURL string `toml:"database_url"`
}

// Upload holds intake limits.
type Upload struct {
	MaxBytes      int64 `toml:"max_bytes"`
	MaxBatchFiles int   `toml:"max_batch_files"`
}

// Thumbnail configures the external frame extraction tools.
type Thumbnail struct {
	FFmpeg   string `toml:"ffmpeg"`
	FFprobe  string `toml:"ffprobe"`
	Size     string `toml:"size"`
	Position string `toml:"position"`
}

// Auth configures the optional owner-token check on delete.
type Auth struct {
	OwnerTokenSecret string `toml:"owner_token_secret"`
}

// Log configures the logger.
type Log struct {
	Level string `toml:"level"`
}

// Config is read once at start and passed to the components that need it.
type Config struct {
	Server    Server    `toml:"server"`
	Storage   Storage   `toml:"storage"`
	Upload    Upload    `toml:"upload"`
	Thumbnail Thumbnail `toml:"thumbnail"`
	Auth      Auth      `toml:"auth"`
	Log       Log       `toml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: Server{
			Port:        5000,
			Mode:        "release",
			CORSOrigins: []string{"*"},
		},
		Storage: Storage{
			UploadDir:   "./uploads",
			DatabaseURL: "./data/memes.db",
		},
		Upload: Upload{
			MaxBytes:      100 << 20,
			MaxBatchFiles: 10,
		},
		Thumbnail: Thumbnail{
			FFmpeg:   "ffmpeg",
			FFprobe:  "ffprobe",
			Size:     "320x240",
			Position: "25%",
		},
		Log: Log{Level: "info"},
	}
}

// Load builds the configuration from defaults, the optional TOML file at path,
// a .env file in the working directory and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	str("GIN_MODE", &c.Server.Mode)
	str("PUBLIC_BASE_URL", &c.Server.PublicBaseURL)
	if v, ok := lookup("CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	str("UPLOAD_DIR", &c.Storage.UploadDir)
	str("DATABASE_URL", &c.Storage.DatabaseURL)

	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.Upload.MaxBytes = n
	}
	if v, ok := lookup("MAX_BATCH_FILES"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MAX_BATCH_FILES: %w", err)
		}
		c.Upload.MaxBatchFiles = n
	}

	str("FFMPEG_PATH", &c.Thumbnail.FFmpeg)
	str("FFPROBE_PATH", &c.Thumbnail.FFprobe)
	str("THUMBNAIL_SIZE", &c.Thumbnail.Size)
	str("THUMBNAIL_POSITION", &c.Thumbnail.Position)

	str("OWNER_TOKEN_SECRET", &c.Auth.OwnerTokenSecret)
	str("LOG_LEVEL", &c.Log.Level)
	return nil
}

func (c *Config) normalize() error {
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	c.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))

	dir, err := filepath.Abs(c.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("resolve upload dir: %w", err)
	}
	c.Storage.UploadDir = dir
	return nil
}

// Validate checks that the configuration can be used to start the server.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	if len(c.Server.CORSOrigins) == 0 {
		return errors.New("at least one CORS origin is required")
	}
	if strings.TrimSpace(c.Storage.UploadDir) == "" {
		return errors.New("upload dir is required")
	}
	if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
		return errors.New("database url is required")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxBatchFiles <= 0 {
		return fmt.Errorf("max batch files must be positive, got %d", c.Upload.MaxBatchFiles)
	}
	if _, _, err := ParseSize(c.Thumbnail.Size); err != nil {
		return err
	}
	if _, err := thumbnail.ParsePosition(c.Thumbnail.Position); err != nil {
		return err
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// OwnerTokensEnabled reports whether deletes require an owner token.
func (c Config) OwnerTokensEnabled() bool {
	return c.Auth.OwnerTokenSecret != ""
}

// ParseSize parses a WIDTHxHEIGHT string.
func ParseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: bad width", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: bad height", s)
	}
	return width, height, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
