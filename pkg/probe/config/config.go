// Package config handles probe configuration: environment variables, an
// optional .env file, and an optional YAML file listing test videos.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Video is a named test source the user can pick from.
type Video struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Config holds the probe's runtime settings.
type Config struct {
	Headless     bool
	ReportPath   string
	FixturePath  string
	ReadyTimeout time.Duration
	SettleDelay  time.Duration
	Videos       []Video
}

// fileConfig is the YAML shape of an optional vidprobe.yaml. Durations
// are strings in time.ParseDuration format ("10s", "1500ms").
type fileConfig struct {
	Headless     *bool   `yaml:"headless"`
	Report       string  `yaml:"report"`
	Fixture      string  `yaml:"fixture"`
	ReadyTimeout string  `yaml:"ready_timeout"`
	SettleDelay  string  `yaml:"settle_delay"`
	Videos       []Video `yaml:"videos"`
}

// DefaultVideos are known-good public samples offered when the user does
// not supply a URL.
func DefaultVideos() []Video {
	return []Video{
		{Name: "Big Buck Bunny (small)", URL: "https://test-videos.co.uk/vids/bigbuckbunny/mp4/h264/360/Big_Buck_Bunny_360_10s_1MB.mp4"},
		{Name: "Tears of Steel (small)", URL: "https://test-videos.co.uk/vids/tearsofsteel/mp4/360/tears_of_steel_360p_10s.mp4"},
	}
}

// Load reads configuration from environment variables and a .env file if
// one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Headless:     true,
		ReportPath:   getEnv("VIDPROBE_REPORT", "video_test_results.json"),
		FixturePath:  getEnv("VIDPROBE_FIXTURE", "test_video.html"),
		ReadyTimeout: 10 * time.Second,
		SettleDelay:  2 * time.Second,
		Videos:       DefaultVideos(),
	}

	if v := os.Getenv("VIDPROBE_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid VIDPROBE_HEADLESS %q: %w", v, err)
		}
		cfg.Headless = headless
	}

	return cfg, nil
}

// LoadFile loads base settings, then applies overrides from the YAML file
// at path. Only fields present in the file replace the defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if file.Headless != nil {
		cfg.Headless = *file.Headless
	}
	if file.Report != "" {
		cfg.ReportPath = file.Report
	}
	if file.Fixture != "" {
		cfg.FixturePath = file.Fixture
	}
	if file.ReadyTimeout != "" {
		d, err := time.ParseDuration(file.ReadyTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid ready_timeout: %w", err)
		}
		cfg.ReadyTimeout = d
	}
	if file.SettleDelay != "" {
		d, err := time.ParseDuration(file.SettleDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid settle_delay: %w", err)
		}
		cfg.SettleDelay = d
	}
	if len(file.Videos) > 0 {
		cfg.Videos = file.Videos
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
