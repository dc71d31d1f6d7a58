package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/odmlbook/inkvision/log"
)

const (
	EnvConfig          = "INKVISION_CONFIG"
	EnvHwrKey          = "INKVISION_HWR_APPLICATIONKEY"
	EnvHwrHmac         = "INKVISION_HWR_HMAC"
	EnvGoogleCreds     = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvJWTSecret       = "INKVISION_JWT_SECRET"
	defaultConfigName  = "config.yaml"
	defaultConfigDir   = "inkvision"
	defaultTolerance   = 8
	defaultBatchSize   = 3
	defaultMaxDim      = 1024
	defaultMaxResults  = 10
	defaultServerPort  = "8080"
	defaultStrokeWidth = 4
	defaultTextSize    = 54
)

type Capture struct {
	// TouchTolerance is the minimal movement, in surface pixels, for a
	// pointer sample to be recorded.
	TouchTolerance float32 `yaml:"touch_tolerance"`
}

type Overlay struct {
	StrokeWidth float64 `yaml:"stroke_width"`
	TextSize    float64 `yaml:"text_size"`
	Font        string  `yaml:"font"`
	Mirrored    bool    `yaml:"mirrored"`
	ViewWidth   float64 `yaml:"view_width"`
	ViewHeight  float64 `yaml:"view_height"`
}

type Hwr struct {
	ApplicationKey string `yaml:"application_key"`
	HmacKey        string `yaml:"hmac_key"`
	Endpoint       string `yaml:"endpoint"`
	Lang           string `yaml:"lang"`
	ContentType    string `yaml:"content_type"`
	BatchSize      int64  `yaml:"batch_size"`
}

type Vision struct {
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
	Mode            string `yaml:"mode"`
	MaxResults      int    `yaml:"max_results"`
	MaxDimension    uint   `yaml:"max_dimension"`
}

type Server struct {
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Capture Capture `yaml:"capture"`
	Overlay Overlay `yaml:"overlay"`
	Hwr     Hwr     `yaml:"hwr"`
	Vision  Vision  `yaml:"vision"`
	Server  Server  `yaml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Capture: Capture{TouchTolerance: defaultTolerance},
		Overlay: Overlay{
			StrokeWidth: defaultStrokeWidth,
			TextSize:    defaultTextSize,
			Font:        "Helvetica",
			ViewWidth:   1080,
			ViewHeight:  1920,
		},
		Hwr: Hwr{
			Lang:        "en_US",
			ContentType: "Text",
			BatchSize:   defaultBatchSize,
		},
		Vision: Vision{
			Mode:         "objects",
			MaxResults:   defaultMaxResults,
			MaxDimension: defaultMaxDim,
		},
		Server: Server{Port: defaultServerPort},
	}
}

// Path returns the config file location, INKVISION_CONFIG wins over the
// user config dir.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "can't determine config dir")
	}
	return filepath.Join(dir, defaultConfigDir, defaultConfigName), nil
}

// Load reads the config file at path. A missing file is not an error, the
// defaults are used. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Trace.Printf("config %s not found, using defaults", path)
	case err != nil:
		return cfg, errors.Wrapf(err, "can't read config %s", path)
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "can't parse config %s", path)
		}
		log.Trace.Printf("config loaded: %s", path)
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

// LoadDefault loads the config from Path().
func LoadDefault() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	return Load(p)
}

// Save writes the config as yaml, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "can't create config dir")
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHwrKey); v != "" {
		c.Hwr.ApplicationKey = v
	}
	if v := os.Getenv(EnvHwrHmac); v != "" {
		c.Hwr.HmacKey = v
	}
	if v := os.Getenv(EnvGoogleCreds); v != "" && c.Vision.CredentialsFile == "" {
		c.Vision.CredentialsFile = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
}

// fillDefaults replaces invalid values. Keys absent from the file already
// hold their defaults since the file is decoded over Default(). A touch
// tolerance of 0 is kept: it records every sample.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Capture.TouchTolerance < 0 {
		c.Capture.TouchTolerance = d.Capture.TouchTolerance
	}
	if c.Overlay.StrokeWidth <= 0 {
		c.Overlay.StrokeWidth = d.Overlay.StrokeWidth
	}
	if c.Overlay.TextSize <= 0 {
		c.Overlay.TextSize = d.Overlay.TextSize
	}
	if c.Overlay.Font == "" {
		c.Overlay.Font = d.Overlay.Font
	}
	if c.Overlay.ViewWidth <= 0 || c.Overlay.ViewHeight <= 0 {
		c.Overlay.ViewWidth, c.Overlay.ViewHeight = d.Overlay.ViewWidth, d.Overlay.ViewHeight
	}
	if c.Hwr.Lang == "" {
		c.Hwr.Lang = d.Hwr.Lang
	}
	if c.Hwr.ContentType == "" {
		c.Hwr.ContentType = d.Hwr.ContentType
	}
	if c.Hwr.BatchSize <= 0 {
		c.Hwr.BatchSize = d.Hwr.BatchSize
	}
	if c.Vision.Mode == "" {
		c.Vision.Mode = d.Vision.Mode
	}
	if c.Vision.MaxResults <= 0 {
		c.Vision.MaxResults = d.Vision.MaxResults
	}
	if c.Vision.MaxDimension == 0 {
		c.Vision.MaxDimension = d.Vision.MaxDimension
	}
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
}
