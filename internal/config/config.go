// Package config resolves the demo's settings from defaults, an optional .env file and OXY_* environment variables.
// Command-line flags are layered on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment keys.
const (
	EnvWidth          = "OXY_WIDTH"
	EnvHeight         = "OXY_HEIGHT"
	EnvShadowMapSize  = "OXY_SHADOW_MAP_SIZE"
	EnvPresentMode    = "OXY_PRESENT_MODE"
	EnvAssetDir       = "OXY_ASSET_DIR"
	EnvAlbedo         = "OXY_ALBEDO"
	EnvSpecular       = "OXY_SPECULAR"
	EnvScattering     = "OXY_SCATTERING"
	EnvModel          = "OXY_MODEL"
	EnvLogLevel       = "OXY_LOG_LEVEL"
	EnvHeadlessFrames = "OXY_HEADLESS_FRAMES"
	EnvBlurScale      = "OXY_BLUR_SCALE"
)

// Present modes.
const (
	PresentVsync    = "vsync"
	PresentUncapped = "uncapped"
)

var (
	// ErrInvalidValue is returned when a setting cannot be parsed or is out of range.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config is the resolved demo configuration.
type Config struct {
	Width          int
	Height         int
	ShadowMapSize  int
	PresentMode    string
	AssetDir       string
	Albedo         string
	Specular       string
	Scattering     string
	Model          string // empty renders the built-in sphere
	LogLevel       log.Level
	HeadlessFrames int // zero opens a window
	BlurScale      float64
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Width:         1280,
		Height:        720,
		ShadowMapSize: 2048,
		PresentMode:   PresentVsync,
		AssetDir:      "assets",
		Albedo:        "albedo.png",
		Specular:      "specular.png",
		Scattering:    "scattering.png",
		LogLevel:      log.InfoLevel,
		BlurScale:     4,
	}
}

// Load resolves the configuration: defaults, then the variables in envFile if it exists, then the process
// environment. Process variables win over the file. A missing envFile is not an error.
//
// Parameters:
//   - envFile: path of an optional dotenv file, or "" to skip it
//
// Returns:
//   - Config: the resolved configuration
//   - error: ErrInvalidValue wrapped with the offending key, or a dotenv parse error
func Load(envFile string) (Config, error) {
	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			vars = fileVars
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, "OXY_") {
			vars[k] = v
		}
	}
	return FromMap(vars)
}

// FromMap applies OXY_* settings from vars over the defaults.
//
// Parameters:
//   - vars: environment-style key/value pairs
//
// Returns:
//   - Config: the resolved configuration
//   - error: ErrInvalidValue wrapped with the offending key
func FromMap(vars map[string]string) (Config, error) {
	c := Default()
	var err error

	ints := []struct {
		key string
		dst *int
		min int
	}{
		{EnvWidth, &c.Width, 1},
		{EnvHeight, &c.Height, 1},
		{EnvShadowMapSize, &c.ShadowMapSize, 1},
		{EnvHeadlessFrames, &c.HeadlessFrames, 0},
	}
	for _, f := range ints {
		v, ok := vars[f.key]
		if !ok || v == "" {
			continue
		}
		n, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil || n < f.min {
			return Config{}, fmt.Errorf("%s=%q: %w", f.key, v, ErrInvalidValue)
		}
		*f.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvAssetDir, &c.AssetDir},
		{EnvAlbedo, &c.Albedo},
		{EnvSpecular, &c.Specular},
		{EnvScattering, &c.Scattering},
		{EnvModel, &c.Model},
	}
	for _, f := range strs {
		if v := strings.TrimSpace(vars[f.key]); v != "" {
			*f.dst = v
		}
	}

	if v := strings.TrimSpace(vars[EnvBlurScale]); v != "" {
		scale, perr := strconv.ParseFloat(v, 64)
		if perr != nil || scale <= 0 {
			return Config{}, fmt.Errorf("%s=%q: %w", EnvBlurScale, v, ErrInvalidValue)
		}
		c.BlurScale = scale
	}
	if v := strings.TrimSpace(vars[EnvPresentMode]); v != "" {
		if c.PresentMode, err = ParsePresentMode(v); err != nil {
			return Config{}, err
		}
	}
	if v := strings.TrimSpace(vars[EnvLogLevel]); v != "" {
		if c.LogLevel, err = log.ParseLevel(v); err != nil {
			return Config{}, fmt.Errorf("%s=%q: %w", EnvLogLevel, v, ErrInvalidValue)
		}
	}
	return c, nil
}

// ParsePresentMode normalises a present mode name.
func ParsePresentMode(s string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case PresentVsync, PresentUncapped:
		return m, nil
	default:
		return "", fmt.Errorf("%s=%q: %w", EnvPresentMode, s, ErrInvalidValue)
	}
}

// Validate checks settings that flags may have changed after Load.
func (c Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("canvas %dx%d: %w", c.Width, c.Height, ErrInvalidValue)
	}
	if c.ShadowMapSize < 1 {
		return fmt.Errorf("shadow map size %d: %w", c.ShadowMapSize, ErrInvalidValue)
	}
	if c.HeadlessFrames < 0 {
		return fmt.Errorf("headless frames %d: %w", c.HeadlessFrames, ErrInvalidValue)
	}
	if c.BlurScale <= 0 {
		return fmt.Errorf("blur scale %g: %w", c.BlurScale, ErrInvalidValue)
	}
	if _, err := ParsePresentMode(c.PresentMode); err != nil {
		return err
	}
	return nil
}
