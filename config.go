package spinebox

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// SampleConfig declares a reference bundle listed ahead of cached bundles.
// No samples are built in; a config file adds them with sample blocks whose
// locators resolve against assets_dir (or are http(s) URLs):
//
//	assets_dir = "assets"
//
//	sample "Raptor" {
//	  atlas    = "raptor.atlas"
//	  skeleton = "raptor.skel"
//	  texture  = "raptor.png"
//	}
type SampleConfig struct {
	Name     string
	Atlas    string
	Skeleton string
	Texture  string
}

// Config holds every tunable of the sandbox.
type Config struct {
	Title  string
	Width  int
	Height int

	// MoveSpeed is the bulk scroll speed in pixels per second.
	MoveSpeed    float64
	BulkCount    int
	PreviewScale float64
	BulkScale    float64
	WheelFactor  float64
	// MixDuration is the animation crossfade in seconds.
	MixDuration float64

	// CachePath is the bbolt file. Empty disables persistence.
	CachePath string
	// AssetsDir is the root sample locators are resolved against.
	AssetsDir string

	LogLevel  string
	LogFormat string

	Samples []SampleConfig
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Title:        "spinebox",
		Width:        800,
		Height:       600,
		MoveSpeed:    500,
		BulkCount:    DefaultBulkCount,
		PreviewScale: PreviewScale,
		BulkScale:    BulkScale,
		WheelFactor:  DefaultWheelFactor,
		MixDuration:  DefaultMixDuration,
		CachePath:    "spinebox.db",
		AssetsDir:    ".",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// SampleBundles builds the reference bundles for c.Samples.
func (c Config) SampleBundles() []*AssetBundle {
	out := make([]*AssetBundle, 0, len(c.Samples))
	for _, s := range c.Samples {
		out = append(out, NewReferenceBundle(s.Name, s.Atlas, s.Skeleton, s.Texture))
	}
	return out
}

// Validate rejects values the sandbox cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("spinebox: config: window size %dx%d must be positive", c.Width, c.Height)
	case c.BulkCount <= 0:
		return fmt.Errorf("spinebox: config: bulk_count %d must be positive", c.BulkCount)
	case c.PreviewScale <= 0 || c.BulkScale <= 0:
		return fmt.Errorf("spinebox: config: entity scales must be positive")
	case c.WheelFactor <= 0:
		return fmt.Errorf("spinebox: config: wheel_factor must be positive")
	case c.MixDuration < 0:
		return fmt.Errorf("spinebox: config: mix_duration must not be negative")
	}
	seen := make(map[string]bool, len(c.Samples))
	for _, s := range c.Samples {
		if seen[s.Name] {
			return fmt.Errorf("spinebox: config: duplicate sample %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// hclConfigFile is the on-disk shape of a config file. Every attribute is
// optional and overlays DefaultConfig.
type hclConfigFile struct {
	Title        *string      `hcl:"title,optional"`
	Width        *int         `hcl:"width,optional"`
	Height       *int         `hcl:"height,optional"`
	MoveSpeed    *float64     `hcl:"move_speed,optional"`
	BulkCount    *int         `hcl:"bulk_count,optional"`
	PreviewScale *float64     `hcl:"preview_scale,optional"`
	BulkScale    *float64     `hcl:"bulk_scale,optional"`
	WheelFactor  *float64     `hcl:"wheel_factor,optional"`
	MixDuration  *float64     `hcl:"mix_duration,optional"`
	CachePath    *string      `hcl:"cache_path,optional"`
	AssetsDir    *string      `hcl:"assets_dir,optional"`
	LogLevel     *string      `hcl:"log_level,optional"`
	LogFormat    *string      `hcl:"log_format,optional"`
	Samples      []*hclSample `hcl:"sample,block"`
}

type hclSample struct {
	Name     string `hcl:"name,label"`
	Atlas    string `hcl:"atlas"`
	Skeleton string `hcl:"skeleton"`
	Texture  string `hcl:"texture"`
}

// LoadConfig reads an HCL config file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("spinebox: read config %s: %w", path, err)
	}
	return ParseConfig(src, path)
}

// ParseConfig decodes HCL source over DefaultConfig. Sample blocks become
// Config.Samples in declaration order.
func ParseConfig(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("spinebox: parse config %s: %w", filename, diags)
	}
	var raw hclConfigFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return Config{}, fmt.Errorf("spinebox: decode config %s: %w", filename, diags)
	}

	c := DefaultConfig()
	setString(&c.Title, raw.Title)
	setInt(&c.Width, raw.Width)
	setInt(&c.Height, raw.Height)
	setFloat(&c.MoveSpeed, raw.MoveSpeed)
	setInt(&c.BulkCount, raw.BulkCount)
	setFloat(&c.PreviewScale, raw.PreviewScale)
	setFloat(&c.BulkScale, raw.BulkScale)
	setFloat(&c.WheelFactor, raw.WheelFactor)
	setFloat(&c.MixDuration, raw.MixDuration)
	setString(&c.CachePath, raw.CachePath)
	setString(&c.AssetsDir, raw.AssetsDir)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.LogFormat, raw.LogFormat)
	if len(raw.Samples) > 0 {
		c.Samples = c.Samples[:0:0]
		for _, s := range raw.Samples {
			c.Samples = append(c.Samples, SampleConfig(*s))
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// NewLogger builds a slog logger. level is debug, info, warn or error
// (default info); format is text or json (default text).
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
