// Package config holds the settings shared by the signpair commands.
//
// Settings are resolved in three layers: the built-in defaults, an
// optional YAML file and finally the command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signpair/signpair/utils"
)

// Render configures the sign renderer.
type Render struct {
	LineFont string  `yaml:"line_font"`
	FillFont string  `yaml:"fill_font"`
	FontSize float64 `yaml:"font_size"`
	// Symbols renders layout directories from their per-symbol bitmaps.
	Symbols bool `yaml:"symbols"`
}

// Matcher configures the similarity matcher.
type Matcher struct {
	Threshold float64 `yaml:"threshold"`
	ReviewMin float64 `yaml:"review_min"`
	ReviewMax float64 `yaml:"review_max"`
}

// Config is the complete configuration of a run. Relative dataset paths
// (glosses, illustrations, signs, manifest) are resolved against Dataset.
type Config struct {
	Size       int    `yaml:"size"`
	Workers    int    `yaml:"workers"`
	Background string `yaml:"background"`

	Datasets string `yaml:"datasets"`
	Train    string `yaml:"train"`

	Dataset       string   `yaml:"dataset"`
	Glosses       string   `yaml:"glosses"`
	Illustrations string   `yaml:"illustrations"`
	Signs         string   `yaml:"signs"`
	Gold          string   `yaml:"gold"`
	Manifest      string   `yaml:"manifest"`
	Lexicon       []string `yaml:"lexicon"`

	Render  Render  `yaml:"render"`
	Matcher Matcher `yaml:"matcher"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Size:          256,
		Workers:       0,
		Background:    "#ffffff",
		Datasets:      "datasets",
		Train:         "train",
		Dataset:       ".",
		Glosses:       "SW_signs_glosses",
		Illustrations: "illustrations",
		Signs:         "glossen",
		Gold:          "glossen",
		Manifest:      "writing.json",
		Lexicon:       []string{"lexicon.tsv", "wortschatz.tsv", "Vokabeltrainer-Glossen.txt"},
		Render: Render{
			LineFont: "SuttonSignWritingLine.ttf",
			FillFont: "SuttonSignWritingFill.ttf",
			FontSize: 30,
		},
		Matcher: Matcher{
			Threshold: 0.93,
			ReviewMin: 0.97,
			ReviewMax: 0.98,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An
// empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decode overlays the YAML document in data. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch {
	case c.Size < 2 || c.Size%2 != 0:
		return fmt.Errorf("size must be an even number of at least 2 pixels, got %d", c.Size)
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	case c.Render.FontSize <= 0:
		return fmt.Errorf("font size must be positive, got %v", c.Render.FontSize)
	case c.Matcher.ReviewMin > c.Matcher.ReviewMax:
		return fmt.Errorf("review band [%v, %v] is inverted", c.Matcher.ReviewMin, c.Matcher.ReviewMax)
	}
	if _, err := c.BackgroundColor(); err != nil {
		return err
	}
	return nil
}

// BackgroundColor parses the background hex color.
func (c *Config) BackgroundColor() (color.Color, error) {
	return utils.HexToRGBA(c.Background)
}

// Write encodes the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
