// Package config loads the policy values the reconciler consumes as
// read-only configuration: decoration colors, gradient and dithering
// settings, border hiding, title alignment and pointer-warp behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// TitleAlign positions the title text inside the decoration.
type TitleAlign string

const (
	AlignLeft   TitleAlign = "left"
	AlignCenter TitleAlign = "center"
	AlignRight  TitleAlign = "right"
)

// MouseWarping selects when the pointer follows focus across outputs.
type MouseWarping string

const (
	WarpOutput MouseWarping = "output"
	WarpNone   MouseWarping = "none"
)

// Colors is one decoration color class. All fields take part in decoration
// cache comparison, so the struct must stay comparable.
type Colors struct {
	Border      draw.Color
	Background  draw.Color
	Text        draw.Color
	Indicator   draw.Color
	ChildBorder draw.Color
}

// Client groups the per-window decoration settings.
type Client struct {
	Focused         Colors
	FocusedInactive Colors
	FocusedTabTitle Colors
	Unfocused       Colors
	Urgent          Colors
	Background      draw.Color

	// GotFocusedTabTitle is set when the user configured the
	// focused_tab_title class explicitly.
	GotFocusedTabTitle bool

	Gradients              bool
	GradientStart          draw.Color
	GradientEnd            draw.Color
	GradientUnfocusedStart draw.Color
	GradientUnfocusedEnd   draw.Color
	Dithering              bool
	DitherNoise            float64
	GradientOffsetStart    float64
	GradientOffsetEnd      float64
}

// Config is the full policy snapshot the reconciler reads each pass.
type Config struct {
	Client            Client
	HideEdgeBorders   tree.Adjacency
	TitleAlign        TitleAlign
	ShowMarks         bool
	WindowIconPadding int // -1 disables icons
	MouseWarping      MouseWarping
}

// Default returns the compiled-in configuration.
func Default() *Config {
	cfg := &Config{
		HideEdgeBorders:   tree.AdjNone,
		TitleAlign:        AlignLeft,
		ShowMarks:         true,
		WindowIconPadding: -1,
		MouseWarping:      WarpOutput,
	}
	c := &cfg.Client
	c.Background = mustColor("#000000")
	c.Focused = mustColors("#4c7899", "#285577", "#ffffff", "#2e9ef4")
	c.FocusedInactive = mustColors("#333333", "#5f676a", "#ffffff", "#484e50")
	c.FocusedTabTitle = c.FocusedInactive
	c.Unfocused = mustColors("#333333", "#222222", "#888888", "#292d2e")
	c.Urgent = mustColors("#2f343a", "#900000", "#ffffff", "#900000")
	c.Gradients = true
	c.GradientStart = mustColor("#1f1947")
	c.GradientEnd = mustColor("#2e9ef4")
	c.GradientUnfocusedStart = mustColor("#303331")
	c.GradientUnfocusedEnd = mustColor("#9da6a0")
	c.Dithering = false
	c.DitherNoise = 0.5
	c.GradientOffsetStart = 0.0
	c.GradientOffsetEnd = 1.0
	return cfg
}

// DefaultConfigPath returns ~/.config/consync/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "consync", "config.yaml"), nil
}

// rawConfig mirrors the yaml file. Absent fields keep their defaults.
type rawConfig struct {
	Colors struct {
		Focused         *rawColors `yaml:"focused"`
		FocusedInactive *rawColors `yaml:"focused_inactive"`
		FocusedTabTitle *rawColors `yaml:"focused_tab_title"`
		Unfocused       *rawColors `yaml:"unfocused"`
		Urgent          *rawColors `yaml:"urgent"`
		Background      string     `yaml:"background"`
	} `yaml:"colors"`
	Gradients struct {
		Enabled        *bool    `yaml:"enabled"`
		Start          string   `yaml:"start"`
		End            string   `yaml:"end"`
		UnfocusedStart string   `yaml:"unfocused_start"`
		UnfocusedEnd   string   `yaml:"unfocused_end"`
		Dithering      *bool    `yaml:"dithering"`
		DitherNoise    *float64 `yaml:"dither_noise"`
		OffsetStart    *float64 `yaml:"offset_start"`
		OffsetEnd      *float64 `yaml:"offset_end"`
	} `yaml:"gradients"`
	HideEdgeBorders   string `yaml:"hide_edge_borders"`
	TitleAlign        string `yaml:"title_align"`
	ShowMarks         *bool  `yaml:"show_marks"`
	WindowIconPadding *int   `yaml:"window_icon_padding"`
	MouseWarping      string `yaml:"mouse_warping"`
}

type rawColors struct {
	Border      string `yaml:"border"`
	Background  string `yaml:"background"`
	Text        string `yaml:"text"`
	Indicator   string `yaml:"indicator"`
	ChildBorder string `yaml:"child_border"`
}

// Load reads the configuration from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and merges the configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := applyRaw(cfg, &raw); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyRaw(cfg *Config, raw *rawConfig) error {
	c := &cfg.Client
	for _, e := range []struct {
		raw *rawColors
		dst *Colors
	}{
		{raw.Colors.Focused, &c.Focused},
		{raw.Colors.FocusedInactive, &c.FocusedInactive},
		{raw.Colors.Unfocused, &c.Unfocused},
		{raw.Colors.Urgent, &c.Urgent},
	} {
		if err := applyColors(e.raw, e.dst); err != nil {
			return err
		}
	}
	if raw.Colors.FocusedTabTitle != nil {
		if err := applyColors(raw.Colors.FocusedTabTitle, &c.FocusedTabTitle); err != nil {
			return err
		}
		c.GotFocusedTabTitle = true
	}
	if err := applyColor(raw.Colors.Background, &c.Background); err != nil {
		return err
	}

	g := &raw.Gradients
	if g.Enabled != nil {
		c.Gradients = *g.Enabled
	}
	if err := applyColor(g.Start, &c.GradientStart); err != nil {
		return err
	}
	if err := applyColor(g.End, &c.GradientEnd); err != nil {
		return err
	}
	if err := applyColor(g.UnfocusedStart, &c.GradientUnfocusedStart); err != nil {
		return err
	}
	if err := applyColor(g.UnfocusedEnd, &c.GradientUnfocusedEnd); err != nil {
		return err
	}
	if g.Dithering != nil {
		c.Dithering = *g.Dithering
	}
	if g.DitherNoise != nil {
		c.DitherNoise = *g.DitherNoise
	}
	if g.OffsetStart != nil {
		c.GradientOffsetStart = *g.OffsetStart
	}
	if g.OffsetEnd != nil {
		c.GradientOffsetEnd = *g.OffsetEnd
	}

	if raw.HideEdgeBorders != "" {
		adj, err := ParseHideEdgeBorders(raw.HideEdgeBorders)
		if err != nil {
			return err
		}
		cfg.HideEdgeBorders = adj
	}
	if raw.TitleAlign != "" {
		switch TitleAlign(raw.TitleAlign) {
		case AlignLeft, AlignCenter, AlignRight:
			cfg.TitleAlign = TitleAlign(raw.TitleAlign)
		default:
			return fmt.Errorf("unknown title_align %q", raw.TitleAlign)
		}
	}
	if raw.ShowMarks != nil {
		cfg.ShowMarks = *raw.ShowMarks
	}
	if raw.WindowIconPadding != nil {
		cfg.WindowIconPadding = *raw.WindowIconPadding
	}
	if raw.MouseWarping != "" {
		switch MouseWarping(raw.MouseWarping) {
		case WarpOutput, WarpNone:
			cfg.MouseWarping = MouseWarping(raw.MouseWarping)
		default:
			return fmt.Errorf("unknown mouse_warping %q", raw.MouseWarping)
		}
	}
	return nil
}

func applyColors(raw *rawColors, dst *Colors) error {
	if raw == nil {
		return nil
	}
	for _, e := range []struct {
		s string
		c *draw.Color
	}{
		{raw.Border, &dst.Border},
		{raw.Background, &dst.Background},
		{raw.Text, &dst.Text},
		{raw.Indicator, &dst.Indicator},
		{raw.ChildBorder, &dst.ChildBorder},
	} {
		if err := applyColor(e.s, e.c); err != nil {
			return err
		}
	}
	return nil
}

func applyColor(s string, dst *draw.Color) error {
	if s == "" {
		return nil
	}
	c, err := ParseColor(s)
	if err != nil {
		return err
	}
	*dst = c
	return nil
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (draw.Color, error) {
	if (len(s) != 7 && len(s) != 9) || s[0] != '#' {
		return draw.Color{}, fmt.Errorf("could not parse color %q", s)
	}
	channel := func(hex string) (float64, error) {
		v, err := strconv.ParseUint(hex, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("could not parse color %q: %w", s, err)
		}
		return float64(v) / 255.0, nil
	}
	var c draw.Color
	var err error
	if c.R, err = channel(s[1:3]); err != nil {
		return c, err
	}
	if c.G, err = channel(s[3:5]); err != nil {
		return c, err
	}
	if c.B, err = channel(s[5:7]); err != nil {
		return c, err
	}
	c.A = 1
	if len(s) == 9 {
		if c.A, err = channel(s[7:9]); err != nil {
			return c, err
		}
	}
	return c, nil
}

// ParseHideEdgeBorders parses the border hide policy. Accepts the edge
// keywords or a boolean for compatibility with old configs.
func ParseHideEdgeBorders(s string) (tree.Adjacency, error) {
	switch strings.ToLower(s) {
	case "none", "false", "0", "off", "no":
		return tree.AdjNone, nil
	case "vertical":
		return tree.AdjLeft | tree.AdjRight, nil
	case "horizontal":
		return tree.AdjUpper | tree.AdjLower, nil
	case "both", "true", "1", "on", "yes":
		return tree.AdjLeft | tree.AdjRight | tree.AdjUpper | tree.AdjLower, nil
	default:
		return tree.AdjNone, fmt.Errorf("unknown hide_edge_borders %q", s)
	}
}

func mustColor(s string) draw.Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func mustColors(border, background, text, indicator string) Colors {
	return Colors{
		Border:      mustColor(border),
		Background:  mustColor(background),
		Text:        mustColor(text),
		Indicator:   mustColor(indicator),
		ChildBorder: mustColor(background),
	}
}
