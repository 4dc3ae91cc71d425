package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    draw.Color
		wantErr bool
	}{
		{in: "#000000", want: draw.Color{A: 1}},
		{in: "#ffffff", want: draw.Color{R: 1, G: 1, B: 1, A: 1}},
		{in: "#ff0000", want: draw.Color{R: 1, A: 1}},
		{in: "#28557780", want: draw.Color{R: 0x28 / 255.0, G: 0x55 / 255.0, B: 0x77 / 255.0, A: 128 / 255.0}},
		{in: "285577", wantErr: true},
		{in: "#28557", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q): expected error, got %+v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseHideEdgeBorders(t *testing.T) {
	tests := []struct {
		in      string
		want    tree.Adjacency
		wantErr bool
	}{
		{in: "none", want: tree.AdjNone},
		{in: "off", want: tree.AdjNone},
		{in: "vertical", want: tree.AdjLeft | tree.AdjRight},
		{in: "horizontal", want: tree.AdjUpper | tree.AdjLower},
		{in: "both", want: tree.AdjLeft | tree.AdjRight | tree.AdjUpper | tree.AdjLower},
		{in: "TRUE", want: tree.AdjLeft | tree.AdjRight | tree.AdjUpper | tree.AdjLower},
		{in: "sideways", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHideEdgeBorders(tt.in)
		if tt.wantErr != (err != nil) {
			t.Errorf("ParseHideEdgeBorders(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseHideEdgeBorders(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	def := Default()
	if cfg.TitleAlign != def.TitleAlign || cfg.MouseWarping != def.MouseWarping {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
	if cfg.Client != def.Client {
		t.Error("missing file did not yield default client colors")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
colors:
  focused:
    background: "#112233"
  focused_tab_title:
    text: "#abcdef"
gradients:
  enabled: false
  dither_noise: 0.25
hide_edge_borders: vertical
title_align: center
mouse_warping: none
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	want, _ := ParseColor("#112233")
	if cfg.Client.Focused.Background != want {
		t.Errorf("focused background = %+v, want %+v", cfg.Client.Focused.Background, want)
	}
	// Fields absent from the file keep their defaults.
	def := Default()
	if cfg.Client.Focused.Text != def.Client.Focused.Text {
		t.Error("focused text should keep its default")
	}
	if cfg.Client.Unfocused != def.Client.Unfocused {
		t.Error("unfocused class should keep its defaults")
	}

	if !cfg.Client.GotFocusedTabTitle {
		t.Error("explicit focused_tab_title not flagged")
	}
	if cfg.Client.Gradients {
		t.Error("gradients not disabled")
	}
	if cfg.Client.DitherNoise != 0.25 {
		t.Errorf("dither noise = %v, want 0.25", cfg.Client.DitherNoise)
	}
	if cfg.HideEdgeBorders != tree.AdjLeft|tree.AdjRight {
		t.Errorf("hide_edge_borders = %v, want vertical", cfg.HideEdgeBorders)
	}
	if cfg.TitleAlign != AlignCenter {
		t.Errorf("title_align = %q, want center", cfg.TitleAlign)
	}
	if cfg.MouseWarping != WarpNone {
		t.Errorf("mouse_warping = %q, want none", cfg.MouseWarping)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad color", "colors:\n  urgent:\n    border: \"red\"\n"},
		{"bad align", "title_align: justified\n"},
		{"bad warp", "mouse_warping: always\n"},
		{"bad edge policy", "hide_edge_borders: diagonal\n"},
		{"bad yaml", "colors: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromPath(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultChildBorderFollowsBackground(t *testing.T) {
	def := Default()
	classes := []struct {
		name string
		c    Colors
	}{
		{"focused", def.Client.Focused},
		{"focused_inactive", def.Client.FocusedInactive},
		{"unfocused", def.Client.Unfocused},
		{"urgent", def.Client.Urgent},
	}
	for _, cl := range classes {
		if cl.c.ChildBorder != cl.c.Background {
			t.Errorf("%s child border = %+v, want background %+v", cl.name, cl.c.ChildBorder, cl.c.Background)
		}
	}

	want, _ := ParseColor("#285577")
	if def.Client.Focused.ChildBorder != want {
		t.Errorf("focused child border = %+v, want %+v", def.Client.Focused.ChildBorder, want)
	}
}

func TestFocusedTabTitleFallsBackToFocusedInactive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "colors:\n  focused_inactive:\n    background: \"#445566\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Client.GotFocusedTabTitle {
		t.Error("focused_tab_title flagged without explicit configuration")
	}
}
