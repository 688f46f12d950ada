// Package config loads qnote settings from config.toml, merged over
// built-in defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type EditorOptions struct {
	BodyFontSize    int    `toml:"body-font-size"`
	HeaderFontSizes []int  `toml:"header-font-sizes"` // H1..H6 point sizes
	ThumbnailWidth  int    `toml:"thumbnail-width"`   // pixels
	AutosaveMS      int    `toml:"autosave-ms"`       // debounce quiet period
	ScrollMargin    int    `toml:"scroll-margin"`     // rows kept around the caret
	DataDir         string `toml:"data-dir"`          // note db + media root, "" = default
}

type Theme struct {
	Foreground           string `toml:"foreground"`
	Background           string `toml:"background"`
	StatuslineForeground string `toml:"statusline-foreground"`
	StatuslineBackground string `toml:"statusline-background"`
	SelectionForeground  string `toml:"selection-foreground"`
	SelectionBackground  string `toml:"selection-background"`
	AttachmentBorder     string `toml:"attachment-border"`
	HeaderForeground     string `toml:"header-foreground"`
	LinkForeground       string `toml:"link-foreground"`
}

type Keymap struct {
	Edit map[string]string `toml:"edit"`
}

type Transcribe struct {
	Endpoint string `toml:"endpoint"`
	Language string `toml:"language"`
}

type Config struct {
	Editor     EditorOptions `toml:"editor"`
	Theme      Theme         `toml:"theme"`
	Keymap     Keymap        `toml:"keymap"`
	Transcribe Transcribe    `toml:"transcribe"`
}

func Default() Config {
	return Config{
		Editor: EditorOptions{
			BodyFontSize:    12,
			HeaderFontSizes: []int{28, 24, 20, 17, 15, 13},
			ThumbnailWidth:  480,
			AutosaveMS:      400,
			ScrollMargin:    2,
		},
		Theme: Theme{
			Foreground:           "#B3B1AD",
			Background:           "#0A0E14",
			StatuslineForeground: "#B3B1AD",
			StatuslineBackground: "#0F1419",
			SelectionForeground:  "#B3B1AD",
			SelectionBackground:  "#27425A",
			AttachmentBorder:     "#3E4B59",
			HeaderForeground:     "#FFD173",
			LinkForeground:       "#59C2FF",
		},
		Keymap: Keymap{
			Edit: map[string]string{
				"ctrl+b": "toggle_bold",
				"ctrl+t": "toggle_italic",
				"ctrl+u": "toggle_underline",
				// Not ctrl+h: terminals send backspace as 0x08, the
				// same code, and backspace must always delete.
				"ctrl+e": "cycle_header",
				"ctrl+o": "insert_image",
				"ctrl+g": "transcribe_audio",
				"ctrl+s": "save",
				"ctrl+z": "undo",
				"ctrl+r": "redo",
				"ctrl+l": "note_list",
				"ctrl+q": "quit",
			},
		},
	}
}

// ConfigPath returns the location of config.toml, honoring
// QNOTE_CONFIG_HOME and XDG_CONFIG_HOME.
func ConfigPath() (string, error) {
	if v := os.Getenv("QNOTE_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "config.toml"), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qnote", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qnote", "config.toml"), nil
}

// DefaultDataDir is where the note database and media store live when
// the config does not say otherwise.
func DefaultDataDir() (string, error) {
	if v := os.Getenv("QNOTE_DATA_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "qnote"), nil
}

// Load reads the user config and merges it over Default(). A missing
// file is not an error.
func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	if _, err := toml.Decode(string(data), &userCfg); err != nil {
		return cfg, err
	}

	if userCfg.Editor.BodyFontSize > 0 {
		cfg.Editor.BodyFontSize = userCfg.Editor.BodyFontSize
	}
	if len(userCfg.Editor.HeaderFontSizes) == 6 {
		cfg.Editor.HeaderFontSizes = userCfg.Editor.HeaderFontSizes
	}
	if userCfg.Editor.ThumbnailWidth > 0 {
		cfg.Editor.ThumbnailWidth = userCfg.Editor.ThumbnailWidth
	}
	if userCfg.Editor.AutosaveMS > 0 {
		cfg.Editor.AutosaveMS = userCfg.Editor.AutosaveMS
	}
	if userCfg.Editor.ScrollMargin > 0 {
		cfg.Editor.ScrollMargin = userCfg.Editor.ScrollMargin
	}
	if userCfg.Editor.DataDir != "" {
		cfg.Editor.DataDir = userCfg.Editor.DataDir
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)
	for k, v := range userCfg.Keymap.Edit {
		cfg.Keymap.Edit[k] = v
	}
	if userCfg.Transcribe.Endpoint != "" {
		cfg.Transcribe.Endpoint = userCfg.Transcribe.Endpoint
	}
	if userCfg.Transcribe.Language != "" {
		cfg.Transcribe.Language = userCfg.Transcribe.Language
	}
	return cfg, nil
}

func mergeTheme(dst *Theme, src Theme) {
	if src.Foreground != "" {
		dst.Foreground = src.Foreground
	}
	if src.Background != "" {
		dst.Background = src.Background
	}
	if src.StatuslineForeground != "" {
		dst.StatuslineForeground = src.StatuslineForeground
	}
	if src.StatuslineBackground != "" {
		dst.StatuslineBackground = src.StatuslineBackground
	}
	if src.SelectionForeground != "" {
		dst.SelectionForeground = src.SelectionForeground
	}
	if src.SelectionBackground != "" {
		dst.SelectionBackground = src.SelectionBackground
	}
	if src.AttachmentBorder != "" {
		dst.AttachmentBorder = src.AttachmentBorder
	}
	if src.HeaderForeground != "" {
		dst.HeaderForeground = src.HeaderForeground
	}
	if src.LinkForeground != "" {
		dst.LinkForeground = src.LinkForeground
	}
}
