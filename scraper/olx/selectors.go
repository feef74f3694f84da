package olx

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/andybalholm/cascadia"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LinkRule locates a card's title and the anchor it belongs to.
type LinkRule struct {
	Selector     string `yaml:"selector" validate:"required,cssselector"`
	HrefContains string `yaml:"href_contains"`
	// MinTitle rejects titles whose length is not greater than this.
	MinTitle int `yaml:"min_title" validate:"gte=0"`
}

// FieldRule describes one attempt at reading a field from a card.
//
// With Pattern set the match text must satisfy it; with Attr set the
// attribute is read (falling back to text when TextFallback is true);
// otherwise the text is read.
type FieldRule struct {
	Selector     string `yaml:"selector" validate:"required,cssselector"`
	Attr         string `yaml:"attr,omitempty"`
	TextFallback bool   `yaml:"text_fallback,omitempty"`
	Pattern      string `yaml:"pattern,omitempty" validate:"omitempty,goregexp"`
	Reject       string `yaml:"reject,omitempty" validate:"omitempty,goregexp"`
}

// FallbackConfig drives the link scan used when no card yields a listing.
type FallbackConfig struct {
	Anchors     []string `yaml:"anchors" validate:"required,min=1,dive,required,cssselector"`
	LinkPattern string   `yaml:"link_pattern" validate:"required,goregexp"`
	Containers  []string `yaml:"containers" validate:"dive,required,cssselector"`
	MinTitle    int      `yaml:"min_title" validate:"gte=0"`
	MaxTitle    int      `yaml:"max_title" validate:"gtfield=MinTitle"`
}

// SelectorConfig holds every selector cascade used to read listing cards.
// Each list is tried in order and the first hit wins.
type SelectorConfig struct {
	Cards    []string       `yaml:"cards" validate:"required,min=1,dive,required,cssselector"`
	Title    []LinkRule     `yaml:"title" validate:"required,min=1,dive"`
	Price    []FieldRule    `yaml:"price" validate:"dive"`
	Location []FieldRule    `yaml:"location" validate:"dive"`
	Date     []FieldRule    `yaml:"date" validate:"dive"`
	Image    []FieldRule    `yaml:"image" validate:"dive"`
	Fallback FallbackConfig `yaml:"fallback"`
}

const currencyPattern = `R\$\s*\d`

// DefaultSelectors covers the adcard markup, the ad-list markup and the
// older styled-components markup of the listing pages.
func DefaultSelectors() *SelectorConfig {
	return &SelectorConfig{
		Cards: []string{
			".olx-adcard",
			"[data-lurker_list_id]",
			"[data-lurker_dimension_listing_id]",
			`[data-ds-component="DS-AdCard"]`,
			"ul#ad-list > li",
			"li.sc-1fcmfeb-2",
		},
		Title: []LinkRule{
			{Selector: ".olx-adcard__title"},
			{Selector: "h2"},
			{Selector: `a[data-lurker-detail="list_id"]`},
			{Selector: "a[href]", HrefContains: "olx.com.br", MinTitle: 5},
		},
		Price: []FieldRule{
			{Selector: ".olx-adcard__price", Pattern: currencyPattern},
			{Selector: `[data-ds-component="DS-Text"][class*="price"]`, Pattern: currencyPattern},
			{Selector: "h3", Pattern: currencyPattern},
			{Selector: `[class*="price"]`, Pattern: currencyPattern},
			{Selector: "span", Pattern: currencyPattern},
		},
		Location: []FieldRule{
			{Selector: ".olx-adcard__location"},
			{Selector: `[class*="location"]`},
			{Selector: `[aria-label*="Localização"]`},
		},
		Date: []FieldRule{
			{Selector: ".olx-adcard__date", Attr: "datetime", TextFallback: true},
			{Selector: "time", Attr: "datetime", TextFallback: true},
			{Selector: `[class*="date"]`, Attr: "datetime", TextFallback: true},
		},
		Image: []FieldRule{
			{Selector: "img[src]", Attr: "src", Reject: `^data:`},
			{Selector: "img[data-src]", Attr: "data-src", Reject: `^data:`},
		},
		Fallback: FallbackConfig{
			Anchors:     []string{`a[href*="olx.com.br"]`},
			LinkPattern: `^https?://(?:[a-z0-9-]+\.)*olx\.com\.br/[^?#]*\d{6,}`,
			Containers: []string{
				`[class*="adcard"]`,
				"li",
				"article",
				`div[class*="card"]`,
			},
			MinTitle: 5,
			MaxTitle: 150,
		},
	}
}

// LoadSelectors reads a YAML selector file. Keys present in the file
// replace the corresponding defaults; absent keys keep them.
func LoadSelectors(path string) (*SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("selectors: read %s: %w", path, err)
	}

	cfg := DefaultSelectors()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("selectors: decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("selectors: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every selector parses and every pattern compiles.
func (c *SelectorConfig) Validate() error {
	return newValidator().Struct(c)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cssselector", func(fl validator.FieldLevel) bool {
		_, err := cascadia.ParseGroup(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("goregexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	return v
}
