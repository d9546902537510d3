// Package cloud turns cached frequencies into ranked word, tag and link
// clouds.
package cloud

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects what a cloud counts.
type Kind string

const (
	KindWords Kind = "words"
	KindTags  Kind = "tags"
	KindLinks Kind = "links"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindWords, KindTags, KindLinks:
		return k, nil
	}
	return "", &ConfigError{Key: "kind", Reason: fmt.Sprintf("unknown kind %q (want words, tags or links)", s)}
}

// Source selects which notes feed a cloud.
type Source string

const (
	SourceVault Source = "vault"
	SourceFile  Source = "file"
	SourceQuery Source = "query"
)

// LinkType selects which links a link cloud counts.
type LinkType string

const (
	LinkResolved   LinkType = "resolved"
	LinkUnresolved LinkType = "unresolved"
	LinkBoth       LinkType = "both"
)

// ConfigError reports a malformed options block.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "invalid options: " + e.Reason
	}
	return fmt.Sprintf("invalid option %s: %s", e.Key, e.Reason)
}

// Options are the settings of one cloud block.
type Options struct {
	Source Source `yaml:"source" json:"source"`
	// Stopwords removes stop words from word clouds when set.
	Stopwords         bool     `yaml:"stopwords" json:"stopwords"`
	MinCount          int      `yaml:"minCount" json:"minCount"`
	MaxDistinctLevels int      `yaml:"maxDistinctLevels" json:"maxDistinctLevels"`
	Query             string   `yaml:"query" json:"query,omitempty"`
	Type              LinkType `yaml:"type" json:"type,omitempty"`

	Render RenderOptions `yaml:",inline" json:"render"`
}

// RenderOptions are passed through to the renderer untouched.
type RenderOptions struct {
	Width       int     `yaml:"width" json:"width,omitempty"`
	Height      int     `yaml:"height" json:"height,omitempty"`
	Background  string  `yaml:"background" json:"background,omitempty"`
	Color       string  `yaml:"color" json:"color,omitempty"`
	Shape       string  `yaml:"shape" json:"shape"`
	Weight      float64 `yaml:"weight" json:"weight"`
	FontFamily  string  `yaml:"fontFamily" json:"fontFamily,omitempty"`
	FontWeight  string  `yaml:"fontWeight" json:"fontWeight,omitempty"`
	MinFontSize int     `yaml:"minFontSize" json:"minFontSize"`
	MinRotation float64 `yaml:"minRotation" json:"minRotation"`
	MaxRotation float64 `yaml:"maxRotation" json:"maxRotation"`
	Ellipticity float64 `yaml:"ellipticity" json:"ellipticity"`
	Shuffle     bool    `yaml:"shuffle" json:"shuffle"`
	RotateRatio float64 `yaml:"rotateRatio" json:"rotateRatio"`
}

// DefaultOptions returns the options used for keys a block leaves out.
func DefaultOptions() Options {
	return Options{
		Source:    SourceVault,
		Stopwords: true,
		Type:      LinkResolved,
		Render: RenderOptions{
			Color:       "random-dark",
			Shape:       "circle",
			Weight:      2,
			FontFamily:  "'Trebuchet MS', 'Arial Unicode MS', sans-serif",
			FontWeight:  "normal",
			MinRotation: -1.5708,
			MaxRotation: 1.5708,
			Ellipticity: 0.65,
			Shuffle:     true,
			RotateRatio: 0.1,
		},
	}
}

var validShapes = map[string]bool{
	"circle": true, "cardioid": true, "diamond": true, "square": true,
	"triangle": true, "triangle-forward": true, "triangle-upright": true,
	"pentagon": true, "star": true,
}

// ParseOptions reads a YAML options block over the defaults. An empty block
// yields the defaults. Unknown keys are rejected.
func ParseOptions(block string) (Options, error) {
	opts := DefaultOptions()
	if strings.TrimSpace(block) == "" {
		return opts, nil
	}

	dec := yaml.NewDecoder(strings.NewReader(block))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, &ConfigError{Reason: cleanYAMLError(err)}
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks option values and normalizes enums.
func (o *Options) Validate() error {
	o.Source = Source(strings.ToLower(string(o.Source)))
	switch o.Source {
	case SourceVault, SourceFile, SourceQuery:
	default:
		return &ConfigError{Key: "source", Reason: fmt.Sprintf("unknown source %q (want vault, file or query)", o.Source)}
	}

	o.Type = LinkType(strings.ToLower(string(o.Type)))
	switch o.Type {
	case LinkResolved, LinkUnresolved, LinkBoth:
	default:
		return &ConfigError{Key: "type", Reason: fmt.Sprintf("unknown link type %q (want resolved, unresolved or both)", o.Type)}
	}

	if o.Source == SourceQuery && strings.TrimSpace(o.Query) == "" {
		return &ConfigError{Key: "query", Reason: "required when source is query"}
	}
	if o.MinCount < 0 {
		return &ConfigError{Key: "minCount", Reason: "must not be negative"}
	}
	if o.MaxDistinctLevels < 0 {
		return &ConfigError{Key: "maxDistinctLevels", Reason: "must not be negative"}
	}
	if o.Render.Width < 0 || o.Render.Height < 0 {
		return &ConfigError{Key: "width", Reason: "dimensions must not be negative"}
	}
	if o.Render.Weight <= 0 {
		return &ConfigError{Key: "weight", Reason: "must be positive"}
	}
	if !validShapes[o.Render.Shape] {
		return &ConfigError{Key: "shape", Reason: fmt.Sprintf("unknown shape %q", o.Render.Shape)}
	}
	return nil
}

// cleanYAMLError drops the library prefix from decoder messages.
func cleanYAMLError(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "yaml: unmarshal errors:\n")
	msg = strings.TrimPrefix(msg, "yaml: ")
	return strings.TrimSpace(msg)
}
