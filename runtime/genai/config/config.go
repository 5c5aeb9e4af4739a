// Package config loads the GenAI message capture settings from YAML files and
// the OTEL_INSTRUMENTATION_GENAI_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"goa.design/genai-otel/runtime/genai/messages"
)

// Environment variables overriding file settings.
const (
	EnvCaptureMessageContent   = "OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT"
	EnvMessageContentMaxLength = "OTEL_INSTRUMENTATION_GENAI_MESSAGE_CONTENT_MAX_LENGTH"
	EnvCaptureMessageStrategy  = "OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_STRATEGY"
)

// Config holds the message capture settings.
type Config struct {
	// CaptureMessageContent enables recording of prompts, completions, tool
	// definitions and system instructions.
	CaptureMessageContent bool `yaml:"capture_message_content"`
	// MaxMessageContentLength caps the captured text of each choice.
	// Non-positive values select the default.
	MaxMessageContentLength int `yaml:"max_message_content_length"`
	// CaptureMessageStrategy is "span-attributes" or "event". Unrecognized
	// values select "span-attributes".
	CaptureMessageStrategy string `yaml:"capture_message_strategy"`
}

// Default returns the default settings: content capture disabled.
func Default() Config {
	return Config{
		MaxMessageContentLength: messages.DefaultMaxContentLength,
		CaptureMessageStrategy:  string(messages.StrategySpanAttributes),
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of the defaults. Unknown keys are rejected.
// Empty input yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// FromEnv returns the defaults overridden by the process environment.
func FromEnv() (Config, error) {
	return Default().WithEnv(os.LookupEnv)
}

// WithEnv returns c overridden by the variables found through lookup. Empty
// values are ignored.
func (c Config) WithEnv(lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookupNonEmpty(lookup, EnvCaptureMessageContent); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvCaptureMessageContent, err)
		}
		c.CaptureMessageContent = b
	}
	if v, ok := lookupNonEmpty(lookup, EnvMessageContentMaxLength); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvMessageContentMaxLength, err)
		}
		c.MaxMessageContentLength = n
	}
	if v, ok := lookupNonEmpty(lookup, EnvCaptureMessageStrategy); ok {
		c.CaptureMessageStrategy = v
	}
	return c, nil
}

// CaptureOptions returns the normalized capture options.
func (c Config) CaptureOptions() messages.CaptureOptions {
	return messages.NewCaptureOptions(
		c.CaptureMessageContent,
		c.MaxMessageContentLength,
		strings.ToLower(c.CaptureMessageStrategy),
	)
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
