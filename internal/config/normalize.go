package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.Pipeline.Delimiter = strings.ToLower(strings.TrimSpace(c.Pipeline.Delimiter))
	if c.Pipeline.Delimiter == "" {
		c.Pipeline.Delimiter = defaultDelimiter
	}

	if strings.TrimSpace(c.Pipeline.OutputDir) != "" {
		expanded, err := ExpandPath(c.Pipeline.OutputDir)
		if err != nil {
			return fmt.Errorf("pipeline.output_dir: %w", err)
		}
		c.Pipeline.OutputDir = expanded
	} else {
		c.Pipeline.OutputDir = ""
	}

	c.Translation.SourceLanguage = normalizeLanguage(c.Translation.SourceLanguage)
	c.Translation.TargetLanguages = normalizeLanguages(c.Translation.TargetLanguages)
	c.Translation.ClassifierLanguages = normalizeLanguages(c.Translation.ClassifierLanguages)
	if len(c.Translation.ClassifierLanguages) == 0 {
		c.Translation.ClassifierLanguages = append(
			[]string(nil), defaultClassifierLanguages...,
		)
	}

	providers := make([]string, 0, len(c.Translation.Providers))
	for _, name := range c.Translation.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			providers = append(providers, name)
		}
	}
	if len(providers) == 0 {
		providers = defaultProviders()
	}
	c.Translation.Providers = providers

	if strings.TrimSpace(c.Tracker.Path) == "" {
		c.Tracker.Path = defaultTrackerPath
	}
	expanded, err := ExpandPath(c.Tracker.Path)
	if err != nil {
		return fmt.Errorf("tracker.path: %w", err)
	}
	c.Tracker.Path = expanded

	return nil
}

func normalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func normalizeLanguages(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	var out []string
	for _, code := range codes {
		code = normalizeLanguage(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
