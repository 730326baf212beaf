package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/dataset"
	"github.com/liliang-cn/sqfeat/pkg/feature"
)

// Dataset file given with --config. Flags set on the command line win.
type fileConfig struct {
	Set         string       `yaml:"set"`
	DB          string       `yaml:"db"`
	Name        string       `yaml:"name,omitempty"`
	Prefix      string       `yaml:"prefix,omitempty"`
	Suffix      string       `yaml:"suffix,omitempty"`
	Compression string       `yaml:"compression,omitempty"`
	Labels      labelsConfig `yaml:"labels,omitempty"`
}

// Labels section of the dataset file.
type labelsConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter,omitempty"`
	// Header defaults to true when omitted.
	Header  *bool             `yaml:"header,omitempty"`
	Pairing string            `yaml:"pairing,omitempty"`
	Dict    map[string]string `yaml:"dict,omitempty"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var conf fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return conf, nil
}

// datasetConfig turns the file config into a dataset.Config
func (c fileConfig) datasetConfig() (dataset.Config, error) {
	cfg := dataset.DefaultConfig(c.Set, c.DB)
	cfg.DBName = c.Name
	cfg.FilePrefix = c.Prefix
	cfg.FileSuffix = c.Suffix

	if c.Compression != "" {
		compression, err := core.ParseCompression(c.Compression)
		if err != nil {
			return cfg, err
		}
		cfg.Compression = compression
	}

	cfg.LabelsPath = c.Labels.Path
	if c.Labels.Delimiter != "" {
		cfg.LabelDelimiter = c.Labels.Delimiter
	}
	if c.Labels.Header != nil {
		cfg.NoLabelHeader = !*c.Labels.Header
	}
	pairing, err := dataset.ParsePairing(c.Labels.Pairing)
	if err != nil {
		return cfg, err
	}
	cfg.Pairing = pairing

	if len(c.Labels.Dict) > 0 {
		cfg.LabelDict = make(map[string]feature.Value, len(c.Labels.Dict))
		for raw, mapped := range c.Labels.Dict {
			cfg.LabelDict[raw] = feature.Parse(mapped)
		}
	}

	return cfg, nil
}
