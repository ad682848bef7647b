package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jabolina/collectives/collective"
)

// runConfig is the optional on-disk shape a demo invocation can be seeded
// from, in the same spirit as Synnergy's internal/config YAML loader: a
// handful of top-level keys merged with whatever flags the caller also
// passed on the command line.
type runConfig struct {
	Ranks    int    `yaml:"ranks"`
	Root     int    `yaml:"root"`
	Topology string `yaml:"topology"`
}

func defaultRunConfig() runConfig {
	return runConfig{Ranks: 4, Root: 0, Topology: "binary"}
}

// loadRunConfig reads a YAML file at path and returns its contents merged
// over defaultRunConfig(). An empty path is not an error — it just means
// "use the defaults and whatever flags were passed".
func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("collectivedemo: read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("collectivedemo: parse config %q: %w", path, err)
	}
	return cfg, nil
}

func (c runConfig) topologyOption() (collective.Option, error) {
	switch c.Topology {
	case "", "binary":
		return collective.WithTopology(collective.Binary), nil
	case "binomial":
		return collective.WithTopology(collective.Binomial), nil
	default:
		return nil, fmt.Errorf("collectivedemo: unknown topology %q (want binary or binomial)", c.Topology)
	}
}
