package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type RuntimeType string

const (
	// 进程内运行时，无需动态库
	Loopback RuntimeType = "loopback"
	// 通过 ARROW_BRIDGE_LIB 或 Library 加载的动态库
	Library RuntimeType = "library"
)

type MetricsConfiguration struct {
	Namespace string `yaml:"namespace"`
	Address   string `yaml:"address"`
}

type Configuration struct {
	Runtime      RuntimeType          `yaml:"runtime"`
	Library      string               `yaml:"library"`
	Operation    string               `yaml:"operation"`
	WrapOverflow bool                 `yaml:"wrapOverflow"`
	Dump         string               `yaml:"dump"`
	Metrics      MetricsConfiguration `yaml:"metrics"`
}

func DefaultConfiguration() *Configuration {
	return &Configuration{
		Runtime:   Loopback,
		Operation: "add",
		Metrics: MetricsConfiguration{
			Namespace: "arrow_bridge",
		},
	}
}

// LoadConfiguration reads a YAML file on top of the defaults.
func LoadConfiguration(path string) (*Configuration, error) {
	configuration := DefaultConfiguration()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(data, configuration)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return configuration, nil
}

func (c *Configuration) Validate() error {
	switch c.Runtime {
	case Loopback, Library:
	default:
		return fmt.Errorf("unknown runtime %q", c.Runtime)
	}
	if c.Operation == "" {
		return fmt.Errorf("operation is required")
	}
	return nil
}
