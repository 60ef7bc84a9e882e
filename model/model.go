package model

import "time"

type Config struct {
	Parser       string        `mapstructure:"parser"`
	ParseTimeout time.Duration `mapstructure:"parse_timeout"`
	ProjectName  string        `mapstructure:"project_name"`
	LogFormat    string        `mapstructure:"log_format"`
	LogLevel     string        `mapstructure:"log_level"`
	Output       string        `mapstructure:"output"`
}

// Service, Network, Volume and BuildConfig keep every field the parser emitted;
// only the normalizer decides which ones survive.
type Service map[string]any

type Network map[string]any

type Volume map[string]any

type BuildConfig map[string]any

type Composition struct {
	Services map[string]Service `json:"services" yaml:"services"`
	Networks map[string]Network `json:"networks,omitempty" yaml:"networks,omitempty"`
	Volumes  map[string]Volume  `json:"volumes,omitempty" yaml:"volumes,omitempty"`
}

// Raw returns the composition in the loosely typed shape the normalizer
// accepts as input.
func (c *Composition) Raw() map[string]any {
	raw := map[string]any{}
	services := make(map[string]any, len(c.Services))
	for name, svc := range c.Services {
		services[name] = map[string]any(svc)
	}
	raw["services"] = services
	if c.Networks != nil {
		networks := make(map[string]any, len(c.Networks))
		for name, net := range c.Networks {
			networks[name] = map[string]any(net)
		}
		raw["networks"] = networks
	}
	if c.Volumes != nil {
		volumes := make(map[string]any, len(c.Volumes))
		for name, vol := range c.Volumes {
			volumes[name] = map[string]any(vol)
		}
		raw["volumes"] = volumes
	}
	return raw
}

// ContractRequirement is either a version range requirement (Version set) or
// an identifier requirement (Slug set).
type ContractRequirement struct {
	Type    string `json:"type" yaml:"type"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Slug    string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

type ContractObject struct {
	Type     string                `json:"type" yaml:"type"`
	Slug     string                `json:"slug" yaml:"slug"`
	Requires []ContractRequirement `json:"requires" yaml:"requires"`
}

// ImageDescriptor tells the builder what to do for one service. Image holds
// either a registry reference (string) or a BuildConfig.
type ImageDescriptor struct {
	ServiceName string          `json:"serviceName" yaml:"serviceName"`
	Image       any             `json:"image" yaml:"image"`
	Contract    *ContractObject `json:"contract,omitempty" yaml:"contract,omitempty"`
}
