package controller

import (
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/moby/moby/api/types/mount"
	"github.com/sithukyaw666/balena-compose/utils"
)

// The parser hands over long syntax; everything below turns it back into the
// short syntax the supervisor understands. Entries that are already short
// (strings) pass through untouched.

const (
	defaultPortProtocol = "tcp"
	defaultPortMode     = "ingress"

	conditionServiceStarted = "service_started"
)

type portConfig struct {
	Name        string `mapstructure:"name"`
	Mode        string `mapstructure:"mode"`
	HostIP      string `mapstructure:"host_ip"`
	Target      string `mapstructure:"target"`
	Published   string `mapstructure:"published"`
	Protocol    string `mapstructure:"protocol"`
	AppProtocol string `mapstructure:"app_protocol"`
}

type dependencyConfig struct {
	Condition string `mapstructure:"condition"`
	Required  *bool  `mapstructure:"required"`
}

type deviceConfig struct {
	Source      string `mapstructure:"source"`
	Target      string `mapstructure:"target"`
	Permissions string `mapstructure:"permissions"`
}

type volumeConfig struct {
	Type     mount.Type     `mapstructure:"type"`
	Source   string         `mapstructure:"source"`
	Target   string         `mapstructure:"target"`
	ReadOnly bool           `mapstructure:"read_only"`
	Volume   map[string]any `mapstructure:"volume"`
	Tmpfs    map[string]any `mapstructure:"tmpfs"`
}

// volumeDowngrade is the outcome of downgradeVolumes.
type volumeDowngrade struct {
	Volumes  []any
	Tmpfs    []any
	Features []string
}

func decodeEntry(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func downgradePorts(service string, ports []any, logger *slog.Logger) ([]any, error) {
	out := make([]any, 0, len(ports))
	for _, entry := range ports {
		if short, ok := entry.(string); ok {
			out = append(out, short)
			continue
		}
		var p portConfig
		if err := decodeEntry(entry, &p); err != nil {
			return nil, ServiceError.Wrap(err, "service %s: invalid port definition", service).
				WithProperty(PropertyService, service).
				WithProperty(PropertyField, "ports")
		}
		if p.Name != "" {
			logger.Warn("Ignoring unsupported port field", "service", service, "field", "name", "value", p.Name)
		}
		if p.AppProtocol != "" {
			logger.Warn("Ignoring unsupported port field", "service", service, "field", "app_protocol", "value", p.AppProtocol)
		}
		if p.Mode != "" && p.Mode != defaultPortMode {
			logger.Warn("Ignoring unsupported port field", "service", service, "field", "mode", "value", p.Mode)
		}
		out = append(out, shortPort(p))
	}
	return out, nil
}

// shortPort renders [host_ip:][published:]target[/protocol].
func shortPort(p portConfig) string {
	var b strings.Builder
	switch {
	case p.HostIP != "":
		host := p.HostIP
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		b.WriteString(host + ":" + p.Published + ":")
	case p.Published != "":
		b.WriteString(p.Published + ":")
	}
	b.WriteString(p.Target)
	if p.Protocol != "" && p.Protocol != defaultPortProtocol {
		b.WriteString("/" + p.Protocol)
	}
	return b.String()
}

// downgradeDependsOn turns the long mapping into a list of service names.
// Dependencies marked as not required are left out entirely.
func downgradeDependsOn(service string, dependsOn any, logger *slog.Logger) ([]any, error) {
	switch deps := dependsOn.(type) {
	case nil:
		return nil, nil
	case []any:
		return deps, nil
	case map[string]any:
		var out []any
		for _, name := range utils.SortedKeys(deps) {
			var d dependencyConfig
			if err := decodeEntry(deps[name], &d); err != nil {
				return nil, ServiceError.Wrap(err, "service %s: invalid depends_on entry %s", service, name).
					WithProperty(PropertyService, service).
					WithProperty(PropertyField, "depends_on")
			}
			if d.Required != nil && !*d.Required {
				logger.Debug("Dropping optional dependency", "service", service, "depends_on", name)
				continue
			}
			condition := d.Condition
			if condition == "" {
				condition = conditionServiceStarted
			}
			if condition != conditionServiceStarted {
				return nil, newServiceFieldError(service, "depends_on",
					"service %s: depends_on condition %q for %s is not supported", service, condition, name)
			}
			out = append(out, name)
		}
		return out, nil
	default:
		return nil, newServiceFieldError(service, "depends_on", "service %s: depends_on must be a list or a mapping", service)
	}
}

func downgradeDevices(service string, devices []any) ([]any, error) {
	out := make([]any, 0, len(devices))
	for _, entry := range devices {
		if short, ok := entry.(string); ok {
			out = append(out, short)
			continue
		}
		var d deviceConfig
		if err := decodeEntry(entry, &d); err != nil {
			return nil, ServiceError.Wrap(err, "service %s: invalid device definition", service).
				WithProperty(PropertyService, service).
				WithProperty(PropertyField, "devices")
		}
		if !strings.HasPrefix(d.Source, "/") || !strings.HasPrefix(d.Target, "/") {
			return nil, newServiceFieldError(service, "devices",
				"service %s: CDI device %q is not supported", service, d.Source)
		}
		short := d.Source + ":" + d.Target
		if d.Permissions != "" {
			short += ":" + d.Permissions
		}
		out = append(out, short)
	}
	return out, nil
}

// downgradeVolumes splits long syntax mounts into short volume entries, tmpfs
// targets and feature labels for the host paths balena exposes on request.
func downgradeVolumes(service string, volumes []any) (volumeDowngrade, error) {
	var res volumeDowngrade
	for _, entry := range volumes {
		if short, ok := entry.(string); ok {
			res.Volumes = append(res.Volumes, short)
			continue
		}
		var v volumeConfig
		if err := decodeEntry(entry, &v); err != nil {
			return res, ServiceError.Wrap(err, "service %s: invalid volume definition", service).
				WithProperty(PropertyService, service).
				WithProperty(PropertyField, "volumes")
		}
		if v.Type == mount.TypeBind && v.Source != "" {
			if feature, ok := featureMounts[path.Clean(v.Source)]; ok {
				if !slices.Contains(res.Features, feature) {
					res.Features = append(res.Features, feature)
				}
				continue
			}
		}
		switch v.Type {
		case mount.TypeBind, mount.TypeImage, mount.TypeNamedPipe, mount.TypeCluster:
			return res, newServiceFieldError(service, "volumes",
				"service %s: %s mounts are not supported (%s)", service, v.Type, v.Source)
		case mount.TypeTmpfs:
			if len(v.Tmpfs) > 0 {
				return res, newServiceFieldError(service, "volumes",
					"service %s: tmpfs options for %s cannot be expressed in short syntax", service, v.Target)
			}
			res.Tmpfs = append(res.Tmpfs, v.Target)
		case mount.TypeVolume:
			if len(v.Volume) > 0 {
				return res, newServiceFieldError(service, "volumes",
					"service %s: volume options for %s cannot be expressed in short syntax", service, v.Target)
			}
			if v.Source == "" && v.Target == "" {
				return res, newServiceFieldError(service, "volumes",
					"service %s: volume entry needs a source or a target", service)
			}
			res.Volumes = append(res.Volumes, shortVolume(v))
		default:
			return res, newServiceFieldError(service, "volumes",
				"service %s: unknown volume type %q", service, v.Type)
		}
	}
	return res, nil
}

func shortVolume(v volumeConfig) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Source, v.Target} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if v.ReadOnly {
		parts = append(parts, "ro")
	}
	return strings.Join(parts, ":")
}
