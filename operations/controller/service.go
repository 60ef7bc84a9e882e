package controller

import (
	"log/slog"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/sithukyaw666/balena-compose/utils"
	"github.com/spf13/cast"
)

const (
	allowedSecurityOpt = "no-new-privileges"
	allowedIpc         = "shareable"
	containerRefPrefix = "container:"

	oomScoreAdjWarnThreshold = -900
)

// Normalizer turns a parsed compose project into a composition a balena
// device can run. It is safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// normalizeService applies the service rules in a fixed order and returns the
// first violation.
func (n *Normalizer) normalizeService(name string, raw map[string]any, baseDir string) (model.Service, error) {
	svc := cloneMap(raw)

	if field, ok := serviceDenyList.firstDenied(svc); ok {
		return nil, newServiceFieldError(name, field, "service %s: %s is not supported", name, field)
	}

	if b, ok := svc["build"]; ok && b != nil {
		build, err := n.normalizeBuild(name, b, baseDir)
		if err != nil {
			return nil, err
		}
		svc["build"] = map[string]any(build)
	}

	labels, err := labelMap(name, svc["labels"])
	if err != nil {
		return nil, err
	}
	if err := validateLabels(labels, name); err != nil {
		return nil, err
	}

	for _, field := range []string{"network_mode", "pid"} {
		if v := cast.ToString(svc[field]); strings.HasPrefix(v, containerRefPrefix) {
			return nil, newServiceFieldError(name, field, "service %s: %s %q referencing a container is not supported", name, field, v)
		}
	}

	for _, opt := range asList(svc["security_opt"]) {
		if v := cast.ToString(opt); v != allowedSecurityOpt {
			return nil, newServiceFieldError(name, "security_opt", "service %s: security_opt %q is not supported", name, v)
		}
	}

	for _, ref := range asList(svc["volumes_from"]) {
		if v := cast.ToString(ref); strings.HasPrefix(v, containerRefPrefix) {
			return nil, newServiceFieldError(name, "volumes_from", "service %s: volumes_from %q referencing a container is not supported", name, v)
		}
	}

	if v := cast.ToString(svc["ipc"]); v != "" && v != allowedIpc {
		return nil, newServiceFieldError(name, "ipc", "service %s: ipc mode %q is not supported", name, v)
	}

	if networks, ok := svc["networks"].(map[string]any); ok {
		for _, network := range utils.SortedKeys(networks) {
			attachment, _ := networks[network].(map[string]any)
			if _, ok := attachment["link_local_ips"]; ok {
				return nil, newServiceFieldError(name, "networks", "service %s: link_local_ips on network %s is not supported", name, network)
			}
		}
	}

	if v, ok := svc["pids_limit"]; ok && v != nil {
		limit, err := cast.ToInt64E(v)
		if err != nil {
			return nil, ServiceError.Wrap(err, "service %s: invalid pids_limit", name).
				WithProperty(PropertyService, name).
				WithProperty(PropertyField, "pids_limit")
		}
		if limit < 0 {
			return nil, newServiceFieldError(name, "pids_limit", "service %s: negative pids_limit %d is not supported", name, limit)
		}
	}

	// A null entrypoint means the image's own.
	if v, ok := svc["entrypoint"]; ok && v == nil {
		delete(svc, "entrypoint")
	}

	if err := n.downgradeService(name, svc, labels); err != nil {
		return nil, err
	}

	if image := cast.ToString(svc["image"]); image != "" {
		if build, ok := svc["build"].(map[string]any); ok {
			tags := asList(build["tags"])
			if !slices.Contains(tags, any(image)) {
				tags = append(tags, image)
			}
			build["tags"] = tags
		}
	}

	// The parser has already folded these into environment and labels.
	delete(svc, "env_file")
	delete(svc, "label_file")

	if _, ok := svc["expose"]; ok {
		n.logger.Warn("Ignoring expose, it has no effect on balena", "service", name)
		delete(svc, "expose")
	}

	if v, ok := svc["oom_score_adj"]; ok && v != nil {
		if adj, err := cast.ToInt64E(v); err == nil && adj <= oomScoreAdjWarnThreshold {
			n.logger.Warn("oom_score_adj is very low and may destabilise the device", "service", name, "oom_score_adj", adj)
		}
	}

	if _, ok := svc["container_name"]; ok {
		n.logger.Warn("Ignoring container_name, it is not supported", "service", name)
		delete(svc, "container_name")
	}

	return svc, nil
}

// downgradeService rewrites the long syntax collections of svc in place.
// labels is the validated label map of the service; feature labels derived
// from bind mounts are merged into it without overriding author values.
func (n *Normalizer) downgradeService(name string, svc map[string]any, labels map[string]any) error {
	if v, ok := svc["ports"]; ok {
		ports, err := downgradePorts(name, asList(v), n.logger)
		if err != nil {
			return err
		}
		setList(svc, "ports", ports)
	}

	if v, ok := svc["depends_on"]; ok {
		deps, err := downgradeDependsOn(name, v, n.logger)
		if err != nil {
			return err
		}
		setList(svc, "depends_on", deps)
	}

	if v, ok := svc["devices"]; ok {
		devices, err := downgradeDevices(name, asList(v))
		if err != nil {
			return err
		}
		setList(svc, "devices", devices)
	}

	if v, ok := svc["volumes"]; ok {
		res, err := downgradeVolumes(name, asList(v))
		if err != nil {
			return err
		}
		setList(svc, "volumes", res.Volumes)
		if len(res.Tmpfs) > 0 {
			svc["tmpfs"] = append(asList(svc["tmpfs"]), res.Tmpfs...)
		}
		if len(res.Features) > 0 {
			derived := make(map[string]any, len(res.Features))
			for _, feature := range res.Features {
				derived[feature] = "true"
			}
			if err := mergo.Merge(&labels, derived); err != nil {
				return ServiceError.Wrap(err, "service %s: cannot merge feature labels", name).
					WithProperty(PropertyService, name)
			}
		}
	}

	if len(labels) > 0 {
		svc["labels"] = labels
	}
	return nil
}
