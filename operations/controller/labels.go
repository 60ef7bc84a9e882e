package controller

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joomcode/errorx"
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/sithukyaw666/balena-compose/utils"
	"github.com/spf13/cast"
)

const (
	PrivateLabelPrefix  = "io.balena.private."
	RequiresLabelPrefix = "io.balena.features.requires."

	FeatureBalenaSocket  = "io.balena.features.balena-socket"
	FeatureDbus          = "io.balena.features.dbus"
	FeatureSysfs         = "io.balena.features.sysfs"
	FeatureProcfs        = "io.balena.features.procfs"
	FeatureKernelModules = "io.balena.features.kernel-modules"
	FeatureFirmware      = "io.balena.features.firmware"
	FeatureJournalLogs   = "io.balena.features.journal-logs"

	ContractType       = "sw.container"
	ContractSlugPrefix = "contract-for-"
)

type requirementKind int

const (
	versionRequirement requirementKind = iota
	slugRequirement
)

type requirementRule struct {
	kind requirementKind
	// allowed restricts slug requirements to a fixed set of values; nil means
	// any value is accepted.
	allowed fieldSet
}

var requirementRules = map[string]requirementRule{
	"sw.supervisor":  {kind: versionRequirement},
	"sw.l4t":         {kind: versionRequirement},
	"hw.device-type": {kind: slugRequirement},
	"arch.sw":        {kind: slugRequirement, allowed: newFieldSet("aarch64", "rpi", "amd64", "armv7hf", "i386")},
}

// featureMounts maps host paths that may be bind mounted to the label that
// asks the supervisor to provide them.
var featureMounts = map[string]string{
	"/var/run/docker.sock":        FeatureBalenaSocket,
	"/var/run/balena-engine.sock": FeatureBalenaSocket,
	"/var/run/balena.sock":        FeatureBalenaSocket,
	"/run/dbus":                   FeatureDbus,
	"/sys":                        FeatureSysfs,
	"/proc":                       FeatureProcfs,
	"/lib/modules":                FeatureKernelModules,
	"/lib/firmware":               FeatureFirmware,
	"/var/log/journal":            FeatureJournalLogs,
	"/run/log/journal":            FeatureJournalLogs,
	"/etc/machine-id":             FeatureJournalLogs,
}

// check validates value against the rule and returns the requirement it
// describes.
func (r requirementRule) check(suffix, value string) (model.ContractRequirement, error) {
	switch r.kind {
	case versionRequirement:
		if _, err := semver.NewConstraint(value); err != nil {
			return model.ContractRequirement{}, fmt.Errorf("%q is not a valid semver range", value)
		}
		return model.ContractRequirement{Type: suffix, Version: value}, nil
	default:
		if r.allowed != nil && !r.allowed.has(value) {
			return model.ContractRequirement{}, fmt.Errorf("%q is not one of %s", value, strings.Join(utils.SortedKeys(r.allowed), ", "))
		}
		return model.ContractRequirement{Type: suffix, Slug: value}, nil
	}
}

// requirementFor looks up the rule for a label. Labels under the requires
// prefix with an unknown suffix have no rule.
func requirementFor(label string) (string, requirementRule, bool) {
	suffix, ok := strings.CutPrefix(label, RequiresLabelPrefix)
	if !ok {
		return "", requirementRule{}, false
	}
	rule, ok := requirementRules[suffix]
	return suffix, rule, ok
}

// validateLabels rejects private labels and malformed requirement labels. An
// empty service means the labels do not belong to a service.
func validateLabels(labels map[string]any, service string) error {
	for _, name := range utils.SortedKeys(labels) {
		if strings.HasPrefix(name, PrivateLabelPrefix) {
			return labelError(service, "label %s uses the reserved namespace %s", name, PrivateLabelPrefix)
		}
		suffix, rule, ok := requirementFor(name)
		if !ok {
			continue
		}
		if _, err := rule.check(suffix, cast.ToString(labels[name])); err != nil {
			return labelError(service, "invalid value for label %s: %v", name, err)
		}
	}
	return nil
}

func labelError(service, format string, args ...any) *errorx.Error {
	if service == "" {
		return newValidationFieldError("labels", format, args...)
	}
	return newServiceFieldError(service, "labels", format, args...)
}

// requirements extracts contract requirements from labels in key order.
// Values are assumed to have passed validateLabels already.
func requirements(labels map[string]any) []model.ContractRequirement {
	var reqs []model.ContractRequirement
	for _, name := range utils.SortedKeys(labels) {
		suffix, rule, ok := requirementFor(name)
		if !ok {
			continue
		}
		req, err := rule.check(suffix, cast.ToString(labels[name]))
		if err != nil {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}
