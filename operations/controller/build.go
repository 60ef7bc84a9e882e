package controller

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/spf13/cast"
)

// normalizeBuild validates a service's build section and rewrites its context
// relative to baseDir, the directory of the primary compose file.
func (n *Normalizer) normalizeBuild(service string, raw any, baseDir string) (model.BuildConfig, error) {
	var build map[string]any
	switch b := raw.(type) {
	case string:
		build = map[string]any{"context": b}
	case map[string]any:
		build = cloneMap(b)
	default:
		return nil, newServiceFieldError(service, "build", "service %s: build must be a path or a mapping", service)
	}

	if field, ok := buildDenyList.firstDenied(build); ok {
		return nil, newServiceFieldError(service, field, "service %s: build.%s is not supported", service, field)
	}

	if l, ok := build["labels"]; ok {
		labels, err := labelMap(service, l)
		if err != nil {
			return nil, err
		}
		if err := validateLabels(labels, service); err != nil {
			return nil, err
		}
		build["labels"] = labels
	}

	context := cast.ToString(build["context"])
	if isRemoteContext(context) {
		return nil, newServiceFieldError(service, "build", "service %s: remote build context %s is not supported", service, context)
	}
	if context == "" {
		context = "."
	}
	if !filepath.IsAbs(context) {
		context = filepath.Join(baseDir, context)
	}
	rel, err := filepath.Rel(baseDir, context)
	if err != nil {
		return nil, ServiceError.Wrap(err, "service %s: cannot resolve build context %s", service, context).
			WithProperty(PropertyService, service).
			WithProperty(PropertyField, "build")
	}
	if rel == "" {
		rel = "."
	}
	build["context"] = filepath.ToSlash(rel)

	return build, nil
}

// scpLikeContext matches user@host: git locations.
var scpLikeContext = regexp.MustCompile(`^[^/@:]+@[^/:]+:`)

// isRemoteContext reports whether context points at a git repository or any
// other non-local location.
func isRemoteContext(context string) bool {
	if context == "" {
		return false
	}
	if strings.HasSuffix(context, ".git") {
		return true
	}
	if filepath.IsAbs(context) {
		return false
	}
	if !strings.Contains(context, "://") && !scpLikeContext.MatchString(context) {
		return false
	}
	ep, err := transport.NewEndpoint(context)
	return err == nil && ep.Protocol != "file"
}
