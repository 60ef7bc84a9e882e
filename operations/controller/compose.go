package controller

import (
	"path/filepath"

	"github.com/sithukyaw666/balena-compose/model"
	"github.com/sithukyaw666/balena-compose/utils"
)

// Normalize validates a parsed compose project and rewrites it into the
// restricted composition balena accepts. primaryFile is the first compose file
// given to the parser; build contexts are made relative to its directory.
//
// The first rule violation is returned; no partial composition is produced.
func (n *Normalizer) Normalize(raw map[string]any, primaryFile string) (*model.Composition, error) {
	if raw == nil {
		return nil, ArgumentError.New("no compose document to normalize")
	}
	if primaryFile == "" {
		return nil, ArgumentError.New("the path of the primary compose file is required")
	}
	baseDir, err := filepath.Abs(filepath.Dir(primaryFile))
	if err != nil {
		return nil, ArgumentError.Wrap(err, "cannot resolve the directory of %s", primaryFile)
	}

	doc := cloneMap(raw)
	stripProjectName(doc)

	if key, ok := topLevelDenyList.firstDenied(doc); ok {
		return nil, newValidationFieldError(key, "top level %s are not supported", key)
	}

	services, err := entities("services", doc["services"])
	if err != nil {
		return nil, err
	}
	networks, err := entities("networks", doc["networks"])
	if err != nil {
		return nil, err
	}
	volumes, err := entities("volumes", doc["volumes"])
	if err != nil {
		return nil, err
	}

	comp := &model.Composition{Services: make(map[string]model.Service, len(services))}
	for _, name := range utils.SortedKeys(services) {
		svc, err := n.normalizeService(name, services[name], baseDir)
		if err != nil {
			return nil, err
		}
		comp.Services[name] = svc
	}

	if networks != nil {
		comp.Networks = make(map[string]model.Network, len(networks))
		for _, name := range utils.SortedKeys(networks) {
			net, err := n.normalizeNetwork(name, networks[name])
			if err != nil {
				return nil, err
			}
			comp.Networks[name] = net
		}
	}

	if volumes != nil {
		comp.Volumes = make(map[string]model.Volume, len(volumes))
		for _, name := range utils.SortedKeys(volumes) {
			vol, err := n.normalizeVolume(name, volumes[name])
			if err != nil {
				return nil, err
			}
			comp.Volumes[name] = vol
		}
	}

	return comp, nil
}

// stripProjectName removes the project name the parser injects at the top
// level and into the name of every network and volume.
func stripProjectName(doc map[string]any) {
	delete(doc, "name")
	for _, section := range []string{"networks", "volumes"} {
		entries, _ := doc[section].(map[string]any)
		for _, entry := range entries {
			if e, ok := entry.(map[string]any); ok {
				delete(e, "name")
			}
		}
	}
}

// entities converts one top level section into its named entries. A missing
// section yields nil; a null entry is an entity with no fields.
func entities(section string, v any) (map[string]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, newValidationFieldError(section, "%s must be a mapping", section)
	}
	out := make(map[string]map[string]any, len(m))
	for name, entry := range m {
		switch e := entry.(type) {
		case nil:
			out[name] = map[string]any{}
		case map[string]any:
			out[name] = e
		default:
			return nil, newValidationFieldError(section, "%s.%s must be a mapping", section, name)
		}
	}
	return out, nil
}
