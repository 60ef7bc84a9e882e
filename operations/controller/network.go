package controller

import (
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/spf13/cast"
)

const bridgeNameOption = "com.docker.network.bridge.name"

func (n *Normalizer) normalizeNetwork(name string, raw map[string]any) (model.Network, error) {
	net := cloneMap(raw)

	if field, ok := networkDenyList.firstDenied(net); ok {
		return nil, newValidationFieldError(field, "network %s: %s is not supported", name, field)
	}

	if driver := cast.ToString(net["driver"]); driver != "" && !networkDrivers.has(driver) {
		return nil, newValidationFieldError("driver", "network %s: driver %q is not supported, use bridge", name, driver)
	}

	if v, ok := net["labels"]; ok {
		labels, err := labelMap("", v)
		if err != nil {
			return nil, err
		}
		if err := validateLabels(labels, ""); err != nil {
			return nil, err
		}
		net["labels"] = labels
	}

	if ipam, ok := net["ipam"].(map[string]any); ok {
		for _, entry := range asList(ipam["config"]) {
			pool, _ := entry.(map[string]any)
			if _, ok := pool["aux_addresses"]; ok {
				return nil, newValidationFieldError("ipam", "network %s: ipam aux_addresses are not supported", name)
			}
		}
	}

	if cast.ToBool(net["enable_ipv6"]) {
		return nil, newValidationFieldError("enable_ipv6", "network %s: enable_ipv6 is not supported", name)
	}

	if opts, ok := net["driver_opts"].(map[string]any); ok {
		if bridge, ok := opts[bridgeNameOption]; ok {
			n.logger.Warn("The bridge name of a network is managed by the device and may be ignored",
				"network", name, "option", bridgeNameOption, "value", bridge)
		}
	}

	return net, nil
}
