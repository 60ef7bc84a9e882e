package controller

import (
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/spf13/cast"
)

func (n *Normalizer) normalizeVolume(name string, raw map[string]any) (model.Volume, error) {
	vol := cloneMap(raw)

	if driver := cast.ToString(vol["driver"]); driver != "" && !volumeDrivers.has(driver) {
		return nil, newValidationFieldError("driver", "volume %s: driver %q is not supported, use local", name, driver)
	}

	if field, ok := volumeDenyList.firstDenied(vol); ok {
		return nil, newValidationFieldError(field, "volume %s: %s is not supported", name, field)
	}

	if v, ok := vol["labels"]; ok {
		labels, err := labelMap("", v)
		if err != nil {
			return nil, err
		}
		if err := validateLabels(labels, ""); err != nil {
			return nil, err
		}
		vol["labels"] = labels
	}

	return vol, nil
}
