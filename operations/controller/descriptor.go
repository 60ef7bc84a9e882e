package controller

import (
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/sithukyaw666/balena-compose/utils"
	"github.com/spf13/cast"
)

// ImageDescriptors lists what has to be built or pulled for every service of
// a normalized composition, in service order.
func ImageDescriptors(c *model.Composition) []model.ImageDescriptor {
	if c == nil {
		return nil
	}
	descriptors := make([]model.ImageDescriptor, 0, len(c.Services))
	for _, name := range utils.SortedKeys(c.Services) {
		svc := c.Services[name]
		d := model.ImageDescriptor{
			ServiceName: name,
			Contract:    contractFor(name, svc),
		}
		if build, ok := svc["build"].(map[string]any); ok {
			d.Image = model.BuildConfig(build)
		} else if image := cast.ToString(svc["image"]); image != "" {
			d.Image = image
		}
		descriptors = append(descriptors, d)
	}
	return descriptors
}

// contractFor returns nil when the service carries no requirement labels.
func contractFor(name string, svc model.Service) *model.ContractObject {
	labels, _ := svc["labels"].(map[string]any)
	reqs := requirements(labels)
	if len(reqs) == 0 {
		return nil
	}
	return &model.ContractObject{
		Type:     ContractType,
		Slug:     ContractSlugPrefix + name,
		Requires: reqs,
	}
}
