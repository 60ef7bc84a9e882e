package controller

import "github.com/sithukyaw666/balena-compose/utils"

// Fields that have no equivalent on a balena device. Their presence is an
// error even when the value is null or empty.
var (
	serviceDenyList = newFieldSet(
		"attach",
		"blkio_config",
		"configs",
		"cpu_count",
		"cpu_percent",
		"cpu_period",
		"cpu_quota",
		"cpu_rt_period",
		"cpu_rt_runtime",
		"credential_spec",
		"deploy",
		"develop",
		"external_links",
		"extends",
		"gpus",
		"isolation",
		"links",
		"logging",
		"mem_swappiness",
		"memswap_limit",
		"platform",
		"post_start",
		"pre_stop",
		"profiles",
		"provider",
		"pull_policy",
		"scale",
		"secrets",
		"storage_opt",
		"use_api_socket",
		"userns_mode",
		"uts",
	)

	buildDenyList = newFieldSet(
		"additional_contexts",
		"cache_to",
		"dockerfile_inline",
		"entitlements",
		"isolation",
		"no_cache",
		"platforms",
		"privileged",
		"pull",
		"secrets",
		"ssh",
		"ulimits",
	)

	networkDenyList = newFieldSet(
		"attachable",
		"external",
	)

	volumeDenyList = newFieldSet(
		"external",
	)

	// Top level keys the composition may not carry.
	topLevelDenyList = newFieldSet(
		"configs",
		"secrets",
	)

	networkDrivers = newFieldSet("bridge", "default")
	volumeDrivers  = newFieldSet("local", "default")
)

type fieldSet map[string]struct{}

func newFieldSet(names ...string) fieldSet {
	s := make(fieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s fieldSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// firstDenied returns the first field of entity (in key order) that appears in
// the deny list.
func (s fieldSet) firstDenied(entity map[string]any) (string, bool) {
	for _, key := range utils.SortedKeys(entity) {
		if s.has(key) {
			return key, true
		}
	}
	return "", false
}
