package controller

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_NormalizeService(t *testing.T) {
	n := NewNormalizer(discardLogger())

	rejected := []struct {
		name    string
		service map[string]any
		field   string
	}{
		{name: "deny listed field", service: map[string]any{"image": "x", "deploy": map[string]any{}}, field: "deploy"},
		{name: "deny listed null field", service: map[string]any{"image": "x", "secrets": nil}, field: "secrets"},
		{name: "private label", service: map[string]any{"labels": map[string]any{"io.balena.private.x": "1"}}, field: "labels"},
		{name: "container network mode", service: map[string]any{"network_mode": "container:abc"}, field: "network_mode"},
		{name: "container pid", service: map[string]any{"pid": "container:abc"}, field: "pid"},
		{name: "security option", service: map[string]any{"security_opt": []any{"no-new-privileges", "label:disable"}}, field: "security_opt"},
		{name: "volumes from container", service: map[string]any{"volumes_from": []any{"container:abc"}}, field: "volumes_from"},
		{name: "ipc host", service: map[string]any{"ipc": "host"}, field: "ipc"},
		{name: "link local ips", service: map[string]any{"networks": map[string]any{
			"frontend": map[string]any{"link_local_ips": []any{"169.254.0.1"}},
		}}, field: "networks"},
		{name: "negative pids limit", service: map[string]any{"pids_limit": -1}, field: "pids_limit"},
	}
	for _, tc := range rejected {
		t.Run("Should reject "+tc.name, func(t *testing.T) {
			_, err := n.normalizeService("app", tc.service, "/work")
			require.Error(t, err)
			assert.True(t, errorx.IsOfType(err, ServiceError))
			assert.Equal(t, "app", ServiceName(err))
			assert.Equal(t, tc.field, Field(err))
		})
	}

	t.Run("Should report the deny list before any other rule", func(t *testing.T) {
		_, err := n.normalizeService("app", map[string]any{
			"network_mode": "container:abc",
			"labels":       map[string]any{"io.balena.private.x": "1"},
			"logging":      map[string]any{"driver": "json-file"},
		}, "/work")
		require.Error(t, err)
		assert.Equal(t, "logging", Field(err))
	})

	t.Run("Should report labels before network mode", func(t *testing.T) {
		_, err := n.normalizeService("app", map[string]any{
			"network_mode": "container:abc",
			"labels":       map[string]any{"io.balena.features.requires.arch.sw": "risc-v"},
		}, "/work")
		require.Error(t, err)
		assert.Equal(t, "labels", Field(err))
	})

	t.Run("Should accept the supported values", func(t *testing.T) {
		svc, err := n.normalizeService("app", map[string]any{
			"image":        "alpine",
			"network_mode": "host",
			"security_opt": []any{"no-new-privileges"},
			"volumes_from": []any{"other"},
			"ipc":          "shareable",
			"pids_limit":   100,
			"networks":     map[string]any{"default": nil, "frontend": map[string]any{"aliases": []any{"web"}}},
		}, "/work")
		require.NoError(t, err)
		assert.Equal(t, "host", svc["network_mode"])
		assert.Equal(t, 100, svc["pids_limit"])
	})

	t.Run("Should drop a null entrypoint only", func(t *testing.T) {
		svc, err := n.normalizeService("app", map[string]any{"image": "x", "entrypoint": nil}, "/work")
		require.NoError(t, err)
		assert.NotContains(t, svc, "entrypoint")

		svc, err = n.normalizeService("app", map[string]any{"image": "x", "entrypoint": []any{"/bin/sh"}}, "/work")
		require.NoError(t, err)
		assert.Equal(t, []any{"/bin/sh"}, svc["entrypoint"])
	})

	t.Run("Should add the image to the build tags once", func(t *testing.T) {
		svc, err := n.normalizeService("app", map[string]any{
			"image": "registry.local/app:latest",
			"build": map[string]any{"context": "/work", "tags": []any{"app:dev"}},
		}, "/work")
		require.NoError(t, err)
		build := svc["build"].(map[string]any)
		assert.Equal(t, []any{"app:dev", "registry.local/app:latest"}, build["tags"])

		again, err := n.normalizeService("app", svc, "/work")
		require.NoError(t, err)
		assert.Equal(t, []any{"app:dev", "registry.local/app:latest"}, again["build"].(map[string]any)["tags"])
	})

	t.Run("Should drop parser and informational fields", func(t *testing.T) {
		logger, buf := bufferLogger()
		svc, err := NewNormalizer(logger).normalizeService("app", map[string]any{
			"image":          "x",
			"env_file":       []any{".env"},
			"label_file":     []any{"labels"},
			"expose":         []any{"80"},
			"container_name": "my-app",
			"oom_score_adj":  -1000,
		}, "/work")
		require.NoError(t, err)
		assert.NotContains(t, svc, "env_file")
		assert.NotContains(t, svc, "label_file")
		assert.NotContains(t, svc, "expose")
		assert.NotContains(t, svc, "container_name")
		assert.Equal(t, -1000, svc["oom_score_adj"])
		assert.Contains(t, buf.String(), "expose")
		assert.Contains(t, buf.String(), "container_name")
		assert.Contains(t, buf.String(), "oom_score_adj")
	})

	t.Run("Should not warn about a moderate oom_score_adj", func(t *testing.T) {
		logger, buf := bufferLogger()
		_, err := NewNormalizer(logger).normalizeService("app", map[string]any{"image": "x", "oom_score_adj": 100}, "/work")
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("Should merge feature labels under author labels", func(t *testing.T) {
		svc, err := n.normalizeService("app", map[string]any{
			"image":  "x",
			"labels": map[string]any{FeatureDbus: "false", "owner": "me"},
			"volumes": []any{
				map[string]any{"type": "bind", "source": "/run/dbus", "target": "/host/run/dbus"},
				map[string]any{"type": "bind", "source": "/sys", "target": "/sys"},
				map[string]any{"type": "tmpfs", "target": "/scratch"},
			},
			"tmpfs": []any{"/tmp"},
		}, "/work")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			FeatureDbus:  "false",
			FeatureSysfs: "true",
			"owner":      "me",
		}, svc["labels"])
		assert.NotContains(t, svc, "volumes")
		assert.Equal(t, []any{"/tmp", "/scratch"}, svc["tmpfs"])
	})

	t.Run("Should leave its input untouched", func(t *testing.T) {
		raw := map[string]any{
			"image":  "x",
			"expose": []any{"80"},
			"ports":  []any{map[string]any{"target": 80}},
			"labels": map[string]any{"a": "b"},
		}
		_, err := n.normalizeService("app", raw, "/work")
		require.NoError(t, err)
		assert.Contains(t, raw, "expose")
		assert.Equal(t, []any{map[string]any{"target": 80}}, raw["ports"])
	})
}
