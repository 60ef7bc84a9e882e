package controller

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_NormalizeNetwork(t *testing.T) {
	n := NewNormalizer(discardLogger())

	rejected := []struct {
		name    string
		network map[string]any
		field   string
	}{
		{name: "external network", network: map[string]any{"external": true}, field: "external"},
		{name: "attachable network", network: map[string]any{"attachable": false}, field: "attachable"},
		{name: "overlay driver", network: map[string]any{"driver": "overlay"}, field: "driver"},
		{name: "private label", network: map[string]any{"labels": map[string]any{"io.balena.private.net": "1"}}, field: "labels"},
		{name: "aux addresses", network: map[string]any{"ipam": map[string]any{"config": []any{
			map[string]any{"subnet": "10.0.0.0/24"},
			map[string]any{"subnet": "10.0.1.0/24", "aux_addresses": map[string]any{"host1": "10.0.1.5"}},
		}}}, field: "ipam"},
		{name: "ipv6", network: map[string]any{"enable_ipv6": true}, field: "enable_ipv6"},
	}
	for _, tc := range rejected {
		t.Run("Should reject "+tc.name, func(t *testing.T) {
			_, err := n.normalizeNetwork("frontend", tc.network)
			require.Error(t, err)
			assert.True(t, errorx.IsOfType(err, ValidationError))
			assert.Equal(t, tc.field, Field(err))
		})
	}

	t.Run("Should accept a bridge network", func(t *testing.T) {
		net, err := n.normalizeNetwork("frontend", map[string]any{
			"driver": "bridge",
			"ipam":   map[string]any{"config": []any{map[string]any{"subnet": "10.0.0.0/24", "gateway": "10.0.0.1"}}},
			"labels": map[string]any{"owner": "me"},
		})
		require.NoError(t, err)
		assert.Equal(t, "bridge", net["driver"])
	})

	t.Run("Should warn about a bridge name", func(t *testing.T) {
		logger, buf := bufferLogger()
		net, err := NewNormalizer(logger).normalizeNetwork("frontend", map[string]any{
			"driver_opts": map[string]any{bridgeNameOption: "br-front"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{bridgeNameOption: "br-front"}, net["driver_opts"])
		assert.Contains(t, buf.String(), "br-front")
	})
}

func TestNormalizer_NormalizeVolume(t *testing.T) {
	n := NewNormalizer(discardLogger())

	t.Run("Should accept local volumes", func(t *testing.T) {
		for _, driver := range []string{"", "local", "default"} {
			_, err := n.normalizeVolume("data", map[string]any{"driver": driver, "driver_opts": map[string]any{"type": "tmpfs"}})
			assert.NoError(t, err)
		}
	})

	t.Run("Should reject other drivers", func(t *testing.T) {
		_, err := n.normalizeVolume("data", map[string]any{"driver": "nfs", "external": true})
		require.Error(t, err)
		assert.True(t, errorx.IsOfType(err, ValidationError))
		assert.Equal(t, "driver", Field(err))
	})

	t.Run("Should reject external volumes", func(t *testing.T) {
		_, err := n.normalizeVolume("data", map[string]any{"external": true})
		require.Error(t, err)
		assert.Equal(t, "external", Field(err))
	})

	t.Run("Should validate labels", func(t *testing.T) {
		_, err := n.normalizeVolume("data", map[string]any{"labels": map[string]any{"io.balena.private.vol": "1"}})
		require.Error(t, err)
		assert.True(t, errorx.IsOfType(err, ValidationError))
	})
}
