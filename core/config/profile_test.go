package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *ProfileManager {
	t.Helper()
	pm, err := NewProfileManager(t.TempDir())
	require.NoError(t, err)
	return pm
}

func TestDefaultProfilesSeeded(t *testing.T) {
	pm := newManager(t)

	assert.Equal(t, "solo", pm.CurrentProfileName())

	for _, name := range []string{"solo", "testnet", "mainnet"} {
		p, err := pm.GetProfile(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p.Endpoints, name)
		assert.NotZero(t, p.Timeout, name)
		assert.NotZero(t, p.CacheTTL, name)
	}
}

func TestSwitchAndReload(t *testing.T) {
	dir := t.TempDir()
	pm, err := NewProfileManager(dir)
	require.NoError(t, err)
	require.NoError(t, pm.SwitchProfile("testnet"))

	// 重新加载后切换仍然生效
	pm2, err := NewProfileManager(dir)
	require.NoError(t, err)
	assert.Equal(t, "testnet", pm2.CurrentProfileName())
}

func TestSwitchUnknownProfile(t *testing.T) {
	pm := newManager(t)
	assert.Error(t, pm.SwitchProfile("nope"))
}

func TestDeleteCurrentProfileRejected(t *testing.T) {
	pm := newManager(t)

	assert.Error(t, pm.DeleteProfile(pm.CurrentProfileName()), "当前profile不可删除")

	require.NoError(t, pm.DeleteProfile("mainnet"))
	_, err := pm.GetProfile("mainnet")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	pm := newManager(t)

	t.Setenv("VEQUORA_RPC", "http://10.0.0.5:8669/jsonrpc")
	t.Setenv("VEQUORA_CONTRACT", "0x0000000000000000000000000000000000000042")

	p, err := pm.GetCurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8669/jsonrpc", p.Endpoints[0].JSONRPC)
	assert.Equal(t, "0x0000000000000000000000000000000000000042", p.ContractAddress)

	// 磁盘上的profile不受影响
	orig, err := pm.GetProfile("solo")
	require.NoError(t, err)
	assert.NotEqual(t, p.Endpoints[0].JSONRPC, orig.Endpoints[0].JSONRPC, "环境变量覆盖不能写回存储")
}

func TestDurationJSON(t *testing.T) {
	type wrapper struct {
		D Duration `json:"d"`
	}

	data, err := json.Marshal(wrapper{D: Duration(90 * time.Second)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1m30s"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2h"}`), &w))
	assert.Equal(t, 2*time.Hour, time.Duration(w.D))
}

func TestWSEndpoint(t *testing.T) {
	pm := newManager(t)

	solo, err := pm.GetProfile("solo")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8669/ws", solo.WSEndpoint())

	noWS := &Profile{Endpoints: []EndpointConfig{{Name: "x", JSONRPC: "http://x"}}}
	assert.Empty(t, noWS.WSEndpoint())
}

func TestTransportConfig(t *testing.T) {
	pm := newManager(t)
	p, err := pm.GetProfile("testnet")
	require.NoError(t, err)

	tc := p.TransportConfig()
	require.Len(t, tc.Endpoints, 2)
	assert.Equal(t, 60*time.Second, tc.Timeout)
	assert.Equal(t, 5, tc.RetryAttempts)
}
