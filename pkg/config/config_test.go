package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agent.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"node_name": "validator-7",
		"node_identity": "identity-key",
		"local_rpc_port": 9887,
		"reference_rpc_url": "https://rpc.example.com",
		"listen_addr": ":9200",
		"grpc_listen_addr": ":50051",
		"ws_url": "ws://localhost:8900",
		"check_interval": "45s",
		"push": {
			"enabled": true,
			"url": "https://collector.example.com/push",
			"api_key": "secret",
			"retry_attempts": 5
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "validator-7", cfg.NodeName)
	assert.Equal(t, "identity-key", cfg.NodeIdentity)
	assert.Equal(t, 9887, cfg.LocalRPCPort)
	assert.Equal(t, "https://rpc.example.com", cfg.ReferenceRPCURL)
	assert.Equal(t, ":9200", cfg.ListenAddr)
	assert.Equal(t, ":50051", cfg.GRPCListenAddr)
	assert.Equal(t, "ws://localhost:8900", cfg.WSURL)
	assert.Equal(t, 45*time.Second, time.Duration(cfg.CheckInterval))
	assert.True(t, cfg.Push.Enabled)
	assert.Equal(t, 5, cfg.Push.RetryAttempts)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"node_name": "validator-7"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8899, cfg.LocalRPCPort)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.ReferenceRPCURL)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.CheckInterval))
	assert.Equal(t, 3, cfg.Push.RetryAttempts)
	assert.False(t, cfg.Push.Enabled)
	assert.Empty(t, cfg.GRPCListenAddr)
	assert.Empty(t, cfg.WSURL)
}

func TestLoadMissingNodeNameUsesPlaceholder(t *testing.T) {
	t.Setenv("NODE_NAME", "")

	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PlaceholderNodeName, cfg.NodeName)
}

func TestLoadEnvOverridesWin(t *testing.T) {
	t.Setenv("NODE_NAME", "env-node")
	t.Setenv("NODE_IDENTITY", "env-identity")
	t.Setenv("MONITORING_API_URL", "https://env.example.com/push")
	t.Setenv("MONITORING_API_KEY", "env-secret")

	path := writeConfig(t, `{
		"node_name": "file-node",
		"push": {"enabled": true, "url": "https://file.example.com", "api_key": "file-secret"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-node", cfg.NodeName)
	assert.Equal(t, "env-identity", cfg.NodeIdentity)
	assert.Equal(t, "https://env.example.com/push", cfg.Push.URL)
	assert.Equal(t, "env-secret", cfg.Push.APIKey)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad json", content: `{not json`},
		{name: "bad interval", content: `{"check_interval": "soon"}`},
		{name: "bad port", content: `{"local_rpc_port": 700000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestDurationUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string form", input: `"1m30s"`, want: 90 * time.Second},
		{name: "numeric nanoseconds", input: `30000000000`, want: 30 * time.Second},
		{name: "invalid string", input: `"soon"`, wantErr: true},
		{name: "invalid type", input: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}
