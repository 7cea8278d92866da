package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadActionsServerConfigDefaults(t *testing.T) {
	t.Setenv("RPC_URL", "")
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("ACTIONS_POOL_TICKERS", "")

	cfg, err := LoadActionsServerConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, rpc.CommitmentFinalized, cfg.Commitment)
	assert.Equal(t, "/api/clone", cfg.BasePath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 20*time.Second, cfg.RPCTimeout)
	assert.Equal(t, defaultCloneProgramID, cfg.CloneProgramID)
	assert.Equal(t, DefaultPoolTickers(), cfg.PoolTickers)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadActionsServerConfigOverrides(t *testing.T) {
	t.Setenv("RPC_URL", "https://rpc.example.org")
	t.Setenv("SOLANA_COMMITMENT", "max")
	t.Setenv("RPC_REQUESTS_PER_SECOND", "25")
	t.Setenv("ACTIONS_BASE_PATH", "actions/clone/")
	t.Setenv("ACTIONS_POOL_TICKERS", "clARB-USDC, clOP-USDC")

	cfg, err := LoadActionsServerConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, rpc.CommitmentFinalized, cfg.Commitment)
	assert.Equal(t, 25, cfg.RPCRequestsPerSecond)
	assert.Equal(t, "/actions/clone", cfg.BasePath)
	assert.Equal(t, []string{"clARB-USDC", "clOP-USDC"}, cfg.PoolTickers)
}

func TestLoadActionsServerConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		key   string
		value string
	}{
		"commitment":      {key: "SOLANA_COMMITMENT", value: "eventually"},
		"program id":      {key: "CLONE_PROGRAM_ID", value: "not-a-key"},
		"negative rate":   {key: "RPC_REQUESTS_PER_SECOND", value: "-1"},
		"rpc timeout":     {key: "RPC_TIMEOUT", value: "5m"},
		"root base path":  {key: "ACTIONS_BASE_PATH", value: "/"},
		"ticker format":   {key: "ACTIONS_POOL_TICKERS", value: "clARB"},
		"ticker repeated": {key: "ACTIONS_POOL_TICKERS", value: "clARB-USDC,clarb-usdc"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := LoadActionsServerConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestDefaultPoolTickersReturnsCopy(t *testing.T) {
	tickers := DefaultPoolTickers()
	tickers[0] = "mutated"
	assert.Equal(t, "clARB-USDC", DefaultPoolTickers()[0])
}

func TestParseConfigFileFlattensNestedKeys(t *testing.T) {
	body := []byte(`
rpc:
  url: https://rpc.example.org
actions-server:
  allowed_origins:
    - https://dial.to
    - https://x.com
  log:
    level: debug
`)

	values, err := parseConfigFile(body)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", values["RPC_URL"])
	assert.Equal(t, "https://dial.to,https://x.com", values["ACTIONS_SERVER_ALLOWED_ORIGINS"])
	assert.Equal(t, "debug", values["ACTIONS_SERVER_LOG_LEVEL"])
}

func TestParseConfigFileRejectsMalformedYAML(t *testing.T) {
	_, err := parseConfigFile([]byte("rpc: [unterminated"))
	require.Error(t, err)
}
