package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level      string
	Format     string
	Output     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ActionsServerConfig struct {
	ListenAddr           string
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	AllowedOrigins       []string
	BasePath             string
	RPCURL               string
	Commitment           rpc.CommitmentType
	RPCTimeout           time.Duration
	RPCRequestsPerSecond int
	CloneProgramID       solana.PublicKey
	PoolTickers          []string
	SwapIconURL          string
	LiquidityIconURL     string
	Log                  LogConfig
}

const (
	DefaultRPCURL = "https://api.mainnet-beta.solana.com"

	defaultSwapIconURL      = "https://pbs.twimg.com/media/GOSLcp-XUAAH7JE?format=jpg&name=medium"
	defaultLiquidityIconURL = "https://github.com/Clone-Protocol/actions/blob/ade118facb5727e908e8837e2cbfc605c04445e0/images/clone_liquidity.png?raw=true"
)

var (
	defaultCloneProgramID = solana.MustPublicKeyFromBase58("C1onEW2kPetmHmwe74YC1ESx3LnFEpVau6g2pg4fHycr")

	// Order matters: a ticker's position is the on-chain pool index.
	defaultPoolTickers = []string{
		"clARB-USDC",
		"clOP-USDC",
		"clSUI-USDC",
		"clDOGE-USDC",
		"clBNB-USDC",
		"clAPT-USDC",
		"cl1MPEPE-USDC",
	}
)

func LoadActionsServerConfig() (ActionsServerConfig, error) {
	if err := ensureRuntimeConfigLoaded(); err != nil {
		return ActionsServerConfig{}, err
	}

	readTimeout, err := envDuration("ACTIONS_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return ActionsServerConfig{}, err
	}
	writeTimeout, err := envDuration("ACTIONS_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return ActionsServerConfig{}, err
	}
	idleTimeout, err := envDuration("ACTIONS_SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return ActionsServerConfig{}, err
	}
	rpcTimeout, err := envDuration("RPC_TIMEOUT", 20*time.Second)
	if err != nil {
		return ActionsServerConfig{}, err
	}
	if rpcTimeout > writeTimeout {
		return ActionsServerConfig{}, fmt.Errorf("invalid RPC_TIMEOUT: must be <= ACTIONS_SERVER_WRITE_TIMEOUT")
	}
	requestsPerSecond, err := envNonNegativeInt("RPC_REQUESTS_PER_SECOND", 0)
	if err != nil {
		return ActionsServerConfig{}, err
	}

	// "max" is the strongest commitment, which the RPC node reports as finalized.
	commitment, err := envCommitment("SOLANA_COMMITMENT", rpc.CommitmentFinalized)
	if err != nil {
		return ActionsServerConfig{}, err
	}

	cloneProgramID, err := envPubkey("CLONE_PROGRAM_ID", defaultCloneProgramID)
	if err != nil {
		return ActionsServerConfig{}, err
	}

	tickers, err := parsePoolTickers(envOrDefault("ACTIONS_POOL_TICKERS", ""))
	if err != nil {
		return ActionsServerConfig{}, err
	}

	basePath := "/" + strings.Trim(envOrDefault("ACTIONS_BASE_PATH", "/api/clone"), "/")
	if basePath == "/" {
		return ActionsServerConfig{}, fmt.Errorf("invalid ACTIONS_BASE_PATH: must not be the root path")
	}

	logCfg, err := buildLogConfig("ACTIONS_SERVER", "actions-server")
	if err != nil {
		return ActionsServerConfig{}, err
	}

	return ActionsServerConfig{
		ListenAddr:     envOrDefault("ACTIONS_SERVER_LISTEN_ADDR", ":8080"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		AllowedOrigins: parseCSVEnv(envOrDefault("ACTIONS_SERVER_ALLOWED_ORIGINS", "*"), []string{"*"}),
		BasePath:       basePath,
		// RPC_URL is the variable the public deployment documents; SOLANA_RPC_URL is kept for parity
		// with the other services sharing this config file.
		RPCURL:               envOrDefault("RPC_URL", envOrDefault("SOLANA_RPC_URL", DefaultRPCURL)),
		Commitment:           commitment,
		RPCTimeout:           rpcTimeout,
		RPCRequestsPerSecond: requestsPerSecond,
		CloneProgramID:       cloneProgramID,
		PoolTickers:          tickers,
		SwapIconURL:          envOrDefault("ACTIONS_SWAP_ICON_URL", defaultSwapIconURL),
		LiquidityIconURL:     envOrDefault("ACTIONS_LIQUIDITY_ICON_URL", defaultLiquidityIconURL),
		Log:                  logCfg,
	}, nil
}

func DefaultPoolTickers() []string {
	out := make([]string, len(defaultPoolTickers))
	copy(out, defaultPoolTickers)
	return out
}

type ConfigSource struct {
	Phase  string
	Path   string
	Loaded bool
}

func CurrentConfigSource() (ConfigSource, error) {
	if err := ensureRuntimeConfigLoaded(); err != nil {
		return ConfigSource{}, err
	}
	return ConfigSource{
		Phase:  runtimeConfigPhase,
		Path:   runtimeConfigPath,
		Loaded: runtimeConfigLoaded,
	}, nil
}

func parsePoolTickers(raw string) ([]string, error) {
	parts := parseCSVEnv(raw, nil)
	if len(parts) == 0 {
		return DefaultPoolTickers(), nil
	}

	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		base, quote, ok := strings.Cut(part, "-")
		if !ok || strings.TrimSpace(base) == "" || strings.TrimSpace(quote) == "" {
			return nil, fmt.Errorf("invalid ACTIONS_POOL_TICKERS entry %q, expected ASSET-QUOTE", part)
		}
		key := strings.ToLower(part)
		if _, dup := seen[key]; dup {
			// A duplicate would shift every later pool index.
			return nil, fmt.Errorf("duplicate ACTIONS_POOL_TICKERS entry %q", part)
		}
		seen[key] = struct{}{}
		out = append(out, part)
	}
	return out, nil
}

func buildLogConfig(prefix string, serviceName string) (LogConfig, error) {
	level := envOrDefault(prefix+"_LOG_LEVEL", envOrDefault("LOG_LEVEL", "info"))
	format := envOrDefault(prefix+"_LOG_FORMAT", envOrDefault("LOG_FORMAT", "text"))
	output := envOrDefault(prefix+"_LOG_OUTPUT", envOrDefault("LOG_OUTPUT", "console"))
	filePath := envOrDefault(prefix+"_LOG_FILE", envOrDefault("LOG_FILE", filepath.Join(".docker", serviceName, serviceName+".log")))

	maxSize, err := envInt("LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return LogConfig{}, err
	}
	maxBackups, err := envNonNegativeInt("LOG_MAX_BACKUPS", 5)
	if err != nil {
		return LogConfig{}, err
	}
	maxAge, err := envNonNegativeInt("LOG_MAX_AGE_DAYS", 14)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{
		Level:      level,
		Format:     format,
		Output:     output,
		FilePath:   filePath,
		MaxSizeMB:  maxSize,
		MaxBackups: maxBackups,
		MaxAgeDays: maxAge,
	}, nil
}

func envPubkey(key string, fallback solana.PublicKey) (solana.PublicKey, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return pk, nil
}

func envCommitment(key string, fallback rpc.CommitmentType) (rpc.CommitmentType, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	switch strings.ToLower(raw) {
	case string(rpc.CommitmentProcessed), "recent":
		return rpc.CommitmentProcessed, nil
	case string(rpc.CommitmentConfirmed), "single", "singlegossip":
		return rpc.CommitmentConfirmed, nil
	case string(rpc.CommitmentFinalized), "max", "root":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("invalid %s: %q (expected processed|confirmed|finalized)", key, raw)
	}
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0", key)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0", key)
	}
	return v, nil
}

func envNonNegativeInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(valueForKey(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: must be >= 0", key)
	}
	return v, nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(valueForKey(key)); value != "" {
		return value
	}
	return fallback
}

func parseCSVEnv(raw string, fallback []string) []string {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

var (
	runtimeConfigOnce   sync.Once
	runtimeConfigErr    error
	runtimeConfigValues map[string]string
	runtimeConfigLoaded bool
	runtimeConfigPath   string
	runtimeConfigPhase  string
)

func ensureRuntimeConfigLoaded() error {
	runtimeConfigOnce.Do(func() {
		runtimeConfigValues = make(map[string]string)

		phase := strings.TrimSpace(os.Getenv("CONFIG_PHASE"))
		if phase == "" {
			phase = "local"
		}
		runtimeConfigPhase = phase

		configPath := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
		explicitPath := configPath != ""
		if configPath == "" {
			configPath = filepath.Join("config", "config-"+phase+".yaml")
		}

		body, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicitPath {
				return
			}
			runtimeConfigErr = fmt.Errorf("read config file %q: %w", configPath, err)
			return
		}

		values, err := parseConfigFile(body)
		if err != nil {
			runtimeConfigErr = fmt.Errorf("load config file %q: %w", configPath, err)
			return
		}

		runtimeConfigValues = values
		runtimeConfigLoaded = true
		if absPath, err := filepath.Abs(configPath); err == nil {
			runtimeConfigPath = absPath
		} else {
			runtimeConfigPath = configPath
		}
	})
	return runtimeConfigErr
}

func parseConfigFile(body []byte) (map[string]string, error) {
	raw := make(map[string]any)
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	flattened, err := flattenConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	return flattened, nil
}

func flattenConfig(raw map[string]any) (map[string]string, error) {
	out := make(map[string]string)
	for key, value := range raw {
		segment := normalizeKeySegment(key)
		if segment == "" {
			continue
		}
		if err := flattenConfigValue(segment, value, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flattenConfigValue(prefix string, value any, out map[string]string) error {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			segment := normalizeKeySegment(key)
			if segment == "" {
				continue
			}
			if err := flattenConfigValue(prefix+"_"+segment, child, out); err != nil {
				return err
			}
		}
		return nil
	case map[any]any:
		for keyAny, child := range typed {
			keyText, ok := keyAny.(string)
			if !ok {
				return fmt.Errorf("unsupported map key type %T under %q", keyAny, prefix)
			}
			segment := normalizeKeySegment(keyText)
			if segment == "" {
				continue
			}
			if err := flattenConfigValue(prefix+"_"+segment, child, out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			switch scalar := item.(type) {
			case string:
				if strings.TrimSpace(scalar) == "" {
					continue
				}
				parts = append(parts, strings.TrimSpace(scalar))
			case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
				parts = append(parts, fmt.Sprint(scalar))
			default:
				return fmt.Errorf("unsupported list item type %T under %q", item, prefix)
			}
		}
		out[prefix] = strings.Join(parts, ",")
		return nil
	case nil:
		return nil
	default:
		out[prefix] = fmt.Sprint(typed)
		return nil
	}
}

func normalizeKeySegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	lastUnderscore := false

	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}

func valueForKey(key string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	if err := ensureRuntimeConfigLoaded(); err != nil {
		return ""
	}

	if value := strings.TrimSpace(runtimeConfigValues[key]); value != "" {
		return value
	}
	return ""
}
