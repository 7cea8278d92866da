package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coldbell/clone-actions/internal/config"
	"github.com/gagliardetto/solana-go"
)

const (
	actionVersion = "2.1.3"
	// CAIP-2 id of Solana mainnet-beta.
	blockchainID = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
)

type TransactionBuilder interface {
	SwapTransaction(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) (*solana.Transaction, error)
	LiquidityTransaction(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) (*solana.Transaction, error)
}

type Service struct {
	cfg              config.ActionsServerConfig
	logger           *slog.Logger
	builder          TransactionBuilder
	pools            []poolTicker
	allowAllOrigins  bool
	allowedOriginSet map[string]struct{}
}

func New(cfg config.ActionsServerConfig, logger *slog.Logger, builder TransactionBuilder) (*Service, error) {
	if builder == nil {
		return nil, fmt.Errorf("transaction builder is required")
	}
	pools, err := parsePoolTickers(cfg.PoolTickers)
	if err != nil {
		return nil, err
	}

	allowAllOrigins := false
	allowedOriginSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAllOrigins = true
			continue
		}
		allowedOriginSet[trimmed] = struct{}{}
	}
	if len(allowedOriginSet) == 0 && !allowAllOrigins {
		allowAllOrigins = true
	}

	return &Service{
		cfg:              cfg,
		logger:           logger,
		builder:          builder,
		pools:            pools,
		allowAllOrigins:  allowAllOrigins,
		allowedOriginSet: allowedOriginSet,
	}, nil
}

func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /actions.json", s.handleActionsRules)

	for _, family := range s.families() {
		base := s.cfg.BasePath + "/" + family.name
		mux.HandleFunc("GET "+base+"/{tokenPair}", family.handleDiscovery)
		mux.HandleFunc("GET "+base+"/{tokenPair}/{amount}", family.handleAmountMetadata)
		mux.HandleFunc("POST "+base+"/{tokenPair}", family.handleTransaction)
		mux.HandleFunc("POST "+base+"/{tokenPair}/{amount}", family.handleTransaction)
	}

	return s.withCORS(mux)
}

func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	s.logger.Info("actions-server started",
		"listen_addr", s.cfg.ListenAddr,
		"base_path", s.cfg.BasePath,
		"pools", len(s.pools),
		"allowed_origins", strings.Join(s.cfg.AllowedOrigins, ","),
	)

	select {
	case <-ctx.Done():
		s.logger.Info("actions-server stopping")
		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown actions-server: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	}
}

type healthResponse struct {
	OK bool `json:"ok"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{OK: true})
}

type actionsRule struct {
	PathPattern string `json:"pathPattern"`
	APIPath     string `json:"apiPath"`
}

type actionsRulesResponse struct {
	Rules []actionsRule `json:"rules"`
}

func (s *Service) handleActionsRules(w http.ResponseWriter, r *http.Request) {
	pattern := s.cfg.BasePath + "/**"
	s.respondJSON(w, http.StatusOK, actionsRulesResponse{
		Rules: []actionsRule{{PathPattern: pattern, APIPath: pattern}},
	})
}

// withCORS also stamps the Actions protocol headers; wallets reject responses without them.
func (s *Service) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Action-Version", actionVersion)
		w.Header().Set("X-Blockchain-Ids", blockchainID)

		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			allowed := s.allowAllOrigins
			if !allowed {
				_, allowed = s.allowedOriginSet[origin]
			}

			if allowed {
				if s.allowAllOrigins {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Content-Encoding, Accept-Encoding")
				w.Header().Set("Access-Control-Expose-Headers", "X-Action-Version, X-Blockchain-Ids")
				w.Header().Set("Access-Control-Max-Age", "300")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func decodeJSONBody(r *http.Request, destination any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	defer r.Body.Close()

	// Unknown fields are tolerated: wallet clients add protocol fields over time.
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(destination); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		return fmt.Errorf("invalid request body: multiple JSON values")
	}
	return nil
}

func (s *Service) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to write JSON response", "err", err)
	}
}
