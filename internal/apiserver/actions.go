package apiserver

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/coldbell/clone-actions/internal/actions"
	"github.com/coldbell/clone-actions/internal/chain"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	amountParameterName = "amount"
	poolNotFoundMessage = "Pool not found."
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

type actionGetResponse struct {
	Icon        string       `json:"icon"`
	Label       string       `json:"label"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Disabled    bool         `json:"disabled,omitempty"`
	Links       *actionLinks `json:"links,omitempty"`
	Error       *actionError `json:"error,omitempty"`
}

type actionLinks struct {
	Actions []linkedAction `json:"actions"`
}

type linkedAction struct {
	Label      string            `json:"label"`
	Href       string            `json:"href"`
	Parameters []actionParameter `json:"parameters,omitempty"`
}

type actionParameter struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Required bool   `json:"required,omitempty"`
}

type actionError struct {
	Message string `json:"message"`
}

type actionPostRequest struct {
	Account string `json:"account"`
}

type actionPostResponse struct {
	Transaction string `json:"transaction"`
}

type poolTicker struct {
	Ticker string
	Asset  string
	Quote  string
	Index  int
}

func parsePoolTickers(tickers []string) ([]poolTicker, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("at least one pool ticker is required")
	}
	out := make([]poolTicker, 0, len(tickers))
	seen := make(map[string]struct{}, len(tickers))
	for i, ticker := range tickers {
		asset, quote, ok := strings.Cut(ticker, "-")
		if !ok || asset == "" || quote == "" {
			return nil, fmt.Errorf("invalid pool ticker %q (expected ASSET-QUOTE)", ticker)
		}
		// Lookup is case-insensitive, so a repeat in any casing would shadow a later pool index.
		key := strings.ToLower(ticker)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate pool ticker %q", ticker)
		}
		seen[key] = struct{}{}
		out = append(out, poolTicker{Ticker: ticker, Asset: asset, Quote: quote, Index: i})
	}
	return out, nil
}

// lookupPool matches tokenPair case-insensitively; the list position is the on-chain pool index.
func (s *Service) lookupPool(tokenPair string) (poolTicker, bool) {
	for _, pool := range s.pools {
		if strings.EqualFold(pool.Ticker, tokenPair) {
			return pool, true
		}
	}
	return poolTicker{}, false
}

type buildFunc func(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) (*solana.Transaction, error)

// actionFamily is one Actions endpoint group (swap or liquidity) sharing the handler flow.
type actionFamily struct {
	svc                    *Service
	name                   string
	icon                   string
	defaultAmount          string
	unavailableTitle       string
	unavailableDescription string
	buildFailureLabel      string
	discovery              func(pool poolTicker) actionGetResponse
	amountMetadata         func(pool poolTicker, amount string) actionGetResponse
	build                  buildFunc
}

func (s *Service) families() []*actionFamily {
	return []*actionFamily{s.swapFamily(), s.liquidityFamily()}
}

func (f *actionFamily) href(pool poolTicker, amount string) string {
	return f.svc.cfg.BasePath + "/" + f.name + "/" + pool.Ticker + "/" + amount
}

func (f *actionFamily) parameterHref(pool poolTicker) string {
	return f.href(pool, "{"+amountParameterName+"}")
}

func (f *actionFamily) unavailable(label, msg string) actionGetResponse {
	return actionGetResponse{
		Icon:        f.icon,
		Label:       label,
		Title:       f.unavailableTitle,
		Description: f.unavailableDescription,
		Disabled:    true,
		Error:       &actionError{Message: msg},
	}
}

func (f *actionFamily) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	pool, ok := f.svc.lookupPool(r.PathValue("tokenPair"))
	if !ok {
		f.svc.respondJSON(w, http.StatusOK, f.unavailable("Not Available", poolNotFoundMessage))
		return
	}
	f.svc.respondJSON(w, http.StatusOK, f.discovery(pool))
}

func (f *actionFamily) handleAmountMetadata(w http.ResponseWriter, r *http.Request) {
	pool, ok := f.svc.lookupPool(r.PathValue("tokenPair"))
	if !ok {
		f.svc.respondJSON(w, http.StatusOK, f.unavailable("Not Available", poolNotFoundMessage))
		return
	}
	f.svc.respondJSON(w, http.StatusOK, f.amountMetadata(pool, r.PathValue("amount")))
}

// handleTransaction always answers 200: failures travel in the payload's error field.
func (f *actionFamily) handleTransaction(w http.ResponseWriter, r *http.Request) {
	tokenPair := r.PathValue("tokenPair")
	pool, ok := f.svc.lookupPool(tokenPair)
	if !ok {
		f.svc.respondJSON(w, http.StatusOK, f.unavailable("Not Available", poolNotFoundMessage))
		return
	}

	amount := strings.TrimSpace(r.PathValue("amount"))
	if amount == "" {
		amount = f.defaultAmount
	}

	var req actionPostRequest
	if err := decodeJSONBody(r, &req); err != nil {
		f.fail(w, pool, "", amount, err)
		return
	}
	user, err := actions.ParseAccount(req.Account)
	if err != nil {
		f.fail(w, pool, req.Account, amount, err)
		return
	}

	tx, err := f.build(r.Context(), user, pool.Index, amount)
	if err != nil {
		f.fail(w, pool, req.Account, amount, err)
		return
	}
	encoded, err := chain.EncodeTransactionBase64(tx)
	if err != nil {
		f.fail(w, pool, req.Account, amount, err)
		return
	}

	f.svc.logger.Debug("action transaction built",
		"family", f.name,
		"ticker", pool.Ticker,
		"account", user.String(),
		"amount", amount,
		"instructions", len(tx.Message.Instructions),
	)
	f.svc.respondJSON(w, http.StatusOK, actionPostResponse{Transaction: encoded})
}

func (f *actionFamily) fail(w http.ResponseWriter, pool poolTicker, account, amount string, err error) {
	f.svc.logger.Warn("action transaction failed",
		"family", f.name,
		"ticker", pool.Ticker,
		"account", account,
		"amount", amount,
		"err", err,
	)
	f.svc.respondJSON(w, http.StatusOK, f.unavailable(f.buildFailureLabel, err.Error()))
}

// formatUSD renders whole dollars with US grouping, e.g. "$1,000". Halves round away from zero.
func formatUSD(amount float64) string {
	return usdPrinter.Sprintf("$%v", number.Decimal(math.Round(amount), number.MaxFractionDigits(0)))
}
