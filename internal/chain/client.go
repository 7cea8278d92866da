// Package chain wraps the Solana RPC reads the action builders depend on and compiles
// their instructions into unsigned transactions.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

var ErrAccountNotFound = errors.New("account not found")

type Client struct {
	rpc        *rpc.Client
	limiter    *rate.Limiter
	commitment rpc.CommitmentType
}

type Options struct {
	RPCURL            string
	Commitment        rpc.CommitmentType
	RequestsPerSecond int
}

func New(opts Options) *Client {
	commitment := opts.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentFinalized
	}

	limit := rate.Inf
	burst := 0
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = opts.RequestsPerSecond
	}

	return &Client{
		rpc:        rpc.New(opts.RPCURL),
		limiter:    rate.NewLimiter(limit, burst),
		commitment: commitment,
	}
}

// LookupAccount reports (data, true, nil) for an existing account and (nil, false, nil) when
// the node has no account at key. Any error means the lookup itself failed.
func (c *Client) LookupAccount(ctx context.Context, key solana.PublicKey) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	resp, err := c.rpc.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get account %s: %w", key, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, false, nil
	}
	return resp.Value.Data.GetBinary(), true, nil
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}

	recent, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if recent == nil || recent.Value == nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: empty response")
	}
	return recent.Value.Blockhash, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

type AccountLookup interface {
	LookupAccount(ctx context.Context, key solana.PublicKey) ([]byte, bool, error)
}

// FetchAccount is LookupAccount for accounts that must exist.
func FetchAccount(ctx context.Context, lookup AccountLookup, key solana.PublicKey) ([]byte, error) {
	data, found, err := lookup.LookupAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return data, nil
}
