// Package actions builds the unsigned Clone swap and liquidity transactions served by the
// Actions endpoints.
package actions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/coldbell/clone-actions/internal/chain"
	"github.com/coldbell/clone-actions/internal/clone"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
)

// SwapResultThreshold is the minimum output accepted by swaps. Zero disables slippage protection.
const SwapResultThreshold uint64 = 0

var ErrInvalidAccount = errors.New("invalid account")

type Chain interface {
	LookupAccount(ctx context.Context, key solana.PublicKey) ([]byte, bool, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

type Builder struct {
	chain   Chain
	state   clone.StateAddresses
	timeout time.Duration
}

// programState is one consistent read of the three program-wide accounts.
type programState struct {
	clone   *clone.Clone
	pools   *clone.Pools
	oracles *clone.Oracles
}

func NewBuilder(c Chain, timeout time.Duration) (*Builder, error) {
	state, err := clone.DeriveStateAddresses(clone.ProgramID)
	if err != nil {
		return nil, err
	}
	return &Builder{chain: c, state: state, timeout: timeout}, nil
}

func ParseAccount(raw string) (solana.PublicKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: account is required", ErrInvalidAccount)
	}
	key, err := solana.PublicKeyFromBase58(trimmed)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q is not a base58 public key", ErrInvalidAccount, raw)
	}
	return key, nil
}

// SwapTransaction buys the pool's onasset with amount collateral, creating the user's onasset
// token account first when it does not exist.
func (b *Builder) SwapTransaction(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) (*solana.Transaction, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	instructions, err := b.swapInstructions(ctx, user, poolIndex, amount)
	if err != nil {
		return nil, err
	}
	return chain.PrepareTransaction(ctx, b.chain, instructions, user)
}

// LiquidityTransaction deposits half of amount as comet collateral and provides the other half
// as liquidity to the pool, initializing the user account on first use.
func (b *Builder) LiquidityTransaction(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) (*solana.Transaction, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	instructions, err := b.liquidityInstructions(ctx, user, poolIndex, amount)
	if err != nil {
		return nil, err
	}
	return chain.PrepareTransaction(ctx, b.chain, instructions, user)
}

func (b *Builder) swapInstructions(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) ([]solana.Instruction, error) {
	quantity, err := ParseCollateralAmount(amount)
	if err != nil {
		return nil, err
	}
	poolIndexU8, err := toPoolIndex(poolIndex)
	if err != nil {
		return nil, err
	}

	state, err := b.loadState(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := state.pools.Pool(poolIndex)
	if err != nil {
		return nil, err
	}
	assetOracle, err := state.oracles.Oracle(int(pool.AssetInfo.OracleInfoIndex))
	if err != nil {
		return nil, err
	}
	collateralOracle, err := state.oracles.Oracle(int(state.clone.Collateral.OracleInfoIndex))
	if err != nil {
		return nil, err
	}

	onassetMint := pool.AssetInfo.OnassetMint
	collateralMint := state.clone.Collateral.Mint
	treasury := state.clone.TreasuryAddress

	userCollateral, err := clone.AssociatedTokenAddress(user, collateralMint)
	if err != nil {
		return nil, err
	}
	userOnasset, err := clone.AssociatedTokenAddress(user, onassetMint)
	if err != nil {
		return nil, err
	}
	treasuryCollateral, err := clone.AssociatedTokenAddress(treasury, collateralMint)
	if err != nil {
		return nil, err
	}
	treasuryOnasset, err := clone.AssociatedTokenAddress(treasury, onassetMint)
	if err != nil {
		return nil, err
	}

	swap, err := clone.NewSwapInstruction(clone.SwapInstructionArgs{
		PoolIndex:            poolIndexU8,
		Quantity:             quantity,
		QuantityIsInput:      true,
		QuantityIsCollateral: true,
		ResultThreshold:      SwapResultThreshold,
	}, clone.SwapInstructionAccounts{
		User:                           user,
		Clone:                          b.state.Clone,
		Pools:                          b.state.Pools,
		Oracles:                        b.state.Oracles,
		UserCollateralTokenAccount:     userCollateral,
		UserOnassetTokenAccount:        userOnasset,
		OnassetMint:                    onassetMint,
		CollateralMint:                 collateralMint,
		CollateralVault:                state.clone.Collateral.Vault,
		TreasuryOnassetTokenAccount:    treasuryOnasset,
		TreasuryCollateralTokenAccount: treasuryCollateral,
		RemainingAccounts:              []solana.PublicKey{collateralOracle.Address, assetOracle.Address},
	})
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		clone.NewCreateIdempotentATAInstruction(user, userOnasset, user, onassetMint),
		swap,
	}, nil
}

func (b *Builder) liquidityInstructions(ctx context.Context, user solana.PublicKey, poolIndex int, amount string) ([]solana.Instruction, error) {
	scaled, err := ParseCollateralAmount(amount)
	if err != nil {
		return nil, err
	}
	half := SplitCollateral(scaled)
	if half == 0 {
		return nil, fmt.Errorf("%w: %q is too small to split", ErrInvalidAmount, amount)
	}
	poolIndexU8, err := toPoolIndex(poolIndex)
	if err != nil {
		return nil, err
	}

	userAccount, _, err := clone.DeriveUserPDA(clone.ProgramID, user)
	if err != nil {
		return nil, fmt.Errorf("derive user PDA: %w", err)
	}

	var (
		state           *programState
		userAccountData []byte
		userExists      bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = b.loadState(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		userAccountData, userExists, err = b.chain.LookupAccount(gctx, userAccount)
		if err != nil {
			return fmt.Errorf("probe user account %s: %w", userAccount, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if userExists {
		if err := clone.CheckAccount_User(userAccountData); err != nil {
			return nil, fmt.Errorf("user account %s: %w", userAccount, err)
		}
	}

	if _, err := state.pools.Pool(poolIndex); err != nil {
		return nil, err
	}
	indices, err := clone.AllOracleIndices(len(state.oracles.Oracles))
	if err != nil {
		return nil, err
	}
	feeds := make([]solana.PublicKey, 0, len(state.oracles.Oracles))
	for _, oracle := range state.oracles.Oracles {
		feeds = append(feeds, oracle.Address)
	}

	userCollateral, err := clone.AssociatedTokenAddress(user, state.clone.Collateral.Mint)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 4)
	if !userExists {
		initUser, err := clone.NewInitializeUserInstruction(user, clone.InitializeUserInstructionAccounts{
			Payer:       user,
			UserAccount: userAccount,
		})
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, initUser)
	}

	addCollateral, err := clone.NewAddCollateralToCometInstruction(half, clone.AddCollateralToCometInstructionAccounts{
		User:                       user,
		UserAccount:                userAccount,
		Clone:                      b.state.Clone,
		Vault:                      state.clone.Collateral.Vault,
		UserCollateralTokenAccount: userCollateral,
	})
	if err != nil {
		return nil, err
	}
	updatePrices, err := clone.NewUpdatePricesInstruction(b.state.Oracles, indices, feeds)
	if err != nil {
		return nil, err
	}
	addLiquidity, err := clone.NewAddLiquidityToCometInstruction(poolIndexU8, half, clone.AddLiquidityToCometInstructionAccounts{
		User:        user,
		UserAccount: userAccount,
		Clone:       b.state.Clone,
		Pools:       b.state.Pools,
		Oracles:     b.state.Oracles,
	})
	if err != nil {
		return nil, err
	}

	return append(instructions, addCollateral, updatePrices, addLiquidity), nil
}

// loadState reads the clone, pools and oracles accounts concurrently; the first failure cancels
// the other reads.
func (b *Builder) loadState(ctx context.Context) (*programState, error) {
	var (
		cloneData   []byte
		poolsData   []byte
		oraclesData []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cloneData, err = chain.FetchAccount(gctx, b.chain, b.state.Clone)
		return err
	})
	g.Go(func() (err error) {
		poolsData, err = chain.FetchAccount(gctx, b.chain, b.state.Pools)
		return err
	})
	g.Go(func() (err error) {
		oraclesData, err = chain.FetchAccount(gctx, b.chain, b.state.Oracles)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load clone state: %w", err)
	}

	cloneAccount, err := clone.ParseAccount_Clone(cloneData)
	if err != nil {
		return nil, fmt.Errorf("decode clone %s: %w", b.state.Clone, err)
	}
	pools, err := clone.ParseAccount_Pools(poolsData)
	if err != nil {
		return nil, fmt.Errorf("decode pools %s: %w", b.state.Pools, err)
	}
	oracles, err := clone.ParseAccount_Oracles(oraclesData)
	if err != nil {
		return nil, fmt.Errorf("decode oracles %s: %w", b.state.Oracles, err)
	}
	return &programState{clone: cloneAccount, pools: pools, oracles: oracles}, nil
}

func (b *Builder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func toPoolIndex(poolIndex int) (uint8, error) {
	if poolIndex < 0 || poolIndex > math.MaxUint8 {
		return 0, fmt.Errorf("%w: pool index %d does not fit u8", clone.ErrIndexOutOfRange, poolIndex)
	}
	return uint8(poolIndex), nil
}
