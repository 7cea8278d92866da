package actions

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/coldbell/clone-actions/internal/chain"
	"github.com/coldbell/clone-actions/internal/clone"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey][]byte
	failures  map[solana.PublicKey]error
	blockhash solana.Hash
}

func (f *fakeChain) LookupAccount(_ context.Context, key solana.PublicKey) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[key]; ok {
		return nil, false, err
	}
	data, ok := f.accounts[key]
	return data, ok, nil
}

func (f *fakeChain) LatestBlockhash(context.Context) (solana.Hash, error) {
	return f.blockhash, nil
}

type fixture struct {
	chain       *fakeChain
	state       clone.StateAddresses
	oracleFeeds []solana.PublicKey
	onassetMint solana.PublicKey
	vault       solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	state, err := clone.DeriveStateAddresses(clone.ProgramID)
	require.NoError(t, err)

	feeds := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}
	onassetMint := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()

	cloneData, err := clone.MarshalAccount(clone.Account_Clone, &clone.Clone{
		Admin:           solana.NewWallet().PublicKey(),
		TreasuryAddress: solana.NewWallet().PublicKey(),
		Collateral: clone.Collateral{
			OracleInfoIndex: 0,
			Mint:            solana.NewWallet().PublicKey(),
			Vault:           vault,
			Scale:           6,
		},
	})
	require.NoError(t, err)

	poolsData, err := clone.MarshalAccount(clone.Account_Pools, &clone.Pools{Pools: []clone.Pool{
		{AssetInfo: clone.AssetInfo{OnassetMint: solana.NewWallet().PublicKey(), OracleInfoIndex: 1}},
		{AssetInfo: clone.AssetInfo{OnassetMint: onassetMint, OracleInfoIndex: 2}},
	}})
	require.NoError(t, err)

	oracles := make([]clone.OracleInfo, 0, len(feeds))
	for _, feed := range feeds {
		oracles = append(oracles, clone.OracleInfo{Address: feed})
	}
	oraclesData, err := clone.MarshalAccount(clone.Account_Oracles, &clone.Oracles{Oracles: oracles})
	require.NoError(t, err)

	return &fixture{
		chain: &fakeChain{
			accounts: map[solana.PublicKey][]byte{
				state.Clone:   cloneData,
				state.Pools:   poolsData,
				state.Oracles: oraclesData,
			},
			failures:  map[solana.PublicKey]error{},
			blockhash: solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes()),
		},
		state:       state,
		oracleFeeds: feeds,
		onassetMint: onassetMint,
		vault:       vault,
	}
}

func (f *fixture) builder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(f.chain, 0)
	require.NoError(t, err)
	return b
}

func decompile(t *testing.T, tx *solana.Transaction) (solana.PublicKey, []chain.DecompiledInstruction) {
	t.Helper()
	payer, instructions, err := chain.DecompileInstructions(tx)
	require.NoError(t, err)
	return payer, instructions
}

func discriminatorOf(ix chain.DecompiledInstruction) [8]byte {
	var out [8]byte
	copy(out[:], ix.Data)
	return out
}

func TestSwapTransaction(t *testing.T) {
	f := newFixture(t)
	user := solana.NewWallet().PublicKey()

	tx, err := f.builder(t).SwapTransaction(context.Background(), user, 1, "10")
	require.NoError(t, err)
	assert.Equal(t, f.chain.blockhash, tx.Message.RecentBlockhash)

	payer, instructions := decompile(t, tx)
	assert.Equal(t, user, payer)
	require.Len(t, instructions, 2)

	ata := instructions[0]
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ata.ProgramID)
	userOnasset, err := clone.AssociatedTokenAddress(user, f.onassetMint)
	require.NoError(t, err)
	assert.Equal(t, userOnasset, ata.Accounts[1].PublicKey)

	swap := instructions[1]
	assert.Equal(t, clone.ProgramID, swap.ProgramID)
	assert.Equal(t, clone.Instruction_Swap, discriminatorOf(swap))
	assert.EqualValues(t, 1, swap.Data[8])
	assert.EqualValues(t, 10_000_000, binary.LittleEndian.Uint64(swap.Data[9:17]))
	assert.Equal(t, []byte{1, 1}, swap.Data[17:19])
	assert.EqualValues(t, SwapResultThreshold, binary.LittleEndian.Uint64(swap.Data[19:27]))

	// collateral oracle then the pool's oracle as the trailing remaining accounts
	n := len(swap.Accounts)
	assert.Equal(t, f.oracleFeeds[0], swap.Accounts[n-2].PublicKey)
	assert.Equal(t, f.oracleFeeds[2], swap.Accounts[n-1].PublicKey)
	assert.Equal(t, f.vault, swap.Accounts[8].PublicKey)
}

func TestSwapTransactionRejectsUnknownPool(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder(t).SwapTransaction(context.Background(), solana.NewWallet().PublicKey(), 5, "10")
	require.ErrorIs(t, err, clone.ErrIndexOutOfRange)

	_, err = f.builder(t).SwapTransaction(context.Background(), solana.NewWallet().PublicKey(), 300, "10")
	require.ErrorIs(t, err, clone.ErrIndexOutOfRange)
}

func TestSwapTransactionFailsWhenStateMissing(t *testing.T) {
	f := newFixture(t)
	delete(f.chain.accounts, f.state.Oracles)

	_, err := f.builder(t).SwapTransaction(context.Background(), solana.NewWallet().PublicKey(), 0, "10")
	require.ErrorIs(t, err, chain.ErrAccountNotFound)
}

func TestLiquidityTransactionInitializesNewUser(t *testing.T) {
	f := newFixture(t)
	user := solana.NewWallet().PublicKey()

	tx, err := f.builder(t).LiquidityTransaction(context.Background(), user, 1, "100")
	require.NoError(t, err)

	payer, instructions := decompile(t, tx)
	assert.Equal(t, user, payer)
	require.Len(t, instructions, 4)

	assert.Equal(t, clone.Instruction_InitializeUser, discriminatorOf(instructions[0]))
	assert.Equal(t, user.Bytes(), instructions[0].Data[8:40])

	assert.Equal(t, clone.Instruction_AddCollateralToComet, discriminatorOf(instructions[1]))
	assert.EqualValues(t, 50_000_000, binary.LittleEndian.Uint64(instructions[1].Data[8:16]))

	update := instructions[2]
	assert.Equal(t, clone.Instruction_UpdatePrices, discriminatorOf(update))
	assert.EqualValues(t, 3, binary.LittleEndian.Uint32(update.Data[8:12]))
	assert.Equal(t, []byte{0, 1, 2}, update.Data[12:])
	require.Len(t, update.Accounts, 1+len(f.oracleFeeds))
	for i, feed := range f.oracleFeeds {
		assert.Equal(t, feed, update.Accounts[i+1].PublicKey)
	}

	addLiquidity := instructions[3]
	assert.Equal(t, clone.Instruction_AddLiquidityToComet, discriminatorOf(addLiquidity))
	assert.EqualValues(t, 1, addLiquidity.Data[8])
	assert.EqualValues(t, 50_000_000, binary.LittleEndian.Uint64(addLiquidity.Data[9:17]))
}

func TestLiquidityTransactionExistingUserTruncatesOddAmount(t *testing.T) {
	f := newFixture(t)
	user := solana.NewWallet().PublicKey()
	userAccount, _, err := clone.DeriveUserPDA(clone.ProgramID, user)
	require.NoError(t, err)
	f.chain.accounts[userAccount] = append(clone.Account_User[:], make([]byte, 64)...)

	tx, err := f.builder(t).LiquidityTransaction(context.Background(), user, 0, "100.000001")
	require.NoError(t, err)

	_, instructions := decompile(t, tx)
	require.Len(t, instructions, 3)
	assert.Equal(t, clone.Instruction_AddCollateralToComet, discriminatorOf(instructions[0]))
	assert.Equal(t, clone.Instruction_UpdatePrices, discriminatorOf(instructions[1]))
	assert.Equal(t, clone.Instruction_AddLiquidityToComet, discriminatorOf(instructions[2]))
	assert.EqualValues(t, 50_000_000, binary.LittleEndian.Uint64(instructions[0].Data[8:16]))
	assert.EqualValues(t, 50_000_000, binary.LittleEndian.Uint64(instructions[2].Data[9:17]))
}

func TestLiquidityTransactionFailsOnTransientProbeError(t *testing.T) {
	f := newFixture(t)
	user := solana.NewWallet().PublicKey()
	userAccount, _, err := clone.DeriveUserPDA(clone.ProgramID, user)
	require.NoError(t, err)
	boom := errors.New("429 too many requests")
	f.chain.failures[userAccount] = boom

	_, err = f.builder(t).LiquidityTransaction(context.Background(), user, 0, "100")
	require.ErrorIs(t, err, boom)
}

func TestLiquidityTransactionRejectsForeignUserAccount(t *testing.T) {
	f := newFixture(t)
	user := solana.NewWallet().PublicKey()
	userAccount, _, err := clone.DeriveUserPDA(clone.ProgramID, user)
	require.NoError(t, err)
	f.chain.accounts[userAccount] = []byte("not a user account")

	_, err = f.builder(t).LiquidityTransaction(context.Background(), user, 0, "100")
	require.ErrorIs(t, err, clone.ErrAccountDiscriminator)
}

func TestLiquidityTransactionRejectsDustAndBadAmounts(t *testing.T) {
	f := newFixture(t)
	user := solana.NewWallet().PublicKey()

	_, err := f.builder(t).LiquidityTransaction(context.Background(), user, 0, "0.000001")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.builder(t).LiquidityTransaction(context.Background(), user, 0, "ten")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseAccount(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	got, err := ParseAccount(" " + key.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ParseAccount("")
	require.ErrorIs(t, err, ErrInvalidAccount)
	_, err = ParseAccount("not-base58-0OIl")
	require.ErrorIs(t, err, ErrInvalidAccount)
}
