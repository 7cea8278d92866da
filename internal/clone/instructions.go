package clone

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type SwapInstructionArgs struct {
	PoolIndex            uint8
	Quantity             uint64
	QuantityIsInput      bool
	QuantityIsCollateral bool
	ResultThreshold      uint64
}

type SwapInstructionAccounts struct {
	User                           solana.PublicKey
	Clone                          solana.PublicKey
	Pools                          solana.PublicKey
	Oracles                        solana.PublicKey
	UserCollateralTokenAccount     solana.PublicKey
	UserOnassetTokenAccount        solana.PublicKey
	OnassetMint                    solana.PublicKey
	CollateralMint                 solana.PublicKey
	CollateralVault                solana.PublicKey
	TreasuryOnassetTokenAccount    solana.PublicKey
	TreasuryCollateralTokenAccount solana.PublicKey
	// Price feeds the program reads through remaining accounts: collateral oracle first, then the pool's.
	RemainingAccounts []solana.PublicKey
}

func NewSwapInstruction(args SwapInstructionArgs, accounts SwapInstructionAccounts) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_Swap, func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(args.PoolIndex); err != nil {
			return err
		}
		if err := enc.WriteUint64(args.Quantity, binary.LittleEndian); err != nil {
			return err
		}
		if err := enc.WriteBool(args.QuantityIsInput); err != nil {
			return err
		}
		if err := enc.WriteBool(args.QuantityIsCollateral); err != nil {
			return err
		}
		return enc.WriteUint64(args.ResultThreshold, binary.LittleEndian)
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.User, false, true),
		solana.NewAccountMeta(accounts.Clone, false, false),
		solana.NewAccountMeta(accounts.Pools, true, false),
		solana.NewAccountMeta(accounts.Oracles, false, false),
		solana.NewAccountMeta(accounts.UserCollateralTokenAccount, true, false),
		solana.NewAccountMeta(accounts.UserOnassetTokenAccount, true, false),
		solana.NewAccountMeta(accounts.OnassetMint, true, false),
		solana.NewAccountMeta(accounts.CollateralMint, false, false),
		solana.NewAccountMeta(accounts.CollateralVault, true, false),
		solana.NewAccountMeta(accounts.TreasuryOnassetTokenAccount, true, false),
		solana.NewAccountMeta(accounts.TreasuryCollateralTokenAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	metas = appendReadonly(metas, accounts.RemainingAccounts)

	return solana.NewInstruction(ProgramID, metas, data), nil
}

type InitializeUserInstructionAccounts struct {
	Payer       solana.PublicKey
	UserAccount solana.PublicKey
}

func NewInitializeUserInstruction(authority solana.PublicKey, accounts InitializeUserInstructionAccounts) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_InitializeUser, func(enc *bin.Encoder) error {
		return enc.WriteBytes(authority.Bytes(), false)
	})
	if err != nil {
		return nil, fmt.Errorf("encode initialize_user args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Payer, true, true),
		solana.NewAccountMeta(accounts.UserAccount, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, metas, data), nil
}

type AddCollateralToCometInstructionAccounts struct {
	User                       solana.PublicKey
	UserAccount                solana.PublicKey
	Clone                      solana.PublicKey
	Vault                      solana.PublicKey
	UserCollateralTokenAccount solana.PublicKey
}

func NewAddCollateralToCometInstruction(collateralAmount uint64, accounts AddCollateralToCometInstructionAccounts) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_AddCollateralToComet, func(enc *bin.Encoder) error {
		return enc.WriteUint64(collateralAmount, binary.LittleEndian)
	})
	if err != nil {
		return nil, fmt.Errorf("encode add_collateral_to_comet args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.User, false, true),
		solana.NewAccountMeta(accounts.UserAccount, true, false),
		solana.NewAccountMeta(accounts.Clone, true, false),
		solana.NewAccountMeta(accounts.Vault, true, false),
		solana.NewAccountMeta(accounts.UserCollateralTokenAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, metas, data), nil
}

// NewUpdatePricesInstruction refreshes the oracles at oracleIndices; feeds must line up with the indices.
func NewUpdatePricesInstruction(oracles solana.PublicKey, oracleIndices []uint8, feeds []solana.PublicKey) (solana.Instruction, error) {
	if len(oracleIndices) != len(feeds) {
		return nil, fmt.Errorf("update_prices: %d indices but %d price feeds", len(oracleIndices), len(feeds))
	}

	data, err := encodeInstructionData(Instruction_UpdatePrices, func(enc *bin.Encoder) error {
		if err := enc.WriteUint32(uint32(len(oracleIndices)), binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteBytes(oracleIndices, false)
	})
	if err != nil {
		return nil, fmt.Errorf("encode update_prices args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(oracles, true, false),
	}
	metas = appendReadonly(metas, feeds)
	return solana.NewInstruction(ProgramID, metas, data), nil
}

type AddLiquidityToCometInstructionAccounts struct {
	User        solana.PublicKey
	UserAccount solana.PublicKey
	Clone       solana.PublicKey
	Pools       solana.PublicKey
	Oracles     solana.PublicKey
}

func NewAddLiquidityToCometInstruction(poolIndex uint8, collateralAmount uint64, accounts AddLiquidityToCometInstructionAccounts) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_AddLiquidityToComet, func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(poolIndex); err != nil {
			return err
		}
		return enc.WriteUint64(collateralAmount, binary.LittleEndian)
	})
	if err != nil {
		return nil, fmt.Errorf("encode add_liquidity_to_comet args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.User, false, true),
		solana.NewAccountMeta(accounts.UserAccount, true, false),
		solana.NewAccountMeta(accounts.Clone, true, false),
		solana.NewAccountMeta(accounts.Pools, true, false),
		solana.NewAccountMeta(accounts.Oracles, false, false),
	}
	return solana.NewInstruction(ProgramID, metas, data), nil
}

// NewCreateIdempotentATAInstruction creates owner's associated token account for mint unless it exists.
func NewCreateIdempotentATAInstruction(payer, associatedAccount, owner, mint solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(associatedAccount, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	// 0 = Create, 1 = CreateIdempotent
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, []byte{1})
}

// AllOracleIndices lists 0..count-1 as on-chain u8 indices.
func AllOracleIndices(count int) ([]uint8, error) {
	if count < 0 || count > math.MaxUint8+1 {
		return nil, fmt.Errorf("%w: oracle count %d does not fit u8 indices", ErrIndexOutOfRange, count)
	}
	out := make([]uint8, count)
	for i := range out {
		out[i] = uint8(i)
	}
	return out, nil
}

func encodeInstructionData(discriminator [8]byte, writeArgs func(*bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	if err := writeArgs(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendReadonly(metas solana.AccountMetaSlice, keys []solana.PublicKey) solana.AccountMetaSlice {
	for _, key := range keys {
		metas = append(metas, solana.NewAccountMeta(key, false, false))
	}
	return metas
}
