package clone

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

func DeriveClonePDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("clone")}, programID)
}

func DerivePoolsPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("pools")}, programID)
}

func DeriveOraclesPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("oracles")}, programID)
}

func DeriveUserPDA(programID solana.PublicKey, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("user"), authority.Bytes()}, programID)
}

// StateAddresses are the three program-wide accounts every action reads.
type StateAddresses struct {
	Clone   solana.PublicKey
	Pools   solana.PublicKey
	Oracles solana.PublicKey
}

func DeriveStateAddresses(programID solana.PublicKey) (StateAddresses, error) {
	cloneKey, _, err := DeriveClonePDA(programID)
	if err != nil {
		return StateAddresses{}, fmt.Errorf("derive clone PDA: %w", err)
	}
	poolsKey, _, err := DerivePoolsPDA(programID)
	if err != nil {
		return StateAddresses{}, fmt.Errorf("derive pools PDA: %w", err)
	}
	oraclesKey, _, err := DeriveOraclesPDA(programID)
	if err != nil {
		return StateAddresses{}, fmt.Errorf("derive oracles PDA: %w", err)
	}
	return StateAddresses{Clone: cloneKey, Pools: poolsKey, Oracles: oraclesKey}, nil
}

// AssociatedTokenAddress accepts off-curve owners (the treasury may be a PDA).
func AssociatedTokenAddress(owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address for owner %s mint %s: %w", owner, mint, err)
	}
	return ata, nil
}
