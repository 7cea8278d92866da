// Package clone holds the account layouts, PDA seeds and instruction encoders of the Clone
// program that the action builders need. It mirrors what an anchor-go generated binding
// exposes and carries no program semantics of its own.
package clone

import (
	"crypto/sha256"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is overwritten from config at startup, the same way generated bindings expose it.
var ProgramID = solana.MustPublicKeyFromBase58("C1onEW2kPetmHmwe74YC1ESx3LnFEpVau6g2pg4fHycr")

var (
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrAccountDiscriminator = errors.New("account discriminator mismatch")
)

var (
	Account_Clone   = anchorAccountDiscriminator("Clone")
	Account_Pools   = anchorAccountDiscriminator("Pools")
	Account_Oracles = anchorAccountDiscriminator("Oracles")
	Account_User    = anchorAccountDiscriminator("User")

	Instruction_Swap                 = anchorInstructionDiscriminator("swap")
	Instruction_InitializeUser       = anchorInstructionDiscriminator("initialize_user")
	Instruction_AddCollateralToComet = anchorInstructionDiscriminator("add_collateral_to_comet")
	Instruction_UpdatePrices         = anchorInstructionDiscriminator("update_prices")
	Instruction_AddLiquidityToComet  = anchorInstructionDiscriminator("add_liquidity_to_comet")
)

func anchorInstructionDiscriminator(ixName string) [8]byte {
	hash := sha256.Sum256([]byte("global:" + ixName))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

func anchorAccountDiscriminator(accountName string) [8]byte {
	hash := sha256.Sum256([]byte("account:" + accountName))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}
