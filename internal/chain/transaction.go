package chain

import (
	"context"
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// PrepareTransaction compiles instructions into an unsigned v0 transaction paid by payer.
// Signature slots are present but zeroed so wallets can fill them in place.
func PrepareTransaction(ctx context.Context, source BlockhashSource, instructions []solana.Instruction, payer solana.PublicKey) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("prepare transaction: no instructions")
	}

	blockhash, err := source.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	return CompileTransaction(instructions, blockhash, payer)
}

func CompileTransaction(instructions []solana.Instruction, blockhash solana.Hash, payer solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx, nil
}

func EncodeTransactionBase64(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeTransactionBase64(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

type DecompiledInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
}

// DecompileInstructions recovers the payer and the ordered instruction list from a message
// that uses only static account keys.
func DecompileInstructions(tx *solana.Transaction) (solana.PublicKey, []DecompiledInstruction, error) {
	msg := tx.Message
	keys := msg.AccountKeys
	if len(keys) == 0 {
		return solana.PublicKey{}, nil, fmt.Errorf("decompile: message has no account keys")
	}
	if len(msg.AddressTableLookups) > 0 {
		return solana.PublicKey{}, nil, fmt.Errorf("decompile: address table lookups are not supported")
	}

	metaAt := func(index uint16) (*solana.AccountMeta, error) {
		if int(index) >= len(keys) {
			return nil, fmt.Errorf("decompile: account index %d out of range (keys=%d)", index, len(keys))
		}
		return solana.NewAccountMeta(keys[index], isWritableIndex(msg.Header, len(keys), int(index)), int(index) < int(msg.Header.NumRequiredSignatures)), nil
	}

	out := make([]DecompiledInstruction, 0, len(msg.Instructions))
	for i, compiled := range msg.Instructions {
		if int(compiled.ProgramIDIndex) >= len(keys) {
			return solana.PublicKey{}, nil, fmt.Errorf("decompile: instruction %d program index %d out of range", i, compiled.ProgramIDIndex)
		}
		accounts := make([]*solana.AccountMeta, 0, len(compiled.Accounts))
		for _, index := range compiled.Accounts {
			meta, err := metaAt(index)
			if err != nil {
				return solana.PublicKey{}, nil, err
			}
			accounts = append(accounts, meta)
		}
		out = append(out, DecompiledInstruction{
			ProgramID: keys[compiled.ProgramIDIndex],
			Accounts:  accounts,
			Data:      append([]byte(nil), compiled.Data...),
		})
	}
	return keys[0], out, nil
}

func isWritableIndex(header solana.MessageHeader, keyCount, index int) bool {
	signers := int(header.NumRequiredSignatures)
	if index < signers {
		return index < signers-int(header.NumReadonlySignedAccounts)
	}
	return index < keyCount-int(header.NumReadonlyUnsignedAccounts)
}
