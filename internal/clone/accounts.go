package clone

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type Collateral struct {
	OracleInfoIndex        uint8
	Mint                   solana.PublicKey
	Vault                  solana.PublicKey
	CollateralizationRatio uint8
	Scale                  uint8
}

type Clone struct {
	Admin                              solana.PublicKey
	AuthorityBump                      uint8
	CometCollateralIldLiquidatorFeeBps uint16
	CometOnassetIldLiquidatorFeeBps    uint16
	BorrowLiquidatorFeeBps             uint16
	TreasuryAddress                    solana.PublicKey
	Collateral                         Collateral
	NonAuthLiquidationsEnabled         bool
}

type AssetInfo struct {
	OnassetMint                       solana.PublicKey
	OracleInfoIndex                   uint8
	MinOvercollateralRatio            uint16
	MaxLiquidationOvercollateralRatio uint16
	IlHealthScoreCoefficient          uint16
	PositionHealthScoreCoefficient    uint16
}

type Pool struct {
	UnderlyingAssetTokenAccount  solana.PublicKey
	CommittedCollateralLiquidity uint64
	CollateralIld                int64
	OnassetIld                   int64
	TreasuryTradingFeeBps        uint16
	LiquidityTradingFeeBps       uint16
	AssetInfo                    AssetInfo
	Status                       uint8
}

type Pools struct {
	Pools []Pool
}

type OracleInfo struct {
	Source         uint8
	Address        solana.PublicKey
	Price          int64
	Expo           uint8
	Status         uint8
	LastUpdateSlot uint64
	RescaleFactor  uint8
}

type Oracles struct {
	Oracles []OracleInfo
}

func (p *Pools) Pool(index int) (*Pool, error) {
	if index < 0 || index >= len(p.Pools) {
		return nil, fmt.Errorf("%w: pool index %d (pools=%d)", ErrIndexOutOfRange, index, len(p.Pools))
	}
	return &p.Pools[index], nil
}

func (o *Oracles) Oracle(index int) (*OracleInfo, error) {
	if index < 0 || index >= len(o.Oracles) {
		return nil, fmt.Errorf("%w: oracle index %d (oracles=%d)", ErrIndexOutOfRange, index, len(o.Oracles))
	}
	return &o.Oracles[index], nil
}

func ParseAccount_Clone(data []byte) (*Clone, error) {
	out := new(Clone)
	if err := decodeAccount(data, Account_Clone, "Clone", out); err != nil {
		return nil, err
	}
	return out, nil
}

func ParseAccount_Pools(data []byte) (*Pools, error) {
	out := new(Pools)
	if err := decodeAccount(data, Account_Pools, "Pools", out); err != nil {
		return nil, err
	}
	return out, nil
}

func ParseAccount_Oracles(data []byte) (*Oracles, error) {
	out := new(Oracles)
	if err := decodeAccount(data, Account_Oracles, "Oracles", out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAccount_User only validates ownership by discriminator; the builders never read user fields.
func CheckAccount_User(data []byte) error {
	return checkDiscriminator(data, Account_User, "User")
}

// MarshalAccount is the inverse of the ParseAccount_* helpers.
func MarshalAccount(discriminator [8]byte, account any) ([]byte, error) {
	body, err := bin.MarshalBorsh(account)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	out := make([]byte, 0, len(discriminator)+len(body))
	out = append(out, discriminator[:]...)
	return append(out, body...), nil
}

func decodeAccount(data []byte, discriminator [8]byte, name string, into any) error {
	if err := checkDiscriminator(data, discriminator, name); err != nil {
		return err
	}
	if err := bin.NewBorshDecoder(data[len(discriminator):]).Decode(into); err != nil {
		return fmt.Errorf("decode %s account: %w", name, err)
	}
	return nil
}

func checkDiscriminator(data []byte, discriminator [8]byte, name string) error {
	if len(data) < len(discriminator) {
		return fmt.Errorf("%w: %s payload too short (%d bytes)", ErrAccountDiscriminator, name, len(data))
	}
	if !bytes.Equal(data[:len(discriminator)], discriminator[:]) {
		return fmt.Errorf("%w: expected %s", ErrAccountDiscriminator, name)
	}
	return nil
}
