package layout

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
)

// PoolAccountSize is the serialized size of a pool account
const PoolAccountSize = 1 + 6*32 + 2 + 4 + 4 + 8 + 2

// AccountTypePool is the discriminator byte of pool accounts
const AccountTypePool uint8 = 0

// PoolAccount is the fixed-width little-endian pool account
type PoolAccount struct {
	AccountType     uint8
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LpMint          solana.PublicKey
	BaseKey         solana.PublicKey // base vault
	QuoteKey        solana.PublicKey // quote vault
	ShortKey        solana.PublicKey
	Fee             uint16 // bps
	NumDataAccounts uint32
	LastPrice       [4]byte
	LpAmount        uint64
	BorrowCost      uint16 // bps per year
}

// DecodePoolAccount parses raw account data
func DecodePoolAccount(data []byte) (*PoolAccount, error) {
	if len(data) < PoolAccountSize {
		return nil, fmt.Errorf("pool account: need %d bytes, got %d", PoolAccountSize, len(data))
	}
	var acct PoolAccount
	if err := bin.NewBorshDecoder(data).Decode(&acct); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	if acct.AccountType != AccountTypePool {
		return nil, fmt.Errorf("pool account: unexpected account type %d", acct.AccountType)
	}
	return &acct, nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler
func (a *PoolAccount) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.AccountType, err = dec.ReadUint8(); err != nil {
		return fmt.Errorf("account_type: %w", err)
	}
	for _, f := range []struct {
		name string
		dst  *solana.PublicKey
	}{
		{"base_mint", &a.BaseMint},
		{"quote_mint", &a.QuoteMint},
		{"lp_mint", &a.LpMint},
		{"base_key", &a.BaseKey},
		{"quote_key", &a.QuoteKey},
		{"short_key", &a.ShortKey},
	} {
		b, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = solana.PublicKeyFromBytes(b)
	}
	if a.Fee, err = dec.ReadUint16(bin.LE); err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	if a.NumDataAccounts, err = dec.ReadUint32(bin.LE); err != nil {
		return fmt.Errorf("num_data_accounts: %w", err)
	}
	lp, err := dec.ReadNBytes(4)
	if err != nil {
		return fmt.Errorf("last_price: %w", err)
	}
	copy(a.LastPrice[:], lp)
	if a.LpAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return fmt.Errorf("lp_amount: %w", err)
	}
	if a.BorrowCost, err = dec.ReadUint16(bin.LE); err != nil {
		return fmt.Errorf("borrow_cost: %w", err)
	}
	return nil
}

// MarshalWithEncoder implements bin.BinaryMarshaler
func (a PoolAccount) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(a.AccountType); err != nil {
		return err
	}
	for _, k := range []solana.PublicKey{a.BaseMint, a.QuoteMint, a.LpMint, a.BaseKey, a.QuoteKey, a.ShortKey} {
		if err := enc.WriteBytes(k.Bytes(), false); err != nil {
			return err
		}
	}
	if err := enc.WriteUint16(a.Fee, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint32(a.NumDataAccounts, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBytes(a.LastPrice[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.LpAmount, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint16(a.BorrowCost, bin.LE)
}

// MarshalBinary serializes the account in its on-chain layout
func (a PoolAccount) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.MarshalWithEncoder(bin.NewBorshEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LastPriceFloat reads last_price as a little-endian f32
func (a PoolAccount) LastPriceFloat() float32 {
	bits := uint32(a.LastPrice[0]) | uint32(a.LastPrice[1])<<8 | uint32(a.LastPrice[2])<<16 | uint32(a.LastPrice[3])<<24
	return math.Float32frombits(bits)
}

// PoolState combines the account's fee fields with vault balances
func (a PoolAccount) PoolState(baseReserve, quoteReserve uint64) amm.PoolState {
	return amm.PoolState{
		BaseReserve:         baseReserve,
		QuoteReserve:        quoteReserve,
		FeeBps:              a.Fee,
		BorrowFeeBpsPerYear: a.BorrowCost,
	}
}

// DecodeAccountData decodes the [data, encoding] pair returned by getAccountInfo
func DecodeAccountData(data, encoding string) ([]byte, error) {
	switch encoding {
	case "base64":
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("decode base64 account data: %w", err)
		}
		return b, nil
	case "base58", "":
		b, err := base58.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode base58 account data: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported account data encoding %q", encoding)
}
