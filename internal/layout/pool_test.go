package layout

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPoolAccount() []byte {
	data := make([]byte, PoolAccountSize)
	data[0] = AccountTypePool
	for i := 0; i < 6; i++ {
		// key i is filled with byte i+1
		for j := 0; j < 32; j++ {
			data[1+i*32+j] = byte(i + 1)
		}
	}
	off := 1 + 6*32
	binary.LittleEndian.PutUint16(data[off:], 30)
	binary.LittleEndian.PutUint32(data[off+2:], 3)
	binary.LittleEndian.PutUint32(data[off+6:], math.Float32bits(1.25))
	binary.LittleEndian.PutUint64(data[off+10:], 700_000)
	binary.LittleEndian.PutUint16(data[off+18:], 450)
	return data
}

func TestPoolAccountSize(t *testing.T) {
	assert.Equal(t, 213, PoolAccountSize)
}

func TestDecodePoolAccount(t *testing.T) {
	acct, err := DecodePoolAccount(rawPoolAccount())
	require.NoError(t, err)

	assert.Equal(t, AccountTypePool, acct.AccountType)
	assert.Equal(t, byte(1), acct.BaseMint[0])
	assert.Equal(t, byte(4), acct.BaseKey[31])
	assert.Equal(t, byte(6), acct.ShortKey[0])
	assert.Equal(t, uint16(30), acct.Fee)
	assert.Equal(t, uint32(3), acct.NumDataAccounts)
	assert.Equal(t, float32(1.25), acct.LastPriceFloat())
	assert.Equal(t, uint64(700_000), acct.LpAmount)
	assert.Equal(t, uint16(450), acct.BorrowCost)

	state := acct.PoolState(1_000, 2_000)
	assert.Equal(t, uint64(1_000), state.BaseReserve)
	assert.Equal(t, uint64(2_000), state.QuoteReserve)
	assert.Equal(t, uint16(30), state.FeeBps)
	assert.Equal(t, uint16(450), state.BorrowFeeBpsPerYear)
}

func TestPoolAccount_MarshalBinaryMatchesLayout(t *testing.T) {
	raw := rawPoolAccount()
	acct, err := DecodePoolAccount(raw)
	require.NoError(t, err)

	out, err := acct.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestDecodePoolAccount_Errors(t *testing.T) {
	_, err := DecodePoolAccount(rawPoolAccount()[:PoolAccountSize-1])
	assert.Error(t, err)

	raw := rawPoolAccount()
	raw[0] = 7
	_, err = DecodePoolAccount(raw)
	assert.ErrorContains(t, err, "unexpected account type")
}

func TestDecodeAccountData(t *testing.T) {
	raw := rawPoolAccount()

	b, err := DecodeAccountData(base64.StdEncoding.EncodeToString(raw), "base64")
	require.NoError(t, err)
	assert.Equal(t, raw, b)

	b, err = DecodeAccountData(base58.Encode(raw), "base58")
	require.NoError(t, err)
	assert.Equal(t, raw, b)

	_, err = DecodeAccountData("zz", "jsonParsed")
	assert.Error(t, err)

	_, err = DecodeAccountData("not base64!", "base64")
	assert.Error(t, err)
}

func TestDecodePoolAccount_KeysAreValidPubkeys(t *testing.T) {
	acct, err := DecodePoolAccount(rawPoolAccount())
	require.NoError(t, err)

	pk, err := solana.PublicKeyFromBase58(acct.QuoteKey.String())
	require.NoError(t, err)
	assert.True(t, pk.Equals(acct.QuoteKey))
}
