package term

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	cases := []Term{
		{},
		{
			From:     common.HexToAddress("0x90f8bf6a479f320ead074411a4b0e7944ea8c9c2"),
			To:       common.HexToAddress("0xffcf8fdee72ac11b5c542428b35eef5769c409f0"),
			Weight:   50,
			Domain:   1,
			Positive: true,
		},
		{
			From:     common.HexToAddress("0x0000000000000000000000000000000000000001"),
			To:       common.HexToAddress("0x0000000000000000000000000000000000000002"),
			Weight:   math.MaxUint32,
			Domain:   math.MaxUint32,
			Positive: false,
		},
		{
			From:   common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff"),
			Weight: 100,
			Domain: 2,
		},
	}

	for _, want := range cases {
		data := want.Marshal()
		require.Len(t, data, EncodedLen)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestUnmarshalRejectsWrongLength(t *testing.T) {
	_, err := Unmarshal(nil)
	require.Error(t, err)

	_, err = Unmarshal(make([]byte, EncodedLen-1))
	require.Error(t, err)

	_, err = Unmarshal(make([]byte, EncodedLen+1))
	require.Error(t, err)
}
