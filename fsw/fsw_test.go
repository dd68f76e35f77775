package fsw

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFSW = "AS10020S10028S22b04S22b00S22b04S22b10S22b14S22b10S2fb00" +
	"M561x534S10028472x500S10020516x469S22b00530x502S22b04515x504" +
	"S22b04545x504S22b14456x467S22b10472x467S22b10440x467S2fb00493x480"

func TestFSW_Parse(t *testing.T) {
	sign, err := Parse(sampleFSW)
	require.NoError(t, err)

	assert.Equal(t, byte('M'), sign.Lane)
	assert.Equal(t, Point{X: 561, Y: 534}, sign.Box)
	require.Len(t, sign.Symbols, 9)
	assert.Equal(t, Symbol{Key: "10028", Point: Point{X: 472, Y: 500}}, sign.Symbols[0])
	assert.Equal(t, Symbol{Key: "2fb00", Point: Point{X: 493, Y: 480}}, sign.Symbols[8])
	assert.Equal(t, Point{X: 440, Y: 467}, sign.Min())
}

func TestFSW_ParseSingleSymbol(t *testing.T) {
	sign, err := Parse("M561x534S10028472x500")
	require.NoError(t, err)
	assert.Equal(t, "M561x534S10028472x500", sign.String())
}

func TestFSW_ParseInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"561x534",
		"M561x534S1002",
		"M561x534S60028472x500",
		"M561x534S10068472x500",
		"M561x534 trailing",
	} {
		_, err := Parse(s)
		assert.Truef(t, errors.Is(err, ErrInvalidFSW), "expected ErrInvalidFSW for %q, got %v", s, err)
	}
}

func TestFSW_StringKeepsSymbolOrder(t *testing.T) {
	sign := Sign{
		Box: Point{X: 600, Y: 550},
		Symbols: []Symbol{
			{Key: "2fb00", Point: Point{X: 510, Y: 520}},
			{Key: "10028", Point: Point{X: 500, Y: 500}},
		},
	}
	assert.Equal(t, "M600x550S2fb00510x520S10028500x500", sign.String())
}

func TestFSW_EmptySignMin(t *testing.T) {
	sign, err := Parse("M518x518")
	require.NoError(t, err)
	assert.Empty(t, sign.Symbols)
	assert.Equal(t, sign.Box, sign.Min())
}

func TestFSW_SymbolID(t *testing.T) {
	testCases := []struct {
		key  string
		want int
	}{
		{key: "10000", want: 1},
		{key: "S10000", want: 1},
		{key: "10028", want: 2*16 + 8 + 1},
		{key: "10100", want: 96 + 1},
		{key: "2fb00", want: (0x2fb-0x100)*96 + 1},
		{key: "38b07", want: (0x38b-0x100)*96 + 7 + 1},
	}
	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			id, err := SymbolID(tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}

	_, err := SymbolID("abc123")
	assert.ErrorIs(t, err, ErrInvalidFSW)
	_, err = SymbolID("10060")
	assert.ErrorIs(t, err, ErrInvalidFSW)
}
