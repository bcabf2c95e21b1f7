package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringCanonicalForm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.000000000"},
		{"1", "1.000000000"},
		{"3.96", "3.960000000"},
		{"0.000000064", "0.000000064"},
		{"-2.5", "-2.500000000"},
	}
	for _, tt := range tests {
		m, err := Parse(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, m.String())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "abc", "1.2.3", "1e", "--1"} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", s)
	}
}

func TestParsePositive(t *testing.T) {
	_, err := ParsePositive("0")
	assert.ErrorIs(t, err, ErrNotPositive)

	_, err = ParsePositive("-1.5")
	assert.ErrorIs(t, err, ErrNotPositive)

	m, err := ParsePositive("0.000000001")
	require.NoError(t, err)
	assert.True(t, m.IsPositive())
}

func TestExactArithmetic(t *testing.T) {
	// The purchase scenario: tiny balances must not drift.
	balance := MustParse("0.000000100")
	cost := MustParse("0.000000064")

	remaining := balance.Sub(cost)
	assert.Equal(t, "0.000000036", remaining.String())

	// Summing a tenth a thousand times is exactly one hundred.
	sum := Zero()
	tenth := MustParse("0.1")
	for i := 0; i < 1000; i++ {
		sum = sum.Add(tenth)
	}
	assert.True(t, sum.Equal(FromInt64(100)))
}

func TestPowInt(t *testing.T) {
	mult := MustParse("1.215")

	assert.True(t, mult.PowInt(0).Equal(FromInt64(1)))
	assert.True(t, mult.PowInt(1).Equal(mult))
	assert.True(t, mult.PowInt(2).Equal(mult.Mul(mult)))
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	out, err := json.Marshal(payload{Amount: MustParse("3.96")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"3.960000000"}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"1.000000000"}`), &in))
	assert.True(t, in.Amount.Equal(FromInt64(1)))

	// Bare numbers are accepted for backward compatibility.
	require.NoError(t, json.Unmarshal([]byte(`{"amount":2.5}`), &in))
	assert.Equal(t, "2.500000000", in.Amount.String())
}

func TestScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("42.500000000"))
	assert.Equal(t, "42.500000000", m.String())

	require.NoError(t, m.Scan([]byte("0.040000000")))
	assert.Equal(t, "0.040000000", m.String())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())
}
