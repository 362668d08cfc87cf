package ipv4

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1.2.3.4", "1.2.3.4"},
		{"0.0.0.0", "0.0.0.0"},
		{"255.255.255.255", "255.255.255.255"},
		{"8.8.8.8", "8.8.8.8"},
		{"  192.168.1.10\n", "192.168.1.10"},
		{"\t10.0.0.1 ", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			addr, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, addr.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"1.2.3",
		"1.2.3.4.5",
		"1.2.3.256",
		"1.2.3.-1",
		"1..3.4",
		"a.b.c.d",
		"1.2.3.4a",
		"01.2.3.4",
		"1.2.3.0004",
		"1000.2.3.4",
		"255.255.255.2555",
		"+1.2.3.4",
		"1.2.3.4/24",
		"::1",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestParse_TooLong(t *testing.T) {
	_, err := Parse("123.123.123.1234")
	require.ErrorIs(t, err, ErrInvalidAddress)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestParse_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 2000; i++ {
		addr := FromUint32(rng.Uint32())
		s := addr.String()

		parsed, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, addr, parsed)
		assert.Equal(t, s, parsed.String())
	}
}

func TestReverse(t *testing.T) {
	addr := MustParse("1.2.3.4")
	assert.Equal(t, [4]int{4, 3, 2, 1}, addr.Reverse())
	assert.Equal(t, [4]int{1, 2, 3, 4}, addr.Octets())
}

func TestQueryName(t *testing.T) {
	addr := MustParse("1.2.3.4")

	assert.Equal(t, "4.3.2.1.zen.spamhaus.org", QueryName(addr, ".zen.spamhaus.org"))
	assert.Equal(t, "4.3.2.1.zen.spamhaus.org", QueryName(addr, "zen.spamhaus.org"))
	assert.Equal(t, "4.3.2.1.cbl.abuseat.org", QueryName(addr, ".cbl.abuseat.org"))
	assert.Equal(t, "8.8.8.8.origin.asn.cymru.com", QueryName(MustParse("8.8.8.8"), "origin.asn.cymru.com"))
}

func TestUint32Conversion(t *testing.T) {
	tests := []struct {
		addr string
		n    uint32
	}{
		{"0.0.0.0", 0},
		{"0.0.0.1", 1},
		{"1.2.3.4", 16909060},
		{"8.8.8.8", 134744072},
		{"255.255.255.255", 4294967295},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.n, ToUint32(MustParse(tt.addr)))
			assert.Equal(t, tt.addr, FromUint32(tt.n).String())
		})
	}
}
