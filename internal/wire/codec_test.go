package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := []*Payload{
		{
			Opcode:   NamePreorder,
			Preorder: &PreorderBody{PreorderHash: [20]byte{1, 2, 3}, ConsensusHash: [16]byte{4, 5, 6}},
		},
		{
			Opcode: NameRegistration,
			Name:   &NameBody{Name: "alice.test"},
		},
		{
			Opcode: NameUpdate,
			Update: &UpdateBody{NameHash128: [16]byte{9}, UpdateHash: [20]byte{8}},
		},
		{
			Opcode: NameTransfer,
			Transfer: &TransferBody{
				Disposition:   TransferRemoveData,
				NameHash128:   [16]byte{1},
				ConsensusHash: [16]byte{2},
			},
		},
		{
			Opcode: NameRevoke,
			Name:   &NameBody{Name: "bob.test"},
		},
		{
			Opcode: NameImport,
			Name:   &NameBody{Name: "carol.test"},
		},
		{
			Opcode:   NamespacePreorder,
			Preorder: &PreorderBody{PreorderHash: [20]byte{7}, ConsensusHash: [16]byte{8}},
		},
		{
			Opcode: NamespaceReveal,
			NamespaceReveal: &NamespaceRevealBody{
				Lifetime:         52596,
				Coeff:            4,
				Base:             4,
				Buckets:          [16]uint8{6, 5, 4, 3, 3, 3, 3, 2, 2, 2, 1, 1, 1, 1, 1, 1},
				NonalphaDiscount: 10,
				NoVowelDiscount:  10,
				Version:          1,
				NamespaceID:      "test",
			},
		},
		{
			Opcode:         NamespaceReady,
			NamespaceReady: &NamespaceReadyBody{NamespaceID: "test"},
		},
		{
			Opcode:   Announce,
			Announce: &AnnounceBody{MessageHash: [20]byte{1, 2, 3}},
		},
	}

	for _, want := range cases {
		want.Magic = MagicMainset // Serialize(false) writes the mainset tag
		t.Run(want.Opcode.String(), func(t *testing.T) {
			raw, err := want.Serialize(false)
			require.NoError(t, err)
			require.LessOrEqual(t, len(raw), MaxPayloadLength)

			got, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, MagicMainset, got.Magic)
			assert.Equal(t, want.Opcode, got.Opcode)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte{'x', 'y', byte(NameRevoke), 'a'})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	_, err := Parse(append([]byte{'i', 'd', '@'}, []byte("a")...))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseRejectsNonBase40Name(t *testing.T) {
	_, err := Parse(append([]byte{'i', 'd', byte(NameRegistration)}, []byte("Alice!")...))
	require.Error(t, err)
}

func TestNameLengthBoundaries(t *testing.T) {
	one := strings.Repeat("a", 1)
	thirtySeven := strings.Repeat("a", 37)
	thirtyEight := strings.Repeat("a", 38)

	for _, name := range []string{one, thirtySeven} {
		p := &Payload{Opcode: NameRegistration, Name: &NameBody{Name: name}}
		raw, err := p.Serialize(false)
		require.NoError(t, err)
		_, err = Parse(raw)
		require.NoError(t, err)
	}

	tooLong := &Payload{Opcode: NameRegistration, Name: &NameBody{Name: thirtyEight}}
	_, err := tooLong.Serialize(false)
	require.Error(t, err)

	emptyRaw := []byte{'i', 'd', byte(NameRegistration)}
	_, err = Parse(emptyRaw)
	require.Error(t, err)
}

func TestTestsetMagic(t *testing.T) {
	p := &Payload{Opcode: Announce, Announce: &AnnounceBody{MessageHash: [20]byte{1}}}
	raw, err := p.Serialize(true)
	require.NoError(t, err)
	assert.Equal(t, byte('e'), raw[0])
	assert.Equal(t, byte('g'), raw[1])

	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, MagicTestset, got.Magic)
}
