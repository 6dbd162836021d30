package label

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legFixture() ([][]int, []int, map[int]uint64) {
	inputs := [][]int{{0, 1, 3, 2}, {5, 4, 3, 2}, {5, 4, 6, 7}}
	output := []int{6, 7}
	sizes := map[int]uint64{0: 4, 1: 5, 2: 6, 3: 7, 4: 8, 5: 9, 6: 10, 7: 11}
	return inputs, output, sizes
}

func TestNormalizeRendersLegs(t *testing.T) {
	inputs, output, sizes := legFixture()

	res, err := Normalize(inputs, output, sizes)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"0", "1", "3", "2"},
		{"5", "4", "3", "2"},
		{"5", "4", "6", "7"},
	}, res.Network.Inputs)
	assert.Equal(t, []string{"6", "7"}, res.Network.Output)
	assert.Equal(t, map[string]uint64{
		"0": 4, "1": 5, "2": 6, "3": 7,
		"4": 8, "5": 9, "6": 10, "7": 11,
	}, res.Network.Sizes)
	assert.Equal(t, 8, res.Table.Len())
	assert.Equal(t, []int{0, 1, 3, 2, 5, 4, 6, 7}, res.Table.Raws())
}

func TestNormalizeIsDeterministic(t *testing.T) {
	inputs, output, sizes := legFixture()

	first, err := Normalize(inputs, output, sizes)
	require.NoError(t, err)
	second, err := Normalize(inputs, output, sizes)
	require.NoError(t, err)

	assert.Equal(t, first.Network, second.Network)
	assert.Equal(t, first.Table.Raws(), second.Table.Raws())
}

func TestNormalizeSharedIdentifiers(t *testing.T) {
	inputs := [][]string{{"i", "j"}, {"j", "k"}, {"k", "i"}}
	sizes := map[string]uint64{"i": 2, "j": 3, "k": 4}

	res, err := Normalizer[string]{Mint: Symbols[string]}.Normalize(inputs, nil, sizes)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, res.Network.Inputs)
	assert.Empty(t, res.Network.Output)
	assert.Equal(t, map[string]uint64{"a": 2, "b": 3, "c": 4}, res.Network.Sizes)

	l, ok := res.Table.Label("j")
	require.True(t, ok)
	assert.Equal(t, "b", l)

	raw, ok := res.Table.Raw("c")
	require.True(t, ok)
	assert.Equal(t, "k", raw)

	_, ok = res.Table.Label("z")
	assert.False(t, ok)
}

func TestNormalizeInjective(t *testing.T) {
	inputs := [][]int{{10, 20, 30}, {30, 40}, {40, 10, 50}}
	sizes := map[int]uint64{10: 2, 20: 2, 30: 2, 40: 2, 50: 2}

	for _, mint := range []MintFunc[int]{Render[int], Symbols[int]} {
		res, err := Normalizer[int]{Mint: mint}.Normalize(inputs, []int{20, 50}, sizes)
		require.NoError(t, err)

		seen := make(map[string]int)
		for g, group := range inputs {
			for p, raw := range group {
				l := res.Network.Inputs[g][p]
				if prev, ok := seen[l]; ok {
					assert.Equal(t, prev, raw, "label %q shared by %d and %d", l, prev, raw)
				}
				seen[l] = raw
			}
		}
		assert.Len(t, res.Network.Sizes, 5)
	}
}

func TestNormalizeOutputOnlyIdentifier(t *testing.T) {
	res, err := Normalize([][]int{{0, 1}}, []int{1, 9}, map[int]uint64{0: 2, 1: 3, 9: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "9"}, res.Network.Output)
	assert.Equal(t, uint64(4), res.Network.Sizes["9"])
}

func TestNormalizeUnknownIdentifier(t *testing.T) {
	tests := []struct {
		name      string
		inputs    [][]int
		output    []int
		wantGroup int
		wantPos   int
		wantRaw   int
	}{
		{
			name:      "missing in group",
			inputs:    [][]int{{0, 1}, {1, 8}},
			wantGroup: 1,
			wantPos:   1,
			wantRaw:   8,
		},
		{
			name:      "missing in output",
			inputs:    [][]int{{0, 1}},
			output:    []int{0, 8},
			wantGroup: -1,
			wantPos:   1,
			wantRaw:   8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.inputs, tt.output, map[int]uint64{0: 2, 1: 2})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownIdentifier)

			var ue *UnknownIdentifierError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.wantGroup, ue.Group)
			assert.Equal(t, tt.wantPos, ue.Position)
			assert.Equal(t, tt.wantRaw, ue.Raw)
			assert.Contains(t, ue.Error(), "8")
		})
	}
}

func TestNormalizeZeroDimension(t *testing.T) {
	_, err := Normalize([][]int{{0}}, nil, map[int]uint64{0: 0})
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestNormalizeCollision(t *testing.T) {
	constant := func(int, int) string { return "x" }

	_, err := Normalizer[int]{Mint: constant}.Normalize([][]int{{0, 1}}, nil, map[int]uint64{0: 2, 1: 2})
	assert.ErrorIs(t, err, ErrLabelCollision)
}

func TestNormalizeEmptyGroup(t *testing.T) {
	res, err := Normalize([][]int{{}, {0}}, nil, map[int]uint64{0: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{}, {"0"}}, res.Network.Inputs)
}
