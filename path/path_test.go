package path

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathJSON(t *testing.T) {
	p := Path{{0, 3}, {4, 1}, {2, 5}}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,3],[4,1],[2,5]]`, string(data))

	var decoded Path
	require.NoError(t, json.Unmarshal([]byte(`[[0, 3], [4, 1], [2, 5]]`), &decoded))
	assert.Equal(t, p, decoded)
}

func TestStepUnmarshalRejectsWrongArity(t *testing.T) {
	var p Path
	assert.Error(t, json.Unmarshal([]byte(`[[0, 1, 2]]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[[0]]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[{"left": 0}]`), &p))
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "[(0, 3), (0, 1), (2, 0)]", Path{{0, 3}, {0, 1}, {2, 0}}.String())
	assert.Equal(t, "[]", Path{}.String())
}

func TestPairs(t *testing.T) {
	pairs := [][2]int{{0, 3}, {4, 1}}
	p := FromPairs(pairs)
	assert.Equal(t, Path{{0, 3}, {4, 1}}, p)
	assert.Equal(t, pairs, p.Pairs())
}

func TestClone(t *testing.T) {
	assert.Nil(t, Path(nil).Clone())

	p := Path{{0, 1}}
	c := p.Clone()
	c[0].Right = 5
	assert.Equal(t, 1, p[0].Right)
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{in: "assign", want: Assign},
		{in: "SSA", want: Assign},
		{in: "slot-reuse", want: SlotReuse},
		{in: "replace", want: SlotReuse},
		{in: " slot ", want: SlotReuse},
		{in: "tree", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodingString(t *testing.T) {
	assert.Equal(t, "assign", Assign.String())
	assert.Equal(t, "slot-reuse", SlotReuse.String())
	assert.Equal(t, "encoding(5)", Encoding(5).String())
}
