package path

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		n        int
		enc      Encoding
		wantStep int
		wantErr  bool
	}{
		{name: "valid assign", path: Path{{0, 3}, {4, 1}, {2, 5}}, n: 4, enc: Assign},
		{name: "valid slot-reuse", path: Path{{0, 3}, {0, 1}, {2, 0}}, n: 4, enc: SlotReuse},
		{name: "single leaf", path: Path{}, n: 1, enc: Assign},
		{name: "zero leaves", path: Path{}, n: 0, enc: Assign, wantErr: true, wantStep: -1},
		{name: "too short", path: Path{{0, 1}}, n: 3, enc: Assign, wantErr: true, wantStep: -1},
		{name: "too long", path: Path{{0, 1}, {2, 3}}, n: 2, enc: SlotReuse, wantErr: true, wantStep: -1},
		{name: "assign self merge", path: Path{{0, 0}, {4, 1}, {2, 5}}, n: 4, enc: Assign, wantErr: true, wantStep: 0},
		{name: "assign forward reference", path: Path{{0, 4}, {4, 1}, {2, 5}}, n: 4, enc: Assign, wantErr: true, wantStep: 0},
		{name: "assign negative id", path: Path{{-1, 3}, {4, 1}, {2, 5}}, n: 4, enc: Assign, wantErr: true, wantStep: 0},
		{name: "assign double consume", path: Path{{0, 3}, {0, 1}, {2, 5}}, n: 4, enc: Assign, wantErr: true, wantStep: 1},
		{name: "assign consumes result twice", path: Path{{0, 3}, {4, 1}, {4, 5}}, n: 4, enc: Assign, wantErr: true, wantStep: 2},
		{name: "slot self merge", path: Path{{0, 3}, {1, 1}, {2, 0}}, n: 4, enc: SlotReuse, wantErr: true, wantStep: 1},
		{name: "slot out of range", path: Path{{0, 4}, {0, 1}, {2, 0}}, n: 4, enc: SlotReuse, wantErr: true, wantStep: 0},
		{name: "slot retired reuse", path: Path{{0, 3}, {3, 1}, {2, 0}}, n: 4, enc: SlotReuse, wantErr: true, wantStep: 1},
		{name: "assign path read as slot-reuse", path: Path{{0, 3}, {4, 1}, {2, 5}}, n: 4, enc: SlotReuse, wantErr: true, wantStep: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.path, tt.n, tt.enc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var me *MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.wantStep, me.Step)
			assert.Equal(t, tt.enc, me.Encoding)
			assert.NotEmpty(t, me.Reason)
		})
	}
}

func TestMalformedErrorMessage(t *testing.T) {
	err := &MalformedError{Encoding: Assign, Step: 2, Left: 4, Right: 5, Reason: "identifier 4 was already consumed"}
	assert.Equal(t, "malformed assign path: step 2 (4, 5): identifier 4 was already consumed", err.Error())

	whole := &MalformedError{Encoding: SlotReuse, Step: -1, Reason: "expected 3 steps for 4 leaves, got 1"}
	assert.Equal(t, "malformed slot-reuse path: expected 3 steps for 4 leaves, got 1", whole.Error())
}

func TestValidateUnknownEncoding(t *testing.T) {
	err := Validate(Path{{0, 1}}, 2, Encoding(9))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
}
