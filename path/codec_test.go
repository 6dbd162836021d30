package path

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSlotReuse(t *testing.T) {
	tests := []struct {
		name string
		in   Path
		n    int
		want Path
	}{
		{
			name: "four leaves",
			in:   Path{{0, 3}, {4, 1}, {2, 5}},
			n:    4,
			want: Path{{0, 3}, {0, 1}, {2, 0}},
		},
		{
			name: "single leaf",
			in:   Path{},
			n:    1,
			want: Path{},
		},
		{
			name: "two leaves",
			in:   Path{{1, 0}},
			n:    2,
			want: Path{{1, 0}},
		},
		{
			name: "linear chain",
			in:   Path{{0, 1}, {6, 2}, {7, 3}, {8, 4}, {9, 5}},
			n:    6,
			want: Path{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}},
		},
		{
			name: "balanced tree",
			in:   Path{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}, {10, 11}, {12, 13}},
			n:    8,
			want: Path{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {0, 2}, {4, 6}, {0, 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSlotReuse(tt.in, tt.n)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ToSlotReuse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToAssign(t *testing.T) {
	tests := []struct {
		name string
		in   Path
		n    int
		want Path
	}{
		{
			name: "four leaves",
			in:   Path{{0, 3}, {0, 1}, {2, 0}},
			n:    4,
			want: Path{{0, 3}, {4, 1}, {2, 5}},
		},
		{
			name: "right operand is an intermediate",
			in:   Path{{4, 5}, {1, 4}, {3, 1}, {0, 2}, {3, 0}},
			n:    6,
			want: Path{{4, 5}, {1, 6}, {3, 7}, {0, 2}, {8, 9}},
		},
		{
			name: "balanced tree",
			in:   Path{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {0, 2}, {4, 6}, {0, 4}},
			n:    8,
			want: Path{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}, {10, 11}, {12, 13}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToAssign(tt.in, tt.n)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ToAssign() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertDoesNotMutateInput(t *testing.T) {
	in := Path{{0, 3}, {4, 1}, {2, 5}}
	orig := in.Clone()

	_, err := ToSlotReuse(in, 4)
	require.NoError(t, err)
	assert.Equal(t, orig, in)

	replace := Path{{0, 3}, {0, 1}, {2, 0}}
	origReplace := replace.Clone()
	_, err = ToAssign(replace, 4)
	require.NoError(t, err)
	assert.Equal(t, origReplace, replace)
}

func TestConvert(t *testing.T) {
	ssa := Path{{0, 3}, {4, 1}, {2, 5}}
	replace := Path{{0, 3}, {0, 1}, {2, 0}}

	t.Run("assign to slot-reuse", func(t *testing.T) {
		got, err := Convert(ssa, 4, Assign, SlotReuse)
		require.NoError(t, err)
		assert.Equal(t, replace, got)
	})

	t.Run("slot-reuse to assign", func(t *testing.T) {
		got, err := Convert(replace, 4, SlotReuse, Assign)
		require.NoError(t, err)
		assert.Equal(t, ssa, got)
	})

	t.Run("same encoding copies", func(t *testing.T) {
		got, err := Convert(ssa, 4, Assign, Assign)
		require.NoError(t, err)
		assert.Equal(t, ssa, got)
		got[0].Left = 99
		assert.Equal(t, 0, ssa[0].Left)
	})

	t.Run("same encoding still validates", func(t *testing.T) {
		_, err := Convert(Path{{0, 0}}, 2, SlotReuse, SlotReuse)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := Convert(ssa, 4, Assign, Encoding(7))
		assert.Error(t, err)
	})
}

func TestConvertRejectsMalformed(t *testing.T) {
	_, err := ToSlotReuse(Path{{0, 3}, {4, 1}, {2, 4}}, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = ToAssign(Path{{0, 3}, {0, 3}, {2, 0}}, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

// randomAssignPath builds a uniformly shaped random merge tree in the assign
// encoding.
func randomAssignPath(rng *rand.Rand, n int) Path {
	live := make([]int, n)
	for i := range live {
		live[i] = i
	}
	p := make(Path, 0, n-1)
	for k := 0; k < n-1; k++ {
		i := rng.Intn(len(live))
		a := live[i]
		live = append(live[:i], live[i+1:]...)
		j := rng.Intn(len(live))
		b := live[j]
		live = append(live[:j], live[j+1:]...)
		p = append(p, Step{Left: a, Right: b})
		live = append(live, n+k)
	}
	return p
}

// randomSlotReusePath builds a random slot-reuse path: the left slot stays
// live, the right slot is retired.
func randomSlotReusePath(rng *rand.Rand, n int) Path {
	live := make([]int, n)
	for i := range live {
		live[i] = i
	}
	p := make(Path, 0, n-1)
	for len(live) > 1 {
		i := rng.Intn(len(live))
		j := rng.Intn(len(live) - 1)
		if j >= i {
			j++
		}
		p = append(p, Step{Left: live[i], Right: live[j]})
		live = append(live[:j], live[j+1:]...)
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(40)

		ssa := randomAssignPath(rng, n)
		replace, err := ToSlotReuse(ssa, n)
		require.NoError(t, err, "ssa=%s", ssa)
		require.Len(t, replace, n-1)
		require.NoError(t, Validate(replace, n, SlotReuse))

		back, err := ToAssign(replace, n)
		require.NoError(t, err)
		if diff := cmp.Diff(ssa, back); diff != "" {
			t.Fatalf("assign round trip mismatch for n=%d (-want +got):\n%s", n, diff)
		}

		slots := randomSlotReusePath(rng, n)
		ssa2, err := ToAssign(slots, n)
		require.NoError(t, err, "slots=%s", slots)
		require.Len(t, ssa2, n-1)
		require.NoError(t, Validate(ssa2, n, Assign))

		back2, err := ToSlotReuse(ssa2, n)
		require.NoError(t, err)
		if diff := cmp.Diff(slots, back2); diff != "" {
			t.Fatalf("slot-reuse round trip mismatch for n=%d (-want +got):\n%s", n, diff)
		}
	}
}

func TestFirstLeafReferenceUnchanged(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	check := func(t *testing.T, in, out Path, n int) {
		t.Helper()
		seen := make(map[int]bool)
		for k := range in {
			for side, id := range [2]int{in[k].Left, in[k].Right} {
				if id >= n || seen[id] {
					continue
				}
				seen[id] = true
				got := out[k].Left
				if side == 1 {
					got = out[k].Right
				}
				assert.Equal(t, id, got, "leaf %d rewritten at step %d", id, k)
			}
		}
	}

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(20)

		ssa := randomAssignPath(rng, n)
		replace, err := ToSlotReuse(ssa, n)
		require.NoError(t, err)
		check(t, ssa, replace, n)

		slots := randomSlotReusePath(rng, n)
		assign, err := ToAssign(slots, n)
		require.NoError(t, err)
		check(t, slots, assign, n)
	}
}

func TestRoot(t *testing.T) {
	assert.Equal(t, 6, Root(Path{{0, 3}, {4, 1}, {2, 5}}, 4, Assign))
	assert.Equal(t, 2, Root(Path{{0, 3}, {0, 1}, {2, 0}}, 4, SlotReuse))
	assert.Equal(t, 0, Root(Path{}, 1, SlotReuse))
}
