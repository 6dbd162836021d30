package tensorpath_test

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/tensorpath"
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

func ExampleNormalizeLegs() {
	net, err := tensorpath.NormalizeLegs(
		[][]int{{0, 1}, {1, 2}},
		[]int{0, 2},
		map[int]uint64{0: 2, 1: 3, 2: 4},
	)
	if err != nil {
		panic(err)
	}
	fmt.Println(net.Inputs, net.Output)
	// Output: [[0 1] [1 2]] [0 2]
}

func ExampleClient_FromPath() {
	// A stand-in optimizer that returns the starting path unchanged.
	opt := optimizer.Func(func(ctx context.Context, req *optimizer.Request) (path.Path, error) {
		return req.Path, nil
	})

	client, err := tensorpath.New(opt)
	if err != nil {
		panic(err)
	}

	net, err := tensorpath.NormalizeSymbols(
		[][]string{{"i", "j"}, {"j", "k"}, {"k", "l"}, {"l", "i"}},
		nil,
		map[string]uint64{"i": 2, "j": 2, "k": 2, "l": 2},
	)
	if err != nil {
		panic(err)
	}

	p, err := client.FromPath(context.Background(), net, path.Path{{Left: 0, Right: 3}, {Left: 0, Right: 1}, {Left: 2, Right: 0}}, path.SlotReuse)
	if err != nil {
		panic(err)
	}
	fmt.Println(p)
	// Output: [(0, 3), (0, 1), (2, 0)]
}
