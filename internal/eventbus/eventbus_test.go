package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ N int }

func TestBus_DispatchByType(t *testing.T) {
	b := New()
	var pings, pongs []int
	On(b, func(_ context.Context, e ping) { pings = append(pings, e.N) })
	On(b, func(_ context.Context, e pong) { pongs = append(pongs, e.N) })

	Emit(context.Background(), b, ping{1})
	Emit(context.Background(), b, pong{2})
	Emit(context.Background(), b, ping{3})

	require.Equal(t, []int{1, 3}, pings)
	require.Equal(t, []int{2}, pongs)
}

func TestBus_UnsubscribeRemovesOnlyOwnHandler(t *testing.T) {
	b := New()
	var got []string
	h := func(tag string) Handler[ping] {
		return func(context.Context, ping) { got = append(got, tag) }
	}
	offA := On(b, h("a"))
	On(b, h("b"))

	offA()
	offA()
	Emit(context.Background(), b, ping{})
	require.Equal(t, []string{"b"}, got)
}

func TestGlobal(t *testing.T) {
	t.Cleanup(func() { Use(nil) })

	Use(nil)
	off := Subscribe(func(context.Context, ping) { t.Fatal("no bus installed") })
	Publish(context.Background(), ping{})
	off()

	Use(New())
	var n int
	off = Subscribe(func(_ context.Context, e ping) { n += e.N })
	Publish(context.Background(), ping{N: 2})
	off()
	Publish(context.Background(), ping{N: 5})
	require.Equal(t, 2, n)
}
