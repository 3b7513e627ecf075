//go:build bench
// +build bench

package slp_test

import (
	"testing"

	"github.com/ssargent/slippc/pkg/slp"
	"github.com/ssargent/slippc/pkg/slp/slptest"
)

func BenchmarkLoad(b *testing.B) {
	benchmarks := []struct {
		name   string
		frames int
		ics    bool
	}{
		{name: "1min", frames: 3600},
		{name: "8min", frames: 28800},
		{name: "8min_iceclimbers", frames: 28800, ics: true},
	}

	for _, bm := range benchmarks {
		gs := slptest.GameStart{
			Stage: 31,
			Players: []slptest.Player{
				{Char: 2, Type: slp.PlayerHuman, Stocks: 4},
				{Char: 20, Type: slp.PlayerHuman, Stocks: 4},
			},
		}
		if bm.ics {
			gs.Players[1].Char = slp.CharIceClimbers
		}
		w := slptest.NewWriter(slp.V(3, 18, 0))
		w.GameStart(gs)
		w.Frames(bm.frames, nil)
		w.GameEnd(slp.EndGame, -1, [4]int8{0, 1, -1, -1})
		data := w.Bytes()

		b.Run(bm.name, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := slp.Load(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
