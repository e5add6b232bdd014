//go:build property

package debounce_test

import (
	"testing"
	"time"

	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/conneroisu/shelfsearch/internal/testutils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebounceProperties checks coalescing against a manual clock.
func TestDebounceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// gaps are the pauses between consecutive Fire calls, in milliseconds
	gaps := gen.SliceOfN(8, gen.IntRange(0, 400))

	properties.Property("one invocation per quiet period with the latest argument", prop.ForAll(
		func(delayMs int, pauses []int) bool {
			delay := time.Duration(delayMs) * time.Millisecond
			clock := testutils.NewFakeScheduler()
			var got []int
			d, err := debounce.New(func(v int) { got = append(got, v) }, delay, debounce.WithScheduler(clock))
			if err != nil {
				return false
			}

			// Model: a call is delivered iff the next pause is at least the delay.
			var want []int
			for i, p := range pauses {
				d.Fire(i)
				if i == len(pauses)-1 || time.Duration(p)*time.Millisecond >= delay {
					want = append(want, i)
				}
				if i < len(pauses)-1 {
					clock.Advance(time.Duration(p) * time.Millisecond)
				}
			}
			clock.Advance(delay)

			if len(got) != len(want) {
				return false
			}
			for i := range want {
				if got[i] != want[i] {
					return false
				}
			}
			return clock.Armed() == 0
		},
		gen.IntRange(1, 300), gaps,
	))

	properties.Property("never fires without a call", prop.ForAll(
		func(delayMs int, waitMs int) bool {
			clock := testutils.NewFakeScheduler()
			calls := 0
			_, err := debounce.New(func(struct{}) { calls++ }, time.Duration(delayMs)*time.Millisecond,
				debounce.WithScheduler(clock))
			if err != nil {
				return false
			}
			clock.Advance(time.Duration(waitMs) * time.Millisecond)
			return calls == 0
		},
		gen.IntRange(0, 1000), gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}
