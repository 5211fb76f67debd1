package control

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatch(t *testing.T) {
	stops := 0
	w := NewWatcher("localhost:6379", "", 0, "xlogd_control", func() { stops++ }, zerolog.Nop())

	cases := []struct {
		payload   string
		wantStops int
	}{
		{"stop", 1},
		{"STOP", 2},
		{" stop \n", 3},
		{"ping", 3},
		{"garbage", 3},
		{"", 3},
	}
	for _, tc := range cases {
		w.dispatch(tc.payload)
		if stops != tc.wantStops {
			t.Errorf("after %q: stops = %d, want %d", tc.payload, stops, tc.wantStops)
		}
	}
}
