package viewer

import (
	"xlogd/pkg/record"
)

// FanOut renders each record through multiple viewers in order. The first
// error is returned after all viewers have run, so one broken viewer does not
// starve the others.
type FanOut struct {
	viewers []Viewer
}

func NewFanOut(viewers ...Viewer) *FanOut {
	return &FanOut{viewers: viewers}
}

func (f *FanOut) Render(p record.Prefix, ev record.Event) error {
	var first error
	for _, v := range f.viewers {
		if err := v.Render(p, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
