package writer

import (
	"strings"

	"xlogd/pkg/clock"
)

// Resolve substitutes the path template's placeholders with slices of the
// LOCAL calendar strings from the snapshot, so date and time rolling follow
// the operator's clock. An empty template resolves to "", which disables
// persistence. Pure function, no I/O.
//
// Placeholders: ~me~ (process identity), ~y~ ~ym~ ~ymd~ (2/4/6 digits of
// local date), ~h~ ~hm~ ~hms~ (2/4/6 digits of local time).
func Resolve(template, me string, snap clock.Snapshot) string {
	if template == "" {
		return ""
	}
	return strings.NewReplacer(
		"~me~", me,
		"~ymd~", snap.LocYMD,
		"~ym~", snap.LocYMD[:4],
		"~y~", snap.LocYMD[:2],
		"~hms~", snap.LocHMS,
		"~hm~", snap.LocHMS[:4],
		"~h~", snap.LocHMS[:2],
	).Replace(template)
}
