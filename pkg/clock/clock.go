package clock

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is one consistent reading of "now". Every field is derived from the
// same sampled instant, so callers can mix the epoch and the calendar strings
// without ever seeing a torn pair.
type Snapshot struct {
	// Epoch is the UTC timestamp as float seconds with fractional part.
	Epoch float64

	// Unix is Epoch truncated (not rounded) to an integer second.
	Unix int64

	// EpochStr is Epoch formatted %15.4f, the receipt-timestamp wire form.
	EpochStr string

	// YYMMDD / HHMMSS, 2-digit year, zero padded.
	UTCYMD string
	UTCHMS string
	LocYMD string
	LocHMS string
}

// Clock holds the shared "now" snapshot consumed by the normalizer (record
// timestamps) and the writer (rotation decisions). Refresh is called from
// every connection goroutine, so the read-sample-publish sequence is guarded
// by a mutex; readers get a copy, never a reference into mutable state.
type Clock struct {
	mu   sync.Mutex
	cur  Snapshot
	// now is swappable for tests.
	now func() time.Time
}

func New() *Clock {
	c := &Clock{now: time.Now}
	c.Refresh()
	return c
}

// NewAt returns a Clock that samples from the given source instead of the
// wall clock. Test hook.
func NewAt(now func() time.Time) *Clock {
	c := &Clock{now: now}
	c.Refresh()
	return c
}

// Refresh samples the current time, publishes a new snapshot, and returns it.
func (c *Clock) Refresh() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	epoch := float64(c.now().UnixNano()) / 1e9
	c.cur = build(epoch)
	return c.cur
}

// RefreshAt publishes a snapshot seeded from an explicit UTC epoch, for
// deterministic or backfilled records.
func (c *Clock) RefreshAt(epoch float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = build(epoch)
	return c.cur
}

// Current returns the last published snapshot without resampling.
func (c *Clock) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func build(epoch float64) Snapshot {
	// Calendar strings come from the truncated second, matching the epoch
	// published alongside them.
	sec := time.Unix(int64(epoch), 0)
	utc := sec.UTC()
	loc := sec.Local()
	return Snapshot{
		Epoch:    epoch,
		Unix:     int64(epoch),
		EpochStr: fmt.Sprintf("%15.4f", epoch),
		UTCYMD:   ymd(utc),
		UTCHMS:   hms(utc),
		LocYMD:   ymd(loc),
		LocHMS:   hms(loc),
	}
}

func ymd(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d", t.Year()%100, int(t.Month()), t.Day())
}

func hms(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d", t.Hour(), t.Minute(), t.Second())
}
