package clock

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSnapshot_Fields(t *testing.T) {
	// 2015-11-01 12:34:56.7890 UTC
	fixed := time.Date(2015, 11, 1, 12, 34, 56, 789_000_000, time.UTC)
	c := NewAt(func() time.Time { return fixed })

	s := c.Refresh()
	if s.Unix != fixed.Unix() {
		t.Errorf("Unix = %d, want %d", s.Unix, fixed.Unix())
	}
	if len(s.EpochStr) != 15 {
		t.Errorf("EpochStr %q has length %d, want 15", s.EpochStr, len(s.EpochStr))
	}
	if !strings.HasSuffix(s.EpochStr, ".7890") {
		t.Errorf("EpochStr %q missing fractional part", s.EpochStr)
	}
	if s.UTCYMD != "151101" {
		t.Errorf("UTCYMD = %q, want 151101", s.UTCYMD)
	}
	if s.UTCHMS != "123456" {
		t.Errorf("UTCHMS = %q, want 123456", s.UTCHMS)
	}
}

func TestRefreshAt_Explicit(t *testing.T) {
	c := New()
	s := c.RefreshAt(1438631586.1234)
	if s.Unix != 1438631586 {
		t.Errorf("Unix = %d, want 1438631586", s.Unix)
	}
	if s.EpochStr != "1438631586.1234" {
		t.Errorf("EpochStr = %q", s.EpochStr)
	}
	// Current returns the published snapshot unchanged.
	if got := c.Current(); got != s {
		t.Errorf("Current() = %+v, want %+v", got, s)
	}
}

func TestRefresh_Concurrent(t *testing.T) {
	// Hammer Refresh from many goroutines while another reads. Every observed
	// snapshot must be internally consistent: the calendar strings must match
	// the epoch they were published with.
	c := New()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					c.Refresh()
				}
			}
		}()
	}

	deadline := time.After(200 * time.Millisecond)
	for done := false; !done; {
		select {
		case <-deadline:
			done = true
		default:
			s := c.Current()
			want := build(s.Epoch)
			if s != want {
				t.Fatalf("torn snapshot: %+v", s)
			}
		}
	}
	close(stop)
	wg.Wait()
}
