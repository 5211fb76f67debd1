package record

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
)

// Flat-file layout constants. Version "1" is the tab-delimited layout with the
// sub-id column; the older pipe-delimited unversioned layout is not supported.
const (
	Delim   = "\t"
	Version = "1"
)

// Defaults for control fields the sender omitted.
const (
	DefaultID    = "____"
	DefaultSubID = "____"
	DefaultLevel = "_"
)

// Event is one decoded log event: the sender's JSON object plus the control
// keys xlog injects or defaults (_ip, _ts, _id, _si, _el, _sl). All other
// keys are opaque payload.
type Event map[string]any

// Prefix is the decoded fixed-width portion of a persisted record, everything
// before the canonical JSON payload.
type Prefix struct {
	Version  string
	RxTS     string // server receipt timestamp, %15.4f UTC epoch
	EventTS  string // sender timestamp, defaulted to RxTS
	ID       string // 4 chars
	SubID    string // 4 chars
	ErrLevel string // 1 char
	SubLevel string // 1 char
	Digest   string // 40 hex chars, SHA-1 of the JSON payload bytes
}

var delimBytes = []byte(Delim)

// Decode splits a persisted record line back into its prefix and event map.
// Used by the writer when handing records to a viewer.
func Decode(line []byte) (Prefix, Event, error) {
	line = bytes.TrimRight(line, "\n")
	parts := bytes.SplitN(line, delimBytes, 9)
	if len(parts) != 9 {
		return Prefix{}, nil, fmt.Errorf("record has %d fields, want 9", len(parts))
	}
	p := Prefix{
		Version:  string(parts[0]),
		RxTS:     string(parts[1]),
		EventTS:  string(parts[2]),
		ID:       string(parts[3]),
		SubID:    string(parts[4]),
		ErrLevel: string(parts[5]),
		SubLevel: string(parts[6]),
		Digest:   string(parts[7]),
	}
	payload := parts[8]
	if !gjson.ValidBytes(payload) {
		return Prefix{}, nil, fmt.Errorf("record payload is not valid JSON")
	}
	obj, ok := gjson.ParseBytes(payload).Value().(map[string]any)
	if !ok {
		return Prefix{}, nil, fmt.Errorf("record payload is not a JSON object")
	}
	return p, Event(obj), nil
}
