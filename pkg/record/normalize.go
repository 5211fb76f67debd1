package record

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"xlogd/pkg/clock"
)

// Normalizer turns one source-prefixed inbound line ("ip<TAB>{...json...}")
// into a formatted flat-file record. It owns no state beyond the shared clock;
// it is safe for concurrent use from many connection goroutines.
type Normalizer struct {
	clk *clock.Clock
}

func NewNormalizer(clk *clock.Clock) *Normalizer {
	return &Normalizer{clk: clk}
}

// Normalize validates and reformats a source-prefixed line. On success it
// returns the complete newline-terminated record ready for the queue. On
// failure the error text is the reason reported back to the client; the
// caller logs the offending line. A panic anywhere inside is recovered into a
// generic reason so one malformed record cannot take the server down.
func (n *Normalizer) Normalize(line string) (rec []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("internal: %v", r)
		}
	}()

	ip, payload, ok := strings.Cut(line, Delim)
	if !ok {
		return nil, fmt.Errorf("split ip|payload failed")
	}
	if !validIP(ip) {
		return nil, fmt.Errorf("bad _ip: %q", ip)
	}
	if len(payload) == 0 || payload[0] != '{' || payload[len(payload)-1] != '}' {
		return nil, fmt.Errorf("bad json dict: %q", payload)
	}

	ev, err := parseObject(payload)
	if err != nil {
		return nil, fmt.Errorf("json parse: %v", err)
	}

	// Inject the sender address, then sample a fresh receipt timestamp.
	ev["_ip"] = ip
	snap := n.clk.Refresh()

	id := controlField(ev, "_id", 4, DefaultID)
	si := controlField(ev, "_si", 4, DefaultSubID)
	el := controlField(ev, "_el", 1, DefaultLevel)
	sl := controlField(ev, "_sl", 1, DefaultLevel)

	// If the sender supplied no timestamp, the receipt timestamp stands in,
	// and is written back so the persisted payload always carries one.
	ts := eventTS(ev)
	if ts == "" {
		ts = snap.EpochStr
		ev["_ts"] = ts
	}

	cj, err := canonicalJSON(ev)
	if err != nil {
		return nil, fmt.Errorf("serialize: %v", err)
	}
	sum := sha1.Sum(cj)
	digest := hex.EncodeToString(sum[:])

	var b bytes.Buffer
	for i, f := range []string{Version, snap.EpochStr, ts, id, si, el, sl, digest} {
		if i > 0 {
			b.WriteString(Delim)
		}
		b.WriteString(f)
	}
	b.WriteString(Delim)
	b.Write(cj)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// validIP is a syntactic sanity check, not full address validation: non-empty,
// digit at both ends, exactly three dots.
func validIP(ip string) bool {
	if ip == "" {
		return false
	}
	if !isDigit(ip[0]) || !isDigit(ip[len(ip)-1]) {
		return false
	}
	return strings.Count(ip, ".") == 3
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseObject decodes a JSON object keeping numbers as json.Number, so the
// canonical serialization reproduces the literals the client sent.
func parseObject(payload string) (Event, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var ev Event
	if err := dec.Decode(&ev); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	return ev, nil
}

// controlField reads a control key with a default, coercing integer-typed
// values to their fixed-width zero-padded string form. The coercion affects
// the record prefix only; the event keeps the value the client sent.
func controlField(ev Event, key string, width int, def string) string {
	v, ok := ev[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return fmt.Sprintf("%0*d", width, i)
		}
		return x.String()
	case nil:
		return def
	default:
		return fmt.Sprint(x)
	}
}

func eventTS(ev Event) string {
	switch x := ev["_ts"].(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
