package record

import (
	"encoding/json"
	"testing"
)

func TestCanonicalJSON_SortedAndEscaped(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
		want string
	}{
		{
			"sorted keys",
			Event{"z": "1", "a": "2", "m": "3"},
			`{"a": "2", "m": "3", "z": "1"}`,
		},
		{
			"non-ascii escaped",
			Event{"msg": "héllo"},
			`{"msg": "h\u00e9llo"}`,
		},
		{
			"non-bmp surrogate pair",
			Event{"e": "\U0001F600"},
			`{"e": "\ud83d\ude00"}`,
		},
		{
			"control chars",
			Event{"s": "a\tb\nc\x01"},
			`{"s": "a\tb\nc\u0001"}`,
		},
		{
			"scalars",
			Event{"b": true, "f": false, "n": nil, "num": json.Number("42")},
			`{"b": true, "f": false, "n": null, "num": 42}`,
		},
		{
			"nested",
			Event{"o": map[string]any{"y": json.Number("1"), "x": []any{"a", nil}}},
			`{"o": {"x": ["a", null], "y": 1}}`,
		},
	}
	for _, tc := range cases {
		got, err := canonicalJSON(tc.ev)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if string(got) != tc.want {
			t.Errorf("%s:\n got %s\nwant %s", tc.name, got, tc.want)
		}
	}
}

func TestCanonicalJSON_Stable(t *testing.T) {
	ev := Event{"b": json.Number("2"), "a": "x", "c": map[string]any{"k": "v"}}
	first, err := canonicalJSON(ev)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		got, err := canonicalJSON(ev)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(first) {
			t.Fatalf("serialization unstable at iteration %d", i)
		}
	}
}
