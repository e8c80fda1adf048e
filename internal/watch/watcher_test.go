package watch

import "testing"

func TestSplitPayloadName(t *testing.T) {
	cases := []struct {
		base   string
		vendor string
		rest   string
	}{
		{"retell__call_123.json", "retell", "call_123"},
		{"Bland__abc.json", "bland", "abc"},
		{"openai_realtime__sess_9.json", "openai_realtime", "sess_9"},
		{"noprefix.json", "", ""},
		{"__orphan.json", "", ""},
		{"vendor__.json", "", ""},
	}
	for _, c := range cases {
		vendor, rest := SplitPayloadName(c.base)
		if vendor != c.vendor || rest != c.rest {
			t.Fatalf("SplitPayloadName(%q) = %q, %q", c.base, vendor, rest)
		}
	}
}

func TestIsPayloadFile(t *testing.T) {
	if !IsPayloadFile("/inbox/retell__call_1.json") {
		t.Fatalf("expected payload file match")
	}
	if IsPayloadFile("/inbox/retell__call_1.mp3") {
		t.Fatalf("audio files are not payloads")
	}
	if IsPayloadFile("/inbox/notes.json") {
		t.Fatalf("unprefixed json is not a payload")
	}
}
