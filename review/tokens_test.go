package review

import "testing"

// realCounter loads the gpt-4 encoding, skipping the test when the BPE
// data cannot be fetched (offline CI).
func realCounter(t *testing.T) *TiktokenCounter {
	t.Helper()
	counter, err := NewTiktokenCounter()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return counter
}

func TestTiktokenCounterCount(t *testing.T) {
	counter := realCounter(t)

	if got := counter.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}

	text := "def handle_request(request):\n    return request.body\n"
	got := counter.Count(text)
	if got <= 0 {
		t.Fatalf("Count(%q) = %d, want positive", text, got)
	}
	if got > len(text) {
		t.Errorf("Count(%q) = %d, want at most the byte length %d", text, got, len(text))
	}
}

func TestTiktokenCounterCount_Deterministic(t *testing.T) {
	counter := realCounter(t)

	text := "import os\nprint(os.environ)\n"
	first := counter.Count(text)
	second := counter.Count(text)
	if first != second {
		t.Errorf("Count() = %d then %d for the same text", first, second)
	}
}
