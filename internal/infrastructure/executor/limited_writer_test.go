package executor

import "testing"

func TestLimitedWriter(t *testing.T) {
	lw := &limitedWriter{max: 5}

	for _, chunk := range []string{"abc", "def", "ghij"} {
		n, err := lw.Write([]byte(chunk))
		if err != nil || n != len(chunk) {
			t.Fatalf("Write(%q) = %d, %v; want full write", chunk, n, err)
		}
	}

	if !lw.truncated() {
		t.Fatal("expected truncation")
	}
	want := "abcde\n[... output truncated: 5 bytes omitted]"
	if got := lw.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLimitedWriter_UnderLimit(t *testing.T) {
	lw := &limitedWriter{max: 64}
	_, _ = lw.Write([]byte("short\n"))
	if lw.truncated() || lw.String() != "short\n" {
		t.Errorf("unexpected state: truncated=%v out=%q", lw.truncated(), lw.String())
	}
}
