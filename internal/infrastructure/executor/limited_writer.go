package executor

import (
	"bytes"
	"fmt"
)

// limitedWriter keeps at most max bytes and counts what it drops. It always
// reports a full write so the child never sees a short write.
type limitedWriter struct {
	buf       bytes.Buffer
	max       int
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := lw.max - lw.buf.Len()
	if remaining <= 0 {
		lw.discarded += int64(n)
		return n, nil
	}
	if n > remaining {
		lw.buf.Write(p[:remaining])
		lw.discarded += int64(n - remaining)
		return n, nil
	}
	lw.buf.Write(p)
	return n, nil
}

func (lw *limitedWriter) truncated() bool {
	return lw.discarded > 0
}

// String returns the kept bytes followed by the truncation marker when
// anything was dropped.
func (lw *limitedWriter) String() string {
	if !lw.truncated() {
		return lw.buf.String()
	}
	out := lw.buf.String()
	if out != "" && out[len(out)-1] != '\n' {
		out += "\n"
	}
	return out + truncationMarker(lw.discarded)
}

func truncationMarker(omitted int64) string {
	return fmt.Sprintf("[... output truncated: %d bytes omitted]", omitted)
}
