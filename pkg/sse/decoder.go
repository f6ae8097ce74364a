package sse

import (
	"bytes"
	"strings"
)

// DataPrefix starts every payload-carrying SSE line
const DataPrefix = "data:"

// DoneSentinel is the OpenAI-style end-of-stream payload
const DoneSentinel = "[DONE]"

// Decoder splits a byte stream into lines. Network reads rarely end on a
// line boundary, so the trailing fragment of every chunk is carried over to
// the next call. Splitting happens on the byte '\n', which never occurs
// inside a multi-byte UTF-8 sequence, so characters split across reads are
// reassembled intact.
type Decoder struct {
	buf []byte
}

// Feed appends a chunk and returns every line it completed, without the
// line terminator.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, strings.TrimSuffix(string(d.buf[:i]), "\r"))
		d.buf = d.buf[i+1:]
	}

	// Compact so a long stream doesn't pin the whole history in memory
	if len(d.buf) == 0 {
		d.buf = nil
	} else if len(lines) > 0 {
		d.buf = append([]byte(nil), d.buf...)
	}
	return lines
}

// Flush returns whatever partial line is left and resets the decoder
func (d *Decoder) Flush() string {
	rest := strings.TrimSuffix(string(d.buf), "\r")
	d.buf = nil
	return rest
}

// Buffered reports how many bytes are waiting for a line terminator
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// DataPayload extracts the payload of a data line. It returns false for
// non-data lines (comments, event names, blank separators), empty payloads
// and the [DONE] sentinel.
func DataPayload(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(line[len(DataPrefix):])
	if payload == "" || payload == DoneSentinel {
		return "", false
	}
	return payload, true
}
