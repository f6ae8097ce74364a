package sse

import (
	"errors"
	"io"
)

const readChunkSize = 4096

// ReadEvents reads normalized relay events from r and hands each one to fn
// in arrival order. Frames that are not valid JSON are skipped. Reading
// stops at EOF, on a read error, or when fn returns an error.
func ReadEvents(r io.Reader, fn func(Event) error) error {
	var dec Decoder
	buf := make([]byte, readChunkSize)

	handle := func(line string) error {
		payload, ok := DataPayload(line)
		if !ok {
			return nil
		}
		ev, err := ParseEvent(payload)
		if err != nil {
			return nil
		}
		return fn(ev)
	}

	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				if herr := handle(line); herr != nil {
					return herr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	return handle(dec.Flush())
}
