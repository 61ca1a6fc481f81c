package utils

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// DeferredWriter buffers writes until Flush is called. It is used to hold
// log output while the terminal is owned by a full screen program.
type DeferredWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Write(p)
}

// Flush writes everything buffered so far to w, one line per Write call,
// and resets the buffer. Line-at-a-time writes matter for writers such as
// zerolog.ConsoleWriter that decode a single event per call.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.buf.Reset()

	sc := bufio.NewScanner(bytes.NewReader(d.buf.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := append(sc.Bytes(), '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return sc.Err()
}
