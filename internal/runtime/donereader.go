package runtime

import (
	"io"
	"sync"
)

// An [io.Reader] that closes a channel the first time the wrapped reader
// reports [io.EOF].
type doneReader struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

// Wraps r.
func newDoneReader(r io.Reader) *doneReader {
	return &doneReader{r: r, done: make(chan struct{})}
}

// Reads from the wrapped reader. Errors other than EOF leave the channel open.
func (d *doneReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err == io.EOF {
		d.once.Do(func() { close(d.done) })
	}
	return n, err
}
