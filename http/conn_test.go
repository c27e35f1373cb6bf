package http

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/freekieb7/poolhttp/test"
)

// chunkWriter accepts at most limit bytes per Write call.
type chunkWriter struct {
	buf   bytes.Buffer
	limit int
	calls int
}

func (w *chunkWriter) Write(b []byte) (int, error) {
	w.calls++
	if len(b) > w.limit {
		b = b[:w.limit]
	}
	return w.buf.Write(b)
}

type failAfterWriter struct {
	remaining int
}

func (w *failAfterWriter) Write(b []byte) (int, error) {
	if w.remaining <= 0 {
		return 0, errors.New("broken pipe")
	}
	n := min(len(b), w.remaining)
	w.remaining -= n
	return n, nil
}

type zeroReader struct{}

func (zeroReader) Read([]byte) (int, error) { return 0, nil }

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestReadExactPartialReads(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader("hello world"))

	b, err := ReadExact(r, 5)
	test.AssertNoError(t, err)
	test.AssertEqual(t, "hello", string(b))

	b, err = ReadExact(r, 6)
	test.AssertNoError(t, err)
	test.AssertEqual(t, " world", string(b))
}

func TestReadExactDataWithEOF(t *testing.T) {
	r := iotest.DataErrReader(strings.NewReader("abc"))

	b, err := ReadExact(r, 3)
	test.AssertNoError(t, err)
	test.AssertEqual(t, "abc", string(b))
}

func TestReadExactShortStream(t *testing.T) {
	b, err := ReadExact(strings.NewReader("abc"), 4)
	test.AssertErrorIs(t, err, ErrShortRead)
	test.AssertErrorIs(t, err, io.EOF)
	if b != nil {
		t.Errorf("expected no partial data, got %q", b)
	}
}

func TestReadExactNoProgress(t *testing.T) {
	_, err := ReadExact(zeroReader{}, 1)
	test.AssertErrorIs(t, err, ErrShortRead)
	test.AssertErrorIs(t, err, io.ErrNoProgress)
}

func TestReadExactReaderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ReadExact(iotest.ErrReader(boom), 1)
	test.AssertErrorIs(t, err, boom)
}

func TestReadExactZeroCount(t *testing.T) {
	b, err := ReadExact(iotest.ErrReader(errors.New("never read")), 0)
	test.AssertNoError(t, err)
	test.AssertEqual(t, 0, len(b))
}

func TestSendAllPartialWrites(t *testing.T) {
	w := &chunkWriter{limit: 3}
	payload := []byte("the quick brown fox")

	test.AssertNoError(t, SendAll(w, payload))
	test.AssertEqual(t, string(payload), w.buf.String())
	test.AssertEqual(t, 7, w.calls)
}

func TestSendAllWriterFails(t *testing.T) {
	err := SendAll(&failAfterWriter{remaining: 4}, []byte("0123456789"))
	test.AssertErrorIs(t, err, ErrShortWrite)
	if !strings.Contains(err.Error(), "sent 4 of 10 bytes") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestSendAllNoProgress(t *testing.T) {
	err := SendAll(zeroWriter{}, []byte("x"))
	test.AssertErrorIs(t, err, ErrShortWrite)
	test.AssertErrorIs(t, err, io.ErrShortWrite)
}

func TestSendAllEmpty(t *testing.T) {
	test.AssertNoError(t, SendAll(zeroWriter{}, nil))
}
