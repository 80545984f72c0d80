package protocol

import (
	"encoding/json"
	"io"
	"net/http"
)

// StreamEncoder writes a server-to-client stream of messages as
// newline-delimited JSON, flushing after every message when the underlying
// writer supports it.
type StreamEncoder[T any] struct {
	enc     *json.Encoder
	flusher http.Flusher
}

// NewStreamEncoder creates an encoder over w.
func NewStreamEncoder[T any](w io.Writer) *StreamEncoder[T] {
	e := &StreamEncoder[T]{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Send writes one message to the stream.
func (e *StreamEncoder[T]) Send(msg *T) error {
	if err := e.enc.Encode(msg); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// StreamDecoder reads a newline-delimited JSON stream of messages.
type StreamDecoder[T any] struct {
	dec *json.Decoder
}

// NewStreamDecoder creates a decoder over r.
func NewStreamDecoder[T any](r io.Reader) *StreamDecoder[T] {
	return &StreamDecoder[T]{dec: json.NewDecoder(r)}
}

// Next returns the next message, or io.EOF when the stream is exhausted.
func (d *StreamDecoder[T]) Next() (*T, error) {
	var msg T
	if err := d.dec.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DrainStream reads the whole stream into memory. Callers that need
// whole-batch semantics use this before processing anything.
func DrainStream[T any](r io.Reader) ([]T, error) {
	dec := NewStreamDecoder[T](r)
	var out []T
	for {
		msg, err := dec.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *msg)
	}
}
