// Package framing implements the length-prefixed message codec shared by the
// registry, the orchestrator and their clients.
//
// Every frame is a 4-byte big-endian payload length followed by the payload.
package framing

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize is the largest payload a frame may declare.
const MaxMessageSize = 65536

const headerSize = 4

var (
	// ErrMessageTooLarge is returned by Send for payloads over MaxMessageSize.
	ErrMessageTooLarge = errors.New("framing: message too large")
	// ErrEmptyMessage is returned by Send for zero-length payloads.
	ErrEmptyMessage = errors.New("framing: empty message")
	// ErrBadLength is returned by Recv when the peer declares a zero or
	// oversized length. The stream cannot be resynchronised afterwards.
	ErrBadLength = errors.New("framing: declared length out of range")
	// ErrMalformed is returned by RecvJSON when the payload is not valid JSON
	// for the target value.
	ErrMalformed = errors.New("framing: malformed json payload")
	// ErrShortWrite is returned when the writer stops accepting bytes.
	ErrShortWrite = errors.New("framing: peer stopped accepting data")
)

// Send writes one frame carrying payload.
func Send(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyMessage
	}
	if len(payload) > MaxMessageSize {
		return ErrMessageTooLarge
	}

	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))

	if err := writeFull(w, hdr[:]); err != nil {
		return err
	}
	return writeFull(w, payload)
}

// Recv reads one frame. A peer that closes the stream, whether between frames
// or part way through one, yields io.EOF.
func Recv(r io.Reader) ([]byte, error) {
	var hdr [headerSize]byte
	if err := readFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 || n > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d", ErrBadLength, n)
	}

	body := make([]byte, n)
	if err := readFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// SendJSON encodes v as UTF-8 JSON and sends it as one frame.
func SendJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("framing: encode: %w", err)
	}
	return Send(w, data)
}

// RecvJSON reads one frame and decodes it into v. Transport failures are
// returned as-is; undecodable payloads yield ErrMalformed.
func RecvJSON(r io.Reader, v any) error {
	body, err := Recv(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("framing: write: %w", err)
		}
		if n <= 0 {
			return ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
