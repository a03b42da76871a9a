package control

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	lengthPrefixSize = 4

	// MaxMessageSize bounds a single frame body.
	MaxMessageSize = 1 << 20
)

var (
	// ErrMessageTooLarge indicates a frame longer than MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates a zero-length frame.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the peer went away mid-frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// frameWriter writes length-prefixed frames. Safe for concurrent use.
type frameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w}
}

func (writer *frameWriter) writeFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), MaxMessageSize)
	}

	frame := make([]byte, lengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[lengthPrefixSize:], data)

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if _, err := writer.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// frameReader reads length-prefixed frames. Not safe for concurrent use.
type frameReader struct {
	r         io.Reader
	lengthBuf [lengthPrefixSize]byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

// readFrame returns the next frame body. A clean close between frames
// yields io.EOF.
func (reader *frameReader) readFrame() ([]byte, error) {
	if _, err := io.ReadFull(reader.r, reader.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(reader.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, MaxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(reader.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}
