package base

import (
	"encoding/binary"
	"fmt"
	"io"
)

// headerSize is the size of the frame header: 4 bytes payload length (uint32, big endian)
const headerSize = 4

// newFrame copies data into a new frame with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func newFrame(data []byte) []byte {
	frame := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint32(frame[:headerSize], uint32(len(data)))
	copy(frame[headerSize:], data)
	return frame
}

// readFrame reads a frame using the provided buffer. If the buffer is too small a new
// buffer is allocated, the returned buffer should be passed to the next call.
func readFrame(r io.Reader, buf []byte, maxFrameSize int) (data []byte, next []byte, err error) {
	// Check if buffer is large enough for header
	if len(buf) < headerSize {
		buf = make([]byte, 512)
	}

	// Read header
	if _, err := io.ReadFull(r, buf[:headerSize]); err != nil {
		return nil, buf, err
	}
	contentLength := int(binary.BigEndian.Uint32(buf[:headerSize]))

	if maxFrameSize > 0 && contentLength > maxFrameSize {
		return nil, buf, fmt.Errorf("frame of %d bytes exceeds maximum of %d bytes", contentLength, maxFrameSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, buf, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < contentLength {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return nil, buf, err
	}

	return buf[:contentLength], buf, nil
}
