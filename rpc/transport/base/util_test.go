package base

import (
	"bytes"
	"io"
	"reflect"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"tag only", []byte{7}},
		{"binary move", []byte{7, 0, 0, 0, 10, 255, 255, 255, 254}},
		{"larger than initial buffer", bytes.Repeat([]byte{0xAB}, 2048)},
	}

	var stream bytes.Buffer
	for _, tc := range testCases {
		stream.Write(newFrame(tc.data))
	}

	var buf []byte
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, next, err := readFrame(&stream, buf, 0)
			buf = next
			if err != nil {
				t.Fatalf("readFrame failed: %v", err)
			}
			if !reflect.DeepEqual(data, tc.data) {
				t.Errorf("got %v, want %v", data, tc.data)
			}
		})
	}

	if _, _, err := readFrame(&stream, buf, 0); err != io.EOF {
		t.Errorf("expected EOF at end of stream, got %v", err)
	}
}

func TestFrameHeader(t *testing.T) {
	frame := newFrame([]byte{1, 2, 3})
	want := []byte{0, 0, 0, 3, 1, 2, 3}
	if !bytes.Equal(frame, want) {
		t.Errorf("newFrame() = %v, want %v", frame, want)
	}
}

func TestFrameTooLarge(t *testing.T) {
	stream := bytes.NewReader(newFrame(make([]byte, 17)))
	if _, _, err := readFrame(stream, nil, 16); err == nil {
		t.Errorf("expected error for oversized frame")
	}
}

func TestFrameTruncated(t *testing.T) {
	frame := newFrame([]byte{1, 2, 3, 4})
	stream := bytes.NewReader(frame[:len(frame)-1])
	if _, _, err := readFrame(stream, nil, 0); err != io.ErrUnexpectedEOF {
		t.Errorf("expected unexpected EOF, got %v", err)
	}
}
