package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Internal parse outcomes. Neither escapes Decode.
var (
	errIncomplete = errors.New("incomplete")
	errGarbageCmd = errors.New("garbage command")
)

// Decode attempts to parse exactly one frame starting at the first
// unambiguous frame start in buf. The buffer stays owned by the caller;
// Decode never retains or mutates it.
//
// Outcomes:
//
//	dg, n, nil   — one frame decoded from the first n raw bytes
//	nil, n, nil  — need more data; the first n bytes are junk and may be
//	               discarded now
//	nil, n, err  — recoverable error (CRC mismatch, structural violation);
//	               discard n bytes to resynchronize and try again
//
// A frame start is a 0x2B byte whose immediately preceding byte is not the
// escape byte. Frames carrying an unknown command code are skipped
// silently and scanning resumes after their start byte.
func Decode(buf []byte) (*Datagram, int, error) {
	search := 0
	for {
		start := findStart(buf, search)
		if start < 0 {
			return nil, discardableJunk(buf), nil
		}

		dg, end, err := parseAt(buf, start)
		switch {
		case errors.Is(err, errGarbageCmd):
			search = start + 1
			continue
		case errors.Is(err, errIncomplete):
			return nil, start, nil
		case err != nil:
			// Discard through the start byte so scanning can resync on
			// whatever follows.
			return nil, start + 1, err
		}
		return dg, end, nil
	}
}

// parseAt parses the frame whose start byte sits at buf[start]. On
// success it returns the datagram and the index one past the frame's last
// raw byte.
func parseAt(buf []byte, start int) (*Datagram, int, error) {
	i := start + 1
	logical := make([]byte, 0, 16)
	need := 2 // cmd + len, extended once the length byte is known

	for len(logical) < need {
		if i >= len(buf) {
			return nil, 0, errIncomplete
		}
		switch b := buf[i]; {
		case b == EscByte:
			if i+1 >= len(buf) {
				return nil, 0, errIncomplete
			}
			logical = append(logical, buf[i+1])
			i += 2
		case b == StartByte:
			return nil, 0, &FrameError{Reason: "frame truncated by next start byte"}
		default:
			logical = append(logical, b)
			i++
		}

		if len(logical) == 2 && need == 2 {
			if !Command(logical[0]).Valid() {
				return nil, 0, errGarbageCmd
			}
			if logical[1] < 4 {
				return nil, 0, &FrameError{Reason: fmt.Sprintf("length %d below the 4 byte minimum", logical[1])}
			}
			need = 2 + int(logical[1])
		}
	}

	// The CRC trailer is emitted raw, outside the escape rules.
	if i+2 > len(buf) {
		return nil, 0, errIncomplete
	}
	got := uint16(buf[i])<<8 | uint16(buf[i+1])
	i += 2

	if want := Checksum(logical); want != got {
		return nil, 0, &CRCError{Want: want, Got: got}
	}

	return &Datagram{
		Cmd:  Command(logical[0]),
		ID:   binary.BigEndian.Uint32(logical[2:6]),
		Data: append([]byte(nil), logical[6:]...),
	}, i, nil
}

func findStart(buf []byte, from int) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == StartByte && (i == 0 || buf[i-1] != EscByte) {
			return i
		}
	}
	return -1
}

// discardableJunk reports how much of a startless buffer can be dropped.
// A trailing escape byte is kept: it decides whether the next inbound byte
// can open a frame.
func discardableJunk(buf []byte) int {
	if n := len(buf); n > 0 && buf[n-1] == EscByte {
		return n - 1
	}
	return len(buf)
}
