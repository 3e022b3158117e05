package protocol

import "fmt"

// Encode builds the wire frame for dg: start byte, escaped body, raw
// big-endian CRC trailer. The result is deterministic for a given
// datagram.
func Encode(dg Datagram) ([]byte, error) {
	if !dg.Cmd.Valid() {
		return nil, fmt.Errorf("protocol: cannot encode unknown command 0x%02X", byte(dg.Cmd))
	}
	if len(dg.Data) > MaxDataLen {
		return nil, fmt.Errorf("protocol: payload of %d bytes exceeds the %d byte short-frame limit", len(dg.Data), MaxDataLen)
	}

	crc := NewCRC()
	// Worst case every body byte is escaped: start + 2*(cmd+len+id+data) + crc.
	frame := make([]byte, 0, 1+2*(6+len(dg.Data))+2)
	frame = append(frame, StartByte)

	frame = appendEscaped(frame, crc, byte(dg.Cmd))
	frame = appendEscaped(frame, crc, byte(4+len(dg.Data)))
	frame = appendEscaped(frame, crc, byte(dg.ID>>24))
	frame = appendEscaped(frame, crc, byte(dg.ID>>16))
	frame = appendEscaped(frame, crc, byte(dg.ID>>8))
	frame = appendEscaped(frame, crc, byte(dg.ID))
	for _, b := range dg.Data {
		frame = appendEscaped(frame, crc, b)
	}

	sum := crc.Sum16()
	frame = append(frame, byte(sum>>8), byte(sum))
	return frame, nil
}

// appendEscaped emits b into the frame, prefixing it with the escape byte
// when it collides with a delimiter. Only the original value enters the
// CRC; the escape marker is a physical wire byte.
func appendEscaped(frame []byte, crc *CRC, b byte) []byte {
	if b == StartByte || b == EscByte {
		frame = append(frame, EscByte)
	}
	crc.WriteByte(b)
	return append(frame, b)
}
