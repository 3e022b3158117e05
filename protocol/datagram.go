// Package protocol implements the byte-stuffed, CRC-protected framing
// format spoken by RCT power storage devices: frame encoding, an
// incremental streaming decoder, and the CRC register both sides share.
//
// One logical message is a Datagram (command, register id, payload). On
// the wire a datagram is framed as
//
//	0x2B | ESC(cmd) | ESC(len) | ESC(id[31:24..7:0]) | ESC(data...) | CRC_HI | CRC_LO
//
// where len = 4 + len(data), ESC prefixes any 0x2B/0x2D body byte with
// 0x2D, and the big-endian CRC trailer is emitted raw. The start byte and
// the CRC bytes are not covered by the CRC.
package protocol

import "fmt"

// Frame delimiter and escape bytes.
const (
	StartByte byte = 0x2B
	EscByte   byte = 0x2D
)

// MaxDataLen is the largest payload expressible in the short length form:
// the length byte counts the 4 id bytes plus the payload.
const MaxDataLen = 255 - 4

// Datagram is one logical protocol message.
type Datagram struct {
	Cmd  Command
	ID   uint32
	Data []byte
}

func (dg Datagram) String() string {
	return fmt.Sprintf("%s #0x%08X (%d bytes)", dg.Cmd, dg.ID, len(dg.Data))
}
