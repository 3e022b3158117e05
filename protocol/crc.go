package protocol

import "github.com/sigurn/crc16"

// The frame checksum is CRC-16/CCITT-FALSE: polynomial 0x1021, initial
// value 0xFFFF, no reflection, no final XOR.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

var crcZeroPad = []byte{0x00}

// CRC accumulates the frame checksum over the logical (unescaped) body
// bytes. The device computes the checksum over an even number of bytes;
// for odd-length input a single zero byte is folded in at read time. The
// start byte and the checksum trailer itself are never fed.
type CRC struct {
	sum uint16
	odd bool
}

func NewCRC() *CRC {
	return &CRC{sum: crc16.Init(crcTable)}
}

func (c *CRC) Reset() {
	c.sum = crc16.Init(crcTable)
	c.odd = false
}

func (c *CRC) WriteByte(b byte) {
	c.sum = crc16.Update(c.sum, []byte{b}, crcTable)
	c.odd = !c.odd
}

func (c *CRC) Write(p []byte) {
	c.sum = crc16.Update(c.sum, p, crcTable)
	if len(p)%2 == 1 {
		c.odd = !c.odd
	}
}

// Sum16 returns the checksum, padding with one zero byte if an odd number
// of bytes was written. The accumulator state is left untouched, so more
// bytes may be written afterwards.
func (c *CRC) Sum16() uint16 {
	sum := c.sum
	if c.odd {
		sum = crc16.Update(sum, crcZeroPad, crcTable)
	}
	return crc16.Complete(sum, crcTable)
}

// Checksum computes the frame checksum of p in one shot.
func Checksum(p []byte) uint16 {
	c := NewCRC()
	c.Write(p)
	return c.Sum16()
}
