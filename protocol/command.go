package protocol

import "fmt"

// Command identifies the operation carried by a datagram.
type Command byte

const (
	CommandRead             Command = 0x01
	CommandWrite            Command = 0x02
	CommandLongWrite        Command = 0x03
	CommandReserved1        Command = 0x04
	CommandResponse         Command = 0x05
	CommandLongResponse     Command = 0x06
	CommandReserved2        Command = 0x07
	CommandReadPeriodically Command = 0x08
	CommandExtension        Command = 0x3C
)

// Valid reports whether c is one of the protocol command codes.
func (c Command) Valid() bool {
	switch c {
	case CommandRead, CommandWrite, CommandLongWrite, CommandReserved1,
		CommandResponse, CommandLongResponse, CommandReserved2,
		CommandReadPeriodically, CommandExtension:
		return true
	}
	return false
}

func (c Command) String() string {
	switch c {
	case CommandRead:
		return "Read"
	case CommandWrite:
		return "Write"
	case CommandLongWrite:
		return "LongWrite"
	case CommandReserved1:
		return "Reserved1"
	case CommandResponse:
		return "Response"
	case CommandLongResponse:
		return "LongResponse"
	case CommandReserved2:
		return "Reserved2"
	case CommandReadPeriodically:
		return "ReadPeriodically"
	case CommandExtension:
		return "Extension"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", byte(c))
	}
}
