package rct

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Baumus/rctgolib/protocol"
	"github.com/stretchr/testify/require"
)

// testDevice is an in-process fake speaking the device side of the
// protocol: reads are answered from a register map, writes stored into
// it. A test may hijack individual requests via onFrame to inject
// corruption, silence, or unsolicited traffic.
type testDevice struct {
	t  *testing.T
	ln net.Listener

	mu   sync.Mutex
	regs map[uint32][]byte

	// onFrame, when set, supplies the raw bytes written back for a
	// request. Returning ok=false falls through to default handling.
	onFrame func(dg protocol.Datagram) (raw [][]byte, ok bool)

	reads  atomic.Int64
	writes atomic.Int64
}

func newTestDevice(t *testing.T) *testDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &testDevice{
		t:    t,
		ln:   ln,
		regs: make(map[uint32][]byte),
	}
	// Battery in normal operation unless a test says otherwise.
	d.set(DefaultConfigForTest().ReadinessRegister, []byte{0x00, 0x00})

	go d.serve()
	t.Cleanup(func() { ln.Close() })
	return d
}

func (d *testDevice) hostPort() (string, int) {
	addr := d.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (d *testDevice) set(id uint32, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[id] = data
}

func (d *testDevice) get(id uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[id]
}

func (d *testDevice) setOnFrame(fn func(dg protocol.Datagram) ([][]byte, bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrame = fn
}

func (d *testDevice) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.handle(conn)
	}
}

func (d *testDevice) handle(conn net.Conn) {
	defer conn.Close()
	var buf []byte
	scratch := make([]byte, 4096)

	for {
		n, err := conn.Read(scratch)
		if n > 0 {
			buf = append(buf, scratch[:n]...)
			for {
				dg, consumed, derr := protocol.Decode(buf)
				if derr != nil {
					if consumed < 1 {
						consumed = 1
					}
					buf = buf[consumed:]
					continue
				}
				buf = buf[consumed:]
				if dg == nil {
					break
				}
				d.dispatch(conn, *dg)
			}
		}
		if err != nil {
			return
		}
	}
}

func (d *testDevice) dispatch(conn net.Conn, dg protocol.Datagram) {
	d.mu.Lock()
	hook := d.onFrame
	d.mu.Unlock()

	if hook != nil {
		if raw, ok := hook(dg); ok {
			for _, frame := range raw {
				conn.Write(frame)
			}
			return
		}
	}

	switch dg.Cmd {
	case protocol.CommandRead:
		d.reads.Add(1)
		data := d.get(dg.ID)
		frame, err := protocol.Encode(protocol.Datagram{Cmd: protocol.CommandResponse, ID: dg.ID, Data: data})
		require.NoError(d.t, err)
		conn.Write(frame)
	case protocol.CommandWrite:
		d.writes.Add(1)
		d.set(dg.ID, dg.Data)
	}
}

// DefaultConfigForTest returns a config with short timeouts and the
// readiness check pointed at the default battery status register.
func DefaultConfigForTest() Config {
	return Config{
		ReceiveTimeout:    500 * time.Millisecond,
		MaxRetries:        3,
		InitialBackoff:    5 * time.Millisecond,
		BackoffMultiplier: 2,
	}.withDefaults()
}

func newTestConnection(t *testing.T, d *testDevice, cfg Config) *Connection {
	t.Helper()
	host, port := d.hostPort()
	c := NewConnection(host, port, cfg)
	t.Cleanup(func() { c.Close() })
	return c
}

// responseFrame builds the raw bytes of a Response datagram.
func responseFrame(t *testing.T, id uint32, data []byte) []byte {
	t.Helper()
	frame, err := protocol.Encode(protocol.Datagram{Cmd: protocol.CommandResponse, ID: id, Data: data})
	require.NoError(t, err)
	return frame
}
