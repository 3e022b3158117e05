// Package rct is a client for the serial protocol spoken by RCT power
// storage devices (solar inverters and battery controllers) over TCP. It
// reads and writes named registers addressed by 32-bit ids.
//
// The wire protocol is half-duplex and responses carry no request tag:
// the next response on a connection belongs to the most recently sent
// request. Each Connection therefore serializes all callers onto a FIFO
// queue with at most one request in flight, retries recoverable failures
// with exponential backoff, verifies writes by reading them back, and
// suppresses redundant reads with a TTL-bounded response cache.
//
// Basic use:
//
//	pool := rct.NewPool(rct.Config{})
//	defer pool.Shutdown()
//
//	conn, err := pool.Get("192.168.1.30", 8899, 30*time.Second, 128)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	desc, _ := registry.Default().GetByName("battery_soc")
//	soc, err := conn.QueryFloat32(ctx, desc)
//
// Frame encoding and decoding live in the protocol subpackage; the
// register catalog, including the built-in table for RCT devices, lives
// in the registry subpackage.
package rct
