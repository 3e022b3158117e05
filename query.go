package rct

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Baumus/rctgolib/protocol"
	"github.com/Baumus/rctgolib/registry"
)

// Query reads a register and decodes its payload per the descriptor's
// wire type. Reads within the cache TTL are served without touching the
// wire.
func (c *Connection) Query(ctx context.Context, desc registry.Descriptor) (any, error) {
	v, err := c.enqueueWait(ctx, func() (any, error) {
		return c.withRetry(ctx, func() (any, error) {
			dg, err := c.readRegister(ctx, desc.ID, true)
			if err != nil {
				return nil, err
			}
			return dg, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return registry.Decode(desc, v.(protocol.Datagram).Data)
}

// QueryByName is Query with a catalog lookup on the register name.
func (c *Connection) QueryByName(ctx context.Context, name string) (any, error) {
	desc, ok := c.cfg.Catalog.GetByName(name)
	if !ok {
		return nil, fmt.Errorf("rct: unknown register %q", name)
	}
	return c.Query(ctx, desc)
}

// QueryFloat32 reads a float32 register.
func (c *Connection) QueryFloat32(ctx context.Context, desc registry.Descriptor) (float32, error) {
	return queryAs[float32](c, ctx, desc)
}

// QueryUint16 reads a uint16 register.
func (c *Connection) QueryUint16(ctx context.Context, desc registry.Descriptor) (uint16, error) {
	return queryAs[uint16](c, ctx, desc)
}

// QueryUint32 reads a uint32 register.
func (c *Connection) QueryUint32(ctx context.Context, desc registry.Descriptor) (uint32, error) {
	return queryAs[uint32](c, ctx, desc)
}

// QueryString reads a string register.
func (c *Connection) QueryString(ctx context.Context, desc registry.Descriptor) (string, error) {
	return queryAs[string](c, ctx, desc)
}

func queryAs[T any](c *Connection, ctx context.Context, desc registry.Descriptor) (T, error) {
	var zero T
	v, err := c.Query(ctx, desc)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("rct: register %s decodes to %T, not %T", desc.Name, v, zero)
	}
	return t, nil
}

// Write encodes value per the descriptor's wire type, checks device
// readiness, sends the write, and verifies it by reading the register
// back and comparing byte for byte.
func (c *Connection) Write(ctx context.Context, desc registry.Descriptor, value any) error {
	if !desc.Writable {
		return &NotWritableError{Name: desc.Name, ID: desc.ID}
	}
	encoded, err := registry.Encode(desc, value)
	if err != nil {
		return err
	}

	_, err = c.enqueueWait(ctx, func() (any, error) {
		return c.withRetry(ctx, func() (any, error) {
			return nil, c.writeAndVerify(ctx, desc.ID, encoded)
		})
	})
	if err == nil {
		c.stats.recordWrite()
	}
	return err
}

// Ping probes the device with an uncached read of the readiness register.
func (c *Connection) Ping(ctx context.Context) error {
	_, err := c.enqueueWait(ctx, func() (any, error) {
		return c.withRetry(ctx, func() (any, error) {
			return c.readRegister(ctx, c.cfg.ReadinessRegister, false)
		})
	})
	return err
}

// readRegister performs one read attempt on the wire, optionally serving
// from the response cache. Every successful wire read feeds the cache.
func (c *Connection) readRegister(ctx context.Context, id uint32, cached bool) (protocol.Datagram, error) {
	if cached {
		if dg, hit := c.cache.Get(id); hit {
			c.stats.recordQuery(true)
			return dg, nil
		}
		c.stats.recordQuery(false)
	}

	if err := c.ensureTransport(ctx); err != nil {
		return protocol.Datagram{}, err
	}
	frame, err := protocol.Encode(protocol.Datagram{Cmd: protocol.CommandRead, ID: id})
	if err != nil {
		return protocol.Datagram{}, err
	}
	if err := c.send(ctx, frame); err != nil {
		return protocol.Datagram{}, err
	}
	dg, err := c.await(ctx, id)
	if err != nil {
		return protocol.Datagram{}, err
	}
	c.cache.Put(id, dg)
	return dg, nil
}

// writeAndVerify is one attempt of the write sub-sequence: readiness
// pre-check, WRITE, then READ of the same id asserting the response
// carries exactly the written bytes.
func (c *Connection) writeAndVerify(ctx context.Context, id uint32, encoded []byte) error {
	if !c.cfg.SkipReadinessCheck {
		// The pre-check bypasses the cache: a stale status must not
		// green-light a write.
		status, err := c.readRegister(ctx, c.cfg.ReadinessRegister, false)
		if err != nil {
			return err
		}
		if v := uintValue(status.Data); v != 0 {
			return &DeviceNotReadyError{Status: v}
		}
	}

	if err := c.ensureTransport(ctx); err != nil {
		return err
	}
	writeFrame, err := protocol.Encode(protocol.Datagram{Cmd: protocol.CommandWrite, ID: id, Data: encoded})
	if err != nil {
		return err
	}
	readFrame, err := protocol.Encode(protocol.Datagram{Cmd: protocol.CommandRead, ID: id})
	if err != nil {
		return err
	}

	if err := c.send(ctx, writeFrame); err != nil {
		return err
	}
	if err := c.send(ctx, readFrame); err != nil {
		return err
	}

	dg, err := c.await(ctx, id)
	if err != nil {
		return err
	}
	if !bytes.Equal(dg.Data, encoded) {
		return &VerifyError{ID: id, Want: encoded, Got: dg.Data}
	}
	c.cache.Put(id, dg)
	return nil
}

// uintValue interprets a payload as a big-endian unsigned integer of its
// own width, so the readiness check works for any integer status
// register.
func uintValue(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}
