// go-isodep
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-isodep.
//
// go-isodep is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-isodep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-isodep; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package i2c provides I2C transport implementation for PN532
package i2c

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-isodep/internal/frame"
	"github.com/ZaparooProject/go-isodep/internal/retry"
	"github.com/ZaparooProject/go-isodep/pn532"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Address is the 7-bit PN532 I2C address (0x48 >> 1)
	Address = 0x24

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	statusReady    = 0x01
	defaultTimeout = 1 * time.Second
	ackTimeout     = 50 * time.Millisecond
	pollInterval   = time.Millisecond
	maxNacks       = 2
)

// Conn is a device on the bus; *i2c.Dev implements it
type Conn interface {
	Tx(w, r []byte) error
}

// Transport implements pn532.TransportContext over I2C
type Transport struct {
	dev     Conn
	closer  func() error
	busName string
	timeout time.Duration
	mu      sync.Mutex
}

// New opens the named bus (e.g. "/dev/i2c-1" or "1"); an empty name picks
// the first bus.
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, pn532.NewTransportError("open", busName, err, pn532.ErrorTypePermanent)
	}

	// not every adapter supports changing speed
	_ = bus.SetSpeed(maxClockFreq)

	t := NewWithConn(&i2c.Dev{Addr: Address, Bus: bus}, busName)
	t.closer = bus.Close
	return t, nil
}

// NewWithConn wraps an already addressed device
func NewWithConn(dev Conn, busName string) *Transport {
	return &Transport{
		dev:     dev,
		busName: busName,
		timeout: defaultTimeout,
	}
}

// SendCommand sends a command to the PN532 and waits for response
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext sends a command and polls the ready bit for the ACK
// and the response.
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("send command %02X: %w", cmd, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, pn532.NewTransportError("SendCommand", t.busName, pn532.ErrTransportClosed,
			pn532.ErrorTypePermanent)
	}

	if err := t.sendFrame(cmd, args); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}
	return t.receiveFrame(ctx, cmd)
}

func (t *Transport) sendFrame(cmd byte, args []byte) error {
	payload := make([]byte, 0, 1+len(args))
	payload = append(payload, cmd)
	payload = append(payload, args...)

	buf := frame.GetBuffer(frame.Size(payload))
	defer frame.PutBuffer(buf)
	out, err := frame.Build(buf[:0], frame.HostToPn532, payload)
	if err != nil {
		return pn532.NewDataTooLargeError("sendFrame", t.busName)
	}

	if err := t.dev.Tx(out, nil); err != nil {
		return pn532.NewTransportError("sendFrame", t.busName,
			fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	return nil
}

// readReady polls until the status byte reports ready and returns the rest
// of that read
func (t *Transport) readReady(ctx context.Context, size int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, 1+size)
	data, err := retry.Poll(ctx, timeout, pollInterval, func(int) ([]byte, bool, error) {
		if err := t.dev.Tx(nil, buf); err != nil {
			return nil, false, pn532.NewTransportError("read", t.busName,
				fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		if buf[0]&statusReady == 0 {
			return nil, true, nil
		}
		return buf[1:], false, nil
	})
	if errors.Is(err, retry.ErrTimeout) {
		return nil, pn532.NewTimeoutError("waitReady", t.busName)
	}
	if err != nil {
		return nil, fmt.Errorf("wait ready: %w", err)
	}
	return data, nil
}

func (t *Transport) waitAck(ctx context.Context) error {
	data, err := t.readReady(ctx, len(frame.AckFrame), ackTimeout)
	if errors.Is(err, pn532.ErrTransportTimeout) {
		return pn532.NewNoACKError("waitAck", t.busName)
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(data, frame.AckFrame) {
		return pn532.NewNoACKError("waitAck", t.busName)
	}
	return nil
}

func (t *Transport) receiveFrame(ctx context.Context, cmd byte) ([]byte, error) {
	for nacks := 0; ; nacks++ {
		data, err := t.readReady(ctx, frame.MaxFrameSize, t.timeout)
		if err != nil {
			return nil, err
		}

		f, _, err := frame.Parse(data, frame.Pn532ToHost)
		switch {
		case errors.Is(err, frame.ErrDataChecksum), errors.Is(err, frame.ErrLengthChecksum):
			if nacks >= maxNacks {
				return nil, pn532.NewTransportError("receiveFrame", t.busName,
					fmt.Errorf("%w: %w", pn532.ErrChecksumMismatch, err), pn532.ErrorTypeTransient)
			}
			if err := t.dev.Tx(frame.NackFrame, nil); err != nil {
				return nil, pn532.NewTransportError("nack", t.busName, err, pn532.ErrorTypeTransient)
			}
			continue
		case errors.Is(err, frame.ErrApplicationError):
			return nil, pn532.NewTransportError("receiveFrame", t.busName, err, pn532.ErrorTypePermanent)
		case err != nil:
			return nil, pn532.NewTransportError("receiveFrame", t.busName,
				fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err), pn532.ErrorTypeTransient)
		}

		if f.Kind != frame.KindInformation || len(f.Data) == 0 {
			return nil, pn532.NewFrameCorruptedError("receiveFrame", t.busName)
		}
		if f.Data[0] != cmd+1 {
			return nil, pn532.NewTransportError("receiveFrame", t.busName,
				fmt.Errorf("%w: response code %02X for command %02X", pn532.ErrInvalidResponse, f.Data[0], cmd),
				pn532.ErrorTypePermanent)
		}
		return f.Data, nil
	}
}

// SetTimeout sets the response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", pn532.ErrInvalidParameter)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close releases the bus
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = nil
	if t.closer == nil {
		return nil
	}
	closer := t.closer
	t.closer = nil
	if err := closer(); err != nil {
		return fmt.Errorf("close %s: %w", t.busName, err)
	}
	return nil
}

// IsConnected returns true until Close is called
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

var _ pn532.TransportContext = (*Transport)(nil)
