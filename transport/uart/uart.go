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

// Package uart provides the High Speed UART transport for PN532 readers
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-isodep/internal/frame"
	"github.com/ZaparooProject/go-isodep/pn532"
	"go.bug.st/serial"
)

const (
	// BaudRate is the PN532 HSU default speed
	BaudRate = 115200

	defaultTimeout = 1 * time.Second
	ackTimeout     = 50 * time.Millisecond
	pollInterval   = 10 * time.Millisecond
	maxNacks       = 2
)

// wakeupSequence brings the PN532 out of power-down: 0x55 0x55 and a run of
// zeros long enough for the oscillator to start.
var wakeupSequence = []byte{
	0x55, 0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Port is the part of serial.Port the transport uses
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements pn532.TransportContext over a serial port
type Transport struct {
	port     Port
	portName string
	rx       []byte
	timeout  time.Duration
	mu       sync.Mutex
	awake    bool
}

// New opens portName at 115200 8N1
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, pn532.NewTransportError("open", portName, err, pn532.ErrorTypePermanent)
	}
	return NewWithPort(port, portName), nil
}

// NewWithPort wraps an already open port
func NewWithPort(port Port, portName string) *Transport {
	return &Transport{
		port:     port,
		portName: portName,
		timeout:  defaultTimeout,
	}
}

// SendCommand sends a command to the PN532 and waits for response
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext sends a command and waits for the response, giving up
// when ctx is done or the transport timeout passes.
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("send command %02X: %w", cmd, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, pn532.NewTransportError("SendCommand", t.portName, pn532.ErrTransportClosed,
			pn532.ErrorTypePermanent)
	}

	if err := t.writeCommand(cmd, args); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}
	return t.readResponse(ctx, cmd)
}

func (t *Transport) writeCommand(cmd byte, args []byte) error {
	payload := make([]byte, 0, 1+len(args))
	payload = append(payload, cmd)
	payload = append(payload, args...)

	buf := frame.GetBuffer(frame.Size(payload))
	defer frame.PutBuffer(buf)
	out, err := frame.Build(buf[:0], frame.HostToPn532, payload)
	if err != nil {
		return pn532.NewDataTooLargeError("SendCommand", t.portName)
	}

	if err := t.port.ResetInputBuffer(); err != nil {
		return pn532.NewTransportError("reset input", t.portName, err, pn532.ErrorTypeTransient)
	}
	t.rx = t.rx[:0]

	if !t.awake {
		if _, err := t.port.Write(wakeupSequence); err != nil {
			return pn532.NewTransportError("wakeup", t.portName,
				fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
		}
		t.awake = true
	}

	if _, err := t.port.Write(out); err != nil {
		return pn532.NewTransportError("write", t.portName,
			fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	return nil
}

func (t *Transport) waitAck(ctx context.Context) error {
	f, err := t.readFrame(ctx, ackTimeout)
	switch {
	case errors.Is(err, pn532.ErrTransportTimeout):
		t.awake = false
		return pn532.NewNoACKError("waitAck", t.portName)
	case err != nil:
		return err
	case f.Kind != frame.KindAck:
		return pn532.NewNoACKError("waitAck", t.portName)
	}
	return nil
}

func (t *Transport) readResponse(ctx context.Context, cmd byte) ([]byte, error) {
	for nacks := 0; ; nacks++ {
		f, err := t.readFrame(ctx, t.timeout)
		if errors.Is(err, frame.ErrDataChecksum) && nacks < maxNacks {
			if _, werr := t.port.Write(frame.NackFrame); werr != nil {
				return nil, pn532.NewTransportError("nack", t.portName, werr, pn532.ErrorTypeTransient)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if f.Kind != frame.KindInformation || len(f.Data) == 0 {
			return nil, pn532.NewFrameCorruptedError("readResponse", t.portName)
		}
		if f.Data[0] != cmd+1 {
			return nil, pn532.NewTransportError("readResponse", t.portName,
				fmt.Errorf("%w: response code %02X for command %02X", pn532.ErrInvalidResponse, f.Data[0], cmd),
				pn532.ErrorTypePermanent)
		}
		return f.Data, nil
	}
}

// readFrame reads until one complete frame has been parsed
func (t *Transport) readFrame(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	deadline := time.Now().Add(timeout)
	chunk := frame.GetBuffer(frame.MaxFrameSize)
	defer frame.PutBuffer(chunk)

	for {
		if len(t.rx) > 0 {
			f, n, err := frame.Parse(t.rx, frame.Pn532ToHost)
			switch {
			case err == nil:
				t.rx = t.rx[n:]
				return f, nil
			case errors.Is(err, frame.ErrApplicationError):
				t.rx = t.rx[n:]
				return f, pn532.NewTransportError("readFrame", t.portName, err, pn532.ErrorTypePermanent)
			case errors.Is(err, frame.ErrDataChecksum):
				t.rx = t.rx[n:]
				return f, err
			case !errors.Is(err, frame.ErrIncomplete):
				t.rx = t.rx[:0]
				return f, pn532.NewTransportError("readFrame", t.portName,
					fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err), pn532.ErrorTypeTransient)
			}
			if len(t.rx) > 2*frame.MaxFrameSize {
				t.rx = t.rx[:0]
				return frame.Frame{}, pn532.NewFrameCorruptedError("readFrame", t.portName)
			}
		}

		if err := ctx.Err(); err != nil {
			return frame.Frame{}, fmt.Errorf("read frame: %w", err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return frame.Frame{}, pn532.NewTimeoutError("readFrame", t.portName)
		}

		if err := t.port.SetReadTimeout(min(remaining, pollInterval)); err != nil {
			return frame.Frame{}, pn532.NewTransportError("set read timeout", t.portName, err,
				pn532.ErrorTypePermanent)
		}
		n, err := t.port.Read(chunk)
		if err != nil {
			return frame.Frame{}, pn532.NewTransportError("read", t.portName,
				fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		t.rx = append(t.rx, chunk[:n]...)
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

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true while the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportUART
}

// PortName returns the serial port path
func (t *Transport) PortName() string {
	return t.portName
}

var _ pn532.TransportContext = (*Transport)(nil)
