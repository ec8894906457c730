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

package pn532

import (
	"errors"
	"fmt"
)

// Transport errors
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrTransportClosed     = errors.New("transport closed")
	ErrCommunicationFailed = errors.New("communication with PN532 failed")
	ErrNoACK               = errors.New("no ACK from PN532")
	ErrNotReady            = errors.New("PN532 not ready")
	ErrFrameCorrupted      = errors.New("frame corrupted")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
)

// Device errors
var (
	ErrDeviceNotFound   = errors.New("PN532 device not found")
	ErrTagNotFound      = errors.New("no tag found")
	ErrNotISODEP        = errors.New("target does not support ISO/IEC 14443-4")
	ErrNoTargetSelected = errors.New("no target selected")
	ErrDataTooLarge     = errors.New("data too large")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidResponse  = errors.New("invalid response from PN532")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts, which are retryable
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError carries the operation and port a transport failure happened on
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the operation may succeed if repeated. The block
// layer resends a frame on temporary errors.
func (e *TransportError) Temporary() bool {
	return e.Retryable
}

// NewTransportError creates a transport error; retryability follows errType
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable frame corruption error
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewDataTooLargeError creates a permanent error for oversized frames
func NewDataTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

// NewNoACKError creates a retryable missing ACK error
func NewNoACKError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNoACK, ErrorTypeTransient)
}

// NewTransportNotReadyError creates a retryable not-ready error
func NewTransportNotReadyError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNotReady, ErrorTypeTransient)
}

var retryableErrors = []error{
	ErrTransportTimeout,
	ErrTransportRead,
	ErrTransportWrite,
	ErrCommunicationFailed,
	ErrNoACK,
	ErrNotReady,
	ErrFrameCorrupted,
	ErrChecksumMismatch,
}

// IsRetryable reports whether err may go away on retry
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	for _, target := range retryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetErrorType classifies err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	if errors.Is(err, ErrTransportTimeout) {
		return ErrorTypeTimeout
	}
	var se *StatusError
	if errors.As(err, &se) && se.Temporary() {
		return ErrorTypeTimeout
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// PN532 status codes reported in the first byte of InCommunicateThru and
// other In* responses (user manual table 12-2)
const (
	StatusOK               = 0x00
	StatusTimeout          = 0x01
	StatusCRCError         = 0x02
	StatusParityError      = 0x03
	StatusBitCountError    = 0x04
	StatusFramingError     = 0x05
	StatusCollision        = 0x06
	StatusBufferTooSmall   = 0x07
	StatusRFBufferOverflow = 0x09
	StatusRFFieldTimeout   = 0x0A
	StatusRFProtocolError  = 0x0B
	StatusOverheating      = 0x0D
	StatusInternalOverflow = 0x0E
	StatusInvalidParameter = 0x10
	StatusDEPUnsupported   = 0x12
	StatusDEPInvalidFormat = 0x13
	StatusAuthError        = 0x14
	StatusUIDCheckError    = 0x23
	StatusDEPInvalidState  = 0x25
	StatusNotAllowed       = 0x26
	StatusNotAcceptable    = 0x27
	StatusTargetReleased   = 0x29
	StatusCardIDMismatch   = 0x2A
	StatusCardDisappeared  = 0x2B
	StatusNFCIDMismatch    = 0x2C
	StatusOverCurrent      = 0x2D
	StatusNADMissing       = 0x2E
	statusErrorMask        = 0x3F
)

var statusText = map[byte]string{
	StatusTimeout:          "target did not answer",
	StatusCRCError:         "CRC error",
	StatusParityError:      "parity error",
	StatusBitCountError:    "erroneous bit count during anticollision",
	StatusFramingError:     "framing error",
	StatusCollision:        "abnormal bit collision",
	StatusBufferTooSmall:   "communication buffer too small",
	StatusRFBufferOverflow: "RF buffer overflow",
	StatusRFFieldTimeout:   "RF field not switched on in time",
	StatusRFProtocolError:  "RF protocol error",
	StatusOverheating:      "antenna overheating",
	StatusInternalOverflow: "internal buffer overflow",
	StatusInvalidParameter: "invalid parameter",
	StatusDEPUnsupported:   "DEP command not supported",
	StatusDEPInvalidFormat: "invalid DEP data format",
	StatusAuthError:        "authentication error",
	StatusUIDCheckError:    "UID check byte wrong",
	StatusDEPInvalidState:  "invalid device state",
	StatusNotAllowed:       "operation not allowed in this configuration",
	StatusNotAcceptable:    "command not acceptable in current context",
	StatusTargetReleased:   "target released by initiator",
	StatusCardIDMismatch:   "card ID does not match",
	StatusCardDisappeared:  "card disappeared",
	StatusNFCIDMismatch:    "NFCID3 mismatch",
	StatusOverCurrent:      "over-current",
	StatusNADMissing:       "NAD missing in DEP frame",
}

// StatusError is a non-zero status byte in a PN532 response
type StatusError struct {
	Cmd    byte
	Status byte
}

func (e *StatusError) Error() string {
	code := e.Status & statusErrorMask
	text, ok := statusText[code]
	if !ok {
		text = "unknown error"
	}
	return fmt.Sprintf("PN532 command %02X failed with status %02X: %s", e.Cmd, e.Status, text)
}

// Temporary reports RF-level failures that a resend may fix.
func (e *StatusError) Temporary() bool {
	switch e.Status & statusErrorMask {
	case StatusTimeout, StatusCRCError, StatusParityError, StatusFramingError,
		StatusCollision, StatusRFProtocolError:
		return true
	default:
		return false
	}
}

// Code returns the error code without the MI and NAD flags.
func (e *StatusError) Code() byte {
	return e.Status & statusErrorMask
}
