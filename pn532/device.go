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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig configures retry behavior for transport operations
	RetryConfig *RetryConfig
	// Timeout is the default timeout for operations
	Timeout time.Duration
	// PassiveActivationRetries is MxRtyPassiveActivation, set during Init
	PassiveActivationRetries byte
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig:              DefaultRetryConfig(),
		Timeout:                  1 * time.Second,
		PassiveActivationRetries: DefaultPassiveActivationRetries,
	}
}

// Device represents a PN532 NFC reader device. Once a target is selected it
// carries ISO/IEC 14443-4 frames to it through InCommunicateThru and so
// satisfies isodep.FrameTransport.
//
// Thread Safety: commands are serialized by the transport; target state is
// guarded by the device. Do not run two block-level sessions at once.
type Device struct {
	transport       Transport
	config          *DeviceConfig
	firmwareVersion *FirmwareVersion
	target          *Target
	mu              sync.Mutex
}

// New creates a new PN532 device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// FirmwareVersion returns the version read by Init, or nil
func (d *Device) FirmwareVersion() *FirmwareVersion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firmwareVersion
}

// Init initializes the PN532 device
func (d *Device) Init() error {
	return d.InitContext(context.Background())
}

// InitContext reads the firmware version, puts the SAM in normal mode and
// bounds passive activation retries.
func (d *Device) InitContext(ctx context.Context) error {
	fw, err := d.GetFirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get firmware version: %w", err)
	}
	debugf("found %s", fw)

	if err := d.SAMConfiguration(ctx, SAMModeNormal, 0x14, 0x01); err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}

	if err := d.SetPassiveActivationRetries(ctx, d.config.PassiveActivationRetries); err != nil {
		// older firmware may reject it; polling still works, just slower to give up
		debugf("setting passive activation retries failed: %v", err)
	}

	d.mu.Lock()
	d.firmwareVersion = fw
	d.mu.Unlock()
	return nil
}

// SAMConfiguration configures the security access module. timeout is in
// units of 50ms and only used in virtual card mode.
func (d *Device) SAMConfiguration(ctx context.Context, mode, timeout, irq byte) error {
	if mode < SAMModeNormal || mode > SAMModeDualCard {
		return fmt.Errorf("%w: SAM mode %02X", ErrInvalidParameter, mode)
	}
	if _, err := d.sendCommand(ctx, cmdSamConfiguration, []byte{mode, timeout, irq}); err != nil {
		return err
	}
	return nil
}

// SetPassiveActivationRetries sets how often InListPassiveTarget retries
// before reporting no target. 0xFF retries forever.
func (d *Device) SetPassiveActivationRetries(ctx context.Context, retries byte) error {
	// MxRtyATR, MxRtyPSL, MxRtyPassiveActivation
	_, err := d.sendCommand(ctx, cmdRFConfiguration, []byte{rfItemMaxRetry, 0xFF, 0x01, retries})
	return err
}

// SetCommunicationTimeout sets how long the PN532 waits for a card answer
// during InCommunicateThru. The value is rounded up to the next supported
// step (100µs doubling up to 3.28s).
func (d *Device) SetCommunicationTimeout(ctx context.Context, timeout time.Duration) error {
	code, err := timeoutCode(timeout)
	if err != nil {
		return err
	}
	// RFU, ATR_RES timeout (102.4ms), communication timeout
	_, err = d.sendCommand(ctx, cmdRFConfiguration, []byte{rfItemTimings, 0x00, 0x0B, code})
	return err
}

func timeoutCode(timeout time.Duration) (byte, error) {
	if timeout <= 0 {
		return 0, fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
	}
	for code := byte(minTimeoutCode); code <= maxTimeoutCode; code++ {
		if timeoutUnit<<(code-1) >= timeout {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: timeout %v exceeds %v", ErrInvalidParameter, timeout,
		timeoutUnit<<(maxTimeoutCode-1))
}

// SetRFField switches the antenna field on or off
func (d *Device) SetRFField(ctx context.Context, on bool) error {
	var field byte
	if on {
		field = 0x01
	}
	_, err := d.sendCommand(ctx, cmdRFConfiguration, []byte{rfItemField, field})
	return err
}

// SelectISODEPTarget activates one 106 kbps type A card. The PN532 performs
// anticollision and RATS; the card must answer with an ATS.
func (d *Device) SelectISODEPTarget(ctx context.Context) (*Target, error) {
	res, err := d.sendCommand(ctx, cmdInListPassiveTarget, []byte{0x01, brTy106kbpsTypeA})
	if err != nil {
		return nil, fmt.Errorf("InListPassiveTarget failed: %w", err)
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("%w: InListPassiveTarget response too short", ErrInvalidResponse)
	}
	if res[1] == 0 {
		return nil, ErrTagNotFound
	}

	target, err := parseTarget(res[2:])
	if err != nil {
		return nil, err
	}
	if !target.SupportsISODEP() {
		return nil, fmt.Errorf("%w: SAK %02X", ErrNotISODEP, target.SAK)
	}

	debugf("selected %s", target)

	d.mu.Lock()
	d.target = target
	d.mu.Unlock()
	return target, nil
}

// Target returns the selected target, or nil
func (d *Device) Target() *Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Release releases the selected target, or all targets when none is
// selected
func (d *Device) Release(ctx context.Context) error {
	d.mu.Lock()
	var number byte
	if d.target != nil {
		number = d.target.Number
	}
	d.mu.Unlock()

	res, err := d.sendCommand(ctx, cmdInRelease, []byte{number})
	if err != nil {
		return fmt.Errorf("InRelease failed: %w", err)
	}
	if err := checkStatus(cmdInRelease, res); err != nil {
		return err
	}

	d.mu.Lock()
	d.target = nil
	d.mu.Unlock()
	return nil
}

// CommunicateThru sends raw bytes to the card and returns its answer. The
// PN532 adds and checks the CRC.
func (d *Device) CommunicateThru(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidParameter)
	}
	if len(data) > maxCommunicateThruData {
		return nil, NewDataTooLargeError("CommunicateThru", "")
	}

	res, err := d.sendCommand(ctx, cmdInCommunicateThru, data)
	if err != nil {
		return nil, fmt.Errorf("InCommunicateThru failed: %w", err)
	}
	if err := checkStatus(cmdInCommunicateThru, res); err != nil {
		return nil, err
	}
	return append([]byte(nil), res[2:]...), nil
}

// TransceiveFrame implements isodep.FrameTransport
func (d *Device) TransceiveFrame(ctx context.Context, frame []byte) ([]byte, error) {
	if d.Target() == nil {
		return nil, ErrNoTargetSelected
	}
	return d.CommunicateThru(ctx, frame)
}

// SetTimeout sets the default timeout for operations
func (d *Device) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
	}
	d.config.Timeout = timeout
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set transport timeout: %w", err)
	}
	return nil
}

// SetRetryConfig updates the retry configuration
func (d *Device) SetRetryConfig(config *RetryConfig) {
	d.config.RetryConfig = config
	if tr, ok := d.transport.(*TransportWithRetry); ok {
		tr.SetRetryConfig(config)
	}
}

// Close closes the device connection
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (d *Device) sendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	res, err := AsTransportContext(d.transport).SendCommandContext(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || res[0] != cmd+1 {
		return nil, fmt.Errorf("%w: command %02X answered with % X", ErrInvalidResponse, cmd, res)
	}
	return res, nil
}

// checkStatus checks the status byte following the response code
func checkStatus(cmd byte, res []byte) error {
	if len(res) < 2 {
		return fmt.Errorf("%w: command %02X response missing status", ErrInvalidResponse, cmd)
	}
	if res[1]&statusErrorMask != StatusOK {
		return &StatusError{Cmd: cmd, Status: res[1]}
	}
	return nil
}

// IsCardGone reports whether err means the card left the field
func IsCardGone(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code() == StatusCardDisappeared || se.Code() == StatusTargetReleased
	}
	return errors.Is(err, ErrNoTargetSelected)
}
