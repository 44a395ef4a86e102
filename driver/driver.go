// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package driver defines the Direct3D 11 interfaces
// consumed by the post-processing runtime.
// It mirrors the subset of ID3D11Device,
// ID3D11DeviceContext and IDXGISwapChain that the
// runtime calls, so that a host hook layer can wrap
// the application's own objects and tests can use an
// in-memory implementation.
package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gviegas/postfx/internal/logging"
	"go.uber.org/zap"
)

// Driver is the interface that provides methods for
// loading and unloading an underlying implementation.
type Driver interface {
	// Open initializes the driver.
	// If it succeeds, further calls with the same receiver
	// have no effect and must return the same Device.
	// Callers should assume that Open is not safe for
	// parallel execution.
	Open() (Device, error)

	// Name returns the name of the driver.
	// It must not cause the driver to be opened.
	Name() string

	// Close deinitializes the driver.
	// Closing a driver that is not open has no effect.
	Close()
}

// ErrNoDevice means that no suitable device could be
// found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoDeviceMemory means that device memory could not
// be allocated.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrInvalidCall means that the parameters of a call are
// not valid for the object it was made on.
var ErrInvalidCall = errors.New("driver: invalid call")

// ErrDeviceRemoved means that the device is lost and
// every object created from it must be released.
var ErrDeviceRemoved = errors.New("driver: device removed")

// Status is a platform status code (an HRESULT).
// Implementations return Status values from failed
// calls so that callers can log the exact code.
type Status uint32

// Well-known status codes.
const (
	StatusOK           Status = 0
	StatusFail         Status = 0x80004005
	StatusInvalidArg   Status = 0x80070057
	StatusOutOfMemory  Status = 0x8007000e
	StatusNotImpl      Status = 0x80004001
	StatusRemoved      Status = 0x887a0005
	StatusWasStillDraw Status = 0x887a000a
)

// Error implements error.
func (s Status) Error() string { return fmt.Sprintf("driver: HRESULT 0x%08x", uint32(s)) }

// Failed reports whether s represents a failure.
func (s Status) Failed() bool { return s&0x80000000 != 0 }

// Is maps status codes onto the package's sentinel errors.
func (s Status) Is(target error) bool {
	switch target {
	case ErrNoDeviceMemory:
		return s == StatusOutOfMemory
	case ErrInvalidCall:
		return s == StatusInvalidArg
	case ErrDeviceRemoved:
		return s == StatusRemoved
	}
	return false
}

// Drivers returns the registered Drivers.
// Client code imports specific driver packages, and then
// call this function from init. As such, drivers that do
// not register themselves on init will not be considered
// for selection.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Register registers a Driver.
// Driver implementations are expected to call Register
// exactly once, from an init function.
// If a driver with the same name has already been
// registered, it will be replaced by drv.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			logging.L().Warn("driver replaced", zap.String("name", drv.Name()))
			return
		}
	}
	drivers = append(drivers, drv)
	logging.L().Debug("driver registered", zap.String("name", drv.Name()))
}

// Lookup returns the registered driver with the given
// name, or nil if there is none.
func Lookup(name string) Driver {
	mu.Lock()
	defer mu.Unlock()
	for _, d := range drivers {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Variables used for driver registration.
var (
	mu      sync.Mutex
	drivers []Driver = make([]Driver, 0, 1)
)
