// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"errors"
	"fmt"
	"testing"
)

type testDriver string

func (testDriver) Open() (Device, error) { return nil, ErrNoDevice }
func (d testDriver) Name() string        { return string(d) }
func (testDriver) Close()                {}

func TestRegister(t *testing.T) {
	n := len(Drivers())
	Register(testDriver("test-a"))
	Register(testDriver("test-b"))
	Register(testDriver("test-a"))
	drivers := Drivers()
	if len(drivers) != n+2 {
		t.Fatalf("Drivers: len:\nhave %d\nwant %d", len(drivers), n+2)
	}
	for i := range drivers {
		for j := 0; j < i; j++ {
			if drivers[i].Name() == drivers[j].Name() {
				t.Fatal("Drivers: Driver.Name is not unique")
			}
		}
	}
	if d := Lookup("test-b"); d == nil || d.Name() != "test-b" {
		t.Fatalf("Lookup:\nhave %v\nwant test-b", d)
	}
	if d := Lookup("none"); d != nil {
		t.Fatalf("Lookup:\nhave %v\nwant nil", d)
	}
}

func TestStatus(t *testing.T) {
	for _, x := range [...]struct {
		s      Status
		target error
		failed bool
	}{
		{StatusOutOfMemory, ErrNoDeviceMemory, true},
		{StatusInvalidArg, ErrInvalidCall, true},
		{StatusRemoved, ErrDeviceRemoved, true},
		{StatusOK, nil, false},
	} {
		if f := x.s.Failed(); f != x.failed {
			t.Fatalf("Status.Failed(%v):\nhave %t\nwant %t", x.s, f, x.failed)
		}
		if x.target == nil {
			continue
		}
		err := fmt.Errorf("create texture: %w", x.s)
		if !errors.Is(err, x.target) {
			t.Fatalf("errors.Is(%v, %v):\nhave false\nwant true", err, x.target)
		}
		var s Status
		if !errors.As(err, &s) || s != x.s {
			t.Fatalf("errors.As:\nhave %v\nwant %v", s, x.s)
		}
	}
	if s := StatusFail.Error(); s != "driver: HRESULT 0x80004005" {
		t.Fatalf("Status.Error:\nhave %s\nwant driver: HRESULT 0x80004005", s)
	}
}

type obj Handle

func (obj) AddRef()                    {}
func (obj) Release()                   {}
func (obj) ExternallyReferenced() bool { return false }
func (o obj) Handle() Handle           { return Handle(o) }

func TestSame(t *testing.T) {
	if !Same(nil, nil) {
		t.Fatal("Same(nil, nil):\nhave false\nwant true")
	}
	if Same(obj(1), nil) || Same(nil, obj(1)) {
		t.Fatal("Same(obj, nil):\nhave true\nwant false")
	}
	if !Same(obj(2), obj(2)) || Same(obj(2), obj(3)) {
		t.Fatal("Same: wrong result")
	}
}
