// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdbackpack

import (
	"fmt"
	"reflect"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// The driver owns its expander exclusively: all writes must flow through
// one instance or the controller's nibble phase is corrupted. Go can't
// express a move-only handle, so ownership is enforced at runtime with a
// claim registry keyed on bus identity and address. New claims, Halt
// releases.

type claimKey struct {
	bus  any
	addr uint16
}

// Most buses are pointers and compare by identity. A bus implemented by a
// non-comparable type would panic as a map key, so those are keyed by name
// instead.
func keyFor(bus i2c.Bus, addr uint16) claimKey {
	if t := reflect.TypeOf(bus); t != nil && !t.Comparable() {
		return claimKey{bus: "name:" + bus.String(), addr: addr}
	}
	return claimKey{bus: bus, addr: addr}
}

var (
	claimsMu sync.Mutex
	claims   = map[claimKey]struct{}{}
)

func claim(bus i2c.Bus, addr uint16) error {
	claimsMu.Lock()
	defer claimsMu.Unlock()
	k := keyFor(bus, addr)
	if _, ok := claims[k]; ok {
		return fmt.Errorf("device at %#x on %s is already claimed", addr, bus)
	}
	claims[k] = struct{}{}
	return nil
}

func release(bus i2c.Bus, addr uint16) {
	claimsMu.Lock()
	defer claimsMu.Unlock()
	delete(claims, keyFor(bus, addr))
}
