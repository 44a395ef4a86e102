// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package logging holds the logger shared by every
// package of the module.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() { logger.Store(zap.NewNop()) }

// L returns the current logger.
// It never returns nil.
func L() *zap.Logger { return logger.Load() }

// Set replaces the current logger.
// A nil l restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Named returns a child of the current logger.
// The child is not updated by later calls to Set.
func Named(name string) *zap.Logger { return L().Named(name) }
