// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package logging

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sampler throttles a repeating log event with a token bucket.
//
// Events dropped by the limiter are counted and reported as "suppressed" on
// the next event that gets through. Returned events may be nil; zerolog
// treats calls on a nil *Event as no-ops, so callers can chain unconditionally.
type Sampler struct {
	limiter    *rate.Limiter
	suppressed atomic.Uint64
	logger     *zerolog.Logger
}

// NewSampler allows burst events immediately and then one per interval.
func NewSampler(every time.Duration, burst int) *Sampler {
	if burst < 1 {
		burst = 1
	}
	return &Sampler{
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

// WithLogger makes the sampler emit through l instead of the global logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (s *Sampler) WithLogger(l zerolog.Logger) *Sampler {
	s.logger = &l
	return s
}

// Allow reports whether an event may be emitted now, counting suppressions.
func (s *Sampler) Allow() bool {
	if s.limiter.Allow() {
		return true
	}
	s.suppressed.Add(1)
	return false
}

// Warn returns a warn-level event, or nil when throttled.
func (s *Sampler) Warn() *zerolog.Event {
	if !s.Allow() {
		return nil
	}
	return s.annotate(s.base().Warn())
}

// Error returns an error-level event, or nil when throttled.
func (s *Sampler) Error() *zerolog.Event {
	if !s.Allow() {
		return nil
	}
	return s.annotate(s.base().Error())
}

// Suppressed returns the number of events dropped since the last emitted one.
func (s *Sampler) Suppressed() uint64 {
	return s.suppressed.Load()
}

func (s *Sampler) base() *zerolog.Logger {
	if s.logger != nil {
		return s.logger
	}
	l := Logger()
	return &l
}

func (s *Sampler) annotate(e *zerolog.Event) *zerolog.Event {
	if n := s.suppressed.Swap(0); n > 0 {
		e = e.Uint64("suppressed", n)
	}
	return e
}
