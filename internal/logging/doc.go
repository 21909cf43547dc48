// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

// Package logging provides centralized zerolog-based structured logging for Proctorlens.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("session", token).Msg("Attention monitoring started")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Inference request failed")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Adapters
//
//   - NewSlogLogger: slog.Logger backed by zerolog (used by sutureslog)
//   - NewWatermillAdapter: watermill.LoggerAdapter backed by zerolog
//
// # Sampling
//
// The attention pipeline fails per tick when the inference endpoint is down.
// Sampler throttles those repeated warnings so one dead endpoint does not
// produce one log line per second per session:
//
//	s := logging.NewSampler(10*time.Second, 1)
//	if e := s.Warn(); e != nil {
//	    e.Err(err).Msg("Inference request failed")
//	}
package logging
