// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ctxFields are the request-scoped values Ctx attaches to log lines. They
// travel as one immutable value under a single key.
type ctxFields struct {
	correlationID string
	requestID     string
	session       string
}

type ctxFieldsKey struct{}

func fieldsFrom(ctx context.Context) ctxFields {
	f, _ := ctx.Value(ctxFieldsKey{}).(ctxFields)
	return f
}

func withFields(ctx context.Context, set func(*ctxFields)) context.Context {
	f := fieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, ctxFieldsKey{}, f)
}

// GenerateCorrelationID returns a short id for grepping related lines.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

func GenerateRequestID() string {
	return uuid.NewString()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *ctxFields) { f.correlationID = id })
}

func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *ctxFields) { f.requestID = id })
}

func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// ContextWithSession tags ctx with an exam session token.
func ContextWithSession(ctx context.Context, token string) context.Context {
	return withFields(ctx, func(f *ctxFields) { f.session = token })
}

func SessionFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).session
}

// Ctx returns the global logger annotated with whatever ids ctx carries.
//
//	logging.Ctx(r.Context()).Info().Msg("Exam session entered")
func Ctx(ctx context.Context) *zerolog.Logger {
	f := fieldsFrom(ctx)
	lc := Logger().With()
	for _, kv := range [...][2]string{
		{"correlation_id", f.correlationID},
		{"request_id", f.requestID},
		{"session", f.session},
	} {
		if kv[1] != "" {
			lc = lc.Str(kv[0], kv[1])
		}
	}
	l := lc.Logger()
	return &l
}

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
