// Package logx wraps zerolog behind a small Logger facade.
//
// The Service owns the sink configuration (console, file, optional
// Telegram relay) and can swap it at runtime without invalidating
// Loggers already handed out: Loggers resolve the current root on every
// call. The zero Logger is a safe no-op.
package logx
