// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package slog implements log.StructuredLogger on top of the standard log/slog package.
// Records use the timestamp, severity and message keys.
package slog

import (
	"context"
	"io"
	"log/slog"
	"os"

	flog "github.com/saucelabs/proxydemo/log"
)

func Default() *Logger {
	return New(flog.DefaultConfig())
}

func Debug() *Logger {
	return New(&flog.Config{Level: flog.DebugLevel})
}

var _ flog.StructuredLogger = &Logger{}

type Option func(*Logger)

type Logger struct {
	log     *slog.Logger
	file    *os.File
	name    string
	onError func(name string)
}

// New creates a logger writing to cfg.File, or to stdout if the file is nil.
// The client command passes a stderr writer to NewWithWriter so that stdout only carries the response.
func New(cfg *flog.Config, opts ...Option) *Logger {
	var w io.Writer = os.Stdout
	if cfg.File != nil {
		w = cfg.File
	}
	return NewWithWriter(w, cfg, opts...)
}

func NewWithWriter(w io.Writer, cfg *flog.Config, opts ...Option) *Logger {
	hops := &slog.HandlerOptions{Level: flogToSlogLevel(cfg.Level), ReplaceAttr: replaceSLAttr}
	var handler slog.Handler
	if cfg.Format == flog.JSONFormat {
		handler = slog.NewJSONHandler(w, hops)
	} else {
		handler = slog.NewTextHandler(w, hops)
	}

	l := &Logger{
		log:  slog.New(handler),
		file: cfg.File,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Logger) Handler() slog.Handler {
	return l.log.Handler()
}

func (l *Logger) Error(msg string, args ...any) {
	l.countError()
	l.log.Error(msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.countError()
	l.log.ErrorContext(ctx, msg, args...)
}

func (l *Logger) countError() {
	if l.onError != nil {
		l.onError(l.name)
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log.WarnContext(ctx, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log.InfoContext(ctx, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log.DebugContext(ctx, msg, args...)
}

func (l *Logger) With(args ...any) flog.StructuredLogger {
	c := *l
	c.log = c.log.With(args...)
	return &c
}

func (l *Logger) Named(name string) *Logger {
	c := *l
	c.name = name
	c.log = c.log.With("name", name)
	return &c
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

var slogLevels = map[flog.Level]slog.Level{
	flog.ErrorLevel: slog.LevelError,
	flog.WarnLevel:  slog.LevelWarn,
	flog.InfoLevel:  slog.LevelInfo,
	flog.DebugLevel: slog.LevelDebug,
}

func flogToSlogLevel(level flog.Level) slog.Level {
	if l, ok := slogLevels[level]; ok {
		return l
	}
	return slog.Level(level)
}

var attrKeys = map[string]string{
	slog.TimeKey:    "timestamp",
	slog.LevelKey:   "severity",
	slog.MessageKey: "message",
}

func replaceSLAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	if k, ok := attrKeys[a.Key]; ok {
		a.Key = k
	}
	return a
}
