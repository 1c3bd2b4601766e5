// Package cmllog backs the cml.Logger interface with go.uber.org/zap,
// the structured logger the teacher ecosystem depends on throughout
// its modules.
package cmllog

import (
	"go.uber.org/zap"
)

// Zap adapts a *zap.SugaredLogger to cml.Logger without this package
// importing cml (cml.Logger is a plain method-set interface, so no
// import is needed for Zap to satisfy it structurally).
type Zap struct {
	sugar *zap.SugaredLogger
}

// New wraps l for use as a cml.Logger.
func New(l *zap.Logger) *Zap {
	return &Zap{sugar: l.Sugar()}
}

// NewProduction builds a production zap.Logger (JSON encoding, info
// level and above) and wraps it.
func NewProduction() (*Zap, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

func (z *Zap) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *Zap) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }
func (z *Zap) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *Zap) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
