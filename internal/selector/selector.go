// Package selector populates parameter selectors from categorical values
// fetched at startup and on manual refresh.
package selector

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
)

// Definition names the parameter a selector drives and where its options
// come from.
type Definition struct {
	Param   string `json:"param" yaml:"param" doc:"Query parameter the selector sets" example:"version"`
	Column  string `json:"column" yaml:"column" doc:"Column holding the categorical values" example:"version"`
	Table   string `json:"table" yaml:"table" doc:"Table the values are read from"`
	Numeric bool   `json:"numeric,omitempty" yaml:"numeric" doc:"Store the selected option as a number"`
}

// ParamStore is the part of params.Store a selector needs.
type ParamStore interface {
	Get(name string) (any, bool)
	Set(name string, value any)
}

// Result reports what one Refresh did.
type Result struct {
	Options  []string `json:"options" doc:"Options after the refresh"`
	Selected string   `json:"selected,omitempty" doc:"Option auto-selected by this refresh"`
	Stale    bool     `json:"stale,omitempty" doc:"Response was superseded by a newer refresh and discarded"`
	Err      error    `json:"-"`
}

// Selector owns the option list of one parameter.
type Selector struct {
	def     Definition
	fetcher sqlapi.Fetcher
	store   ParamStore
	log     *zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	options  []string
	onUpdate func(param string, options []string)
}

// New returns a selector with no options.
func New(def Definition, fetcher sqlapi.Fetcher, store ParamStore, log *zerolog.Logger) *Selector {
	if log == nil {
		log = logger.Nop()
	}
	return &Selector{def: def, fetcher: fetcher, store: store, log: log}
}

// Definition returns the selector definition.
func (s *Selector) Definition() Definition { return s.def }

// OnUpdate registers fn to run after options are replaced.
func (s *Selector) OnUpdate(fn func(param string, options []string)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Options returns the current options.
func (s *Selector) Options() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.options...)
}

// Refresh fetches the options. Failures, including an empty result, are
// logged and leave the selector empty without selecting anything. A response that a later Refresh has
// superseded is discarded.
func (s *Selector) Refresh(ctx context.Context) Result {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	opts, err := s.fetcher.Distinct(ctx, s.def.Column, s.def.Table)
	if err == nil && len(opts) == 0 {
		err = fmt.Errorf("%s.%s: %w", s.def.Table, s.def.Column, sqlapi.ErrNoRows)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		metrics.IncStaleDiscard(s.def.Param)
		s.log.Debug().Str("param", s.def.Param).Uint64("generation", gen).Msg("discarding superseded options")
		return Result{Options: s.Options(), Stale: true, Err: err}
	}
	if err != nil {
		s.options = nil
		fn := s.onUpdate
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("param", s.def.Param).Str("table", s.def.Table).Msg("populating selector failed")
		if fn != nil {
			fn(s.def.Param, nil)
		}
		return Result{Err: err}
	}
	s.options = append([]string(nil), opts...)
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(s.def.Param, append([]string(nil), opts...))
	}

	res := Result{Options: opts}
	if cur, ok := s.store.Get(s.def.Param); !ok || !contains(opts, fmt.Sprint(cur)) {
		res.Selected = opts[0]
		s.store.Set(s.def.Param, s.value(opts[0]))
	}
	return res
}

// Select sets the parameter to option if it is one of the current options.
func (s *Selector) Select(option string) error {
	if !contains(s.Options(), option) {
		return fmt.Errorf("%q is not an option for %s", option, s.def.Param)
	}
	s.store.Set(s.def.Param, s.value(option))
	return nil
}

func (s *Selector) value(option string) any {
	if !s.def.Numeric {
		return option
	}
	f, err := strconv.ParseFloat(option, 64)
	if err != nil {
		return option
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
