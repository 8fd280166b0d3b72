// Package report holds the output types a batch run or list query produces,
// and the UpdateHandler callback contract a caller implements to receive
// them as the batch progresses (spec §4.7, §4.9's ListLog counterpart, §9).
package report

import (
	"github.com/reedmace/tendril/internal/action"
	"github.com/reedmace/tendril/internal/fso"
	"github.com/reedmace/tendril/internal/tendril"
)

// ListLog is the read-only counterpart to action.Log produced by a list
// query: the observed types and the resolved remote path, with no result.
type ListLog struct {
	LocalType    *fso.Type
	RemoteType   *fso.Type
	ResolvedPath string
}

// TendrilReport pairs a raw tendril with the outcome of acting on it: either
// a log of type T, or the reason it couldn't even be resolved.
type TendrilReport[T any] struct {
	Raw tendril.RawTendril
	Log T
	Err error
}

// ActionReport is the report type emitted by a pull/push/link/out batch.
type ActionReport = TendrilReport[action.Log]

// ListReport is the report type emitted by a list query.
type ListReport = TendrilReport[ListLog]

// UpdateHandler receives the three categories of progress event a batch run
// emits, in strict order: Count once, then Before/After once per surviving
// tendril.
type UpdateHandler interface {
	Count(n int)
	Before(raw tendril.RawTendril)
	After(r ActionReport)
}

// CallbackUpdater adapts three plain functions into an UpdateHandler, for
// callers that don't want to define a named type (e.g. the CLI, or a test).
type CallbackUpdater struct {
	CountFn  func(n int)
	BeforeFn func(raw tendril.RawTendril)
	AfterFn  func(r ActionReport)
}

func (u CallbackUpdater) Count(n int)                    { u.CountFn(n) }
func (u CallbackUpdater) Before(raw tendril.RawTendril)  { u.BeforeFn(raw) }
func (u CallbackUpdater) After(r ActionReport)           { u.AfterFn(r) }
