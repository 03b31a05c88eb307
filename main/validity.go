/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	validity.go: per-field data validity / freshness state machine.
	Grounded on original_source/track.h's data_validity struct and
	updateValidity()/trackDataValid()/trackVState() inline functions.
*/

package main

import "time"

const (
	trackStale       = 15 * time.Second
	trackExpire      = 60 * time.Second
	trackExpireLong  = 180 * time.Second
	trackExpireJaero = 33 * time.Minute
	trackExpireRough = 2 * time.Minute
)

// DataValidity tracks the freshness and provenance of a single observable
// field on an Aircraft. The zero value is SourceInvalid/never-updated,
// which is the correct state for a freshly created aircraft record.
type DataValidity struct {
	Updated           int64 // ms epoch
	NextReduceForward int64 // ms epoch
	Source            Source
	LastSource        Source
	Stale             bool
}

// Valid reports whether the field currently carries a usable value.
func (v *DataValidity) Valid() bool {
	return v.Source != SourceInvalid
}

// Age returns how long ago (in ms) the field was last updated, clamped to
// zero for updates that are (clock-skew) in the future.
func (v *DataValidity) Age(now int64) int64 {
	if v.Updated >= now {
		return 0
	}
	return now - v.Updated
}

// update unconditionally accepts a new value's provenance, recording the
// previous source as LastSource and marking the field fresh.
func (v *DataValidity) update(now int64, source Source) {
	v.LastSource = v.Source
	v.Source = source
	v.Updated = now
	v.Stale = false
}

// accepts reports whether a proposed update from the given source arriving
// at time `now` should be accepted given the field's current state,
// without mutating it. Implements §4.2 step 3 of the update pipeline:
// invalid/stale accepts unconditionally, fresh requires source >= current.
func (v *DataValidity) accepts(now int64, source Source) bool {
	if source == SourceInvalid {
		return false
	}
	if v.Source == SourceInvalid {
		return true
	}
	if now-v.Updated > trackStale.Milliseconds() {
		return true
	}
	return source >= v.Source
}

// MaybeUpdate applies the acceptance rule and, if accepted, updates the
// validity record. Returns whether the update was accepted.
func (v *DataValidity) MaybeUpdate(now int64, source Source) bool {
	if !v.accepts(now, source) {
		return false
	}
	v.update(now, source)
	return true
}

// expirationTimeout returns the timeout that drives a field with the given
// source to SOURCE_INVALID: trackExpireJaero for JAERO, trackExpireRough
// for INDIRECT when "rough receiver location" debugging is enabled, and
// trackExpire otherwise.
func expirationTimeout(source Source, debugRoughReceiverLocation bool) time.Duration {
	switch {
	case source == SourceJAERO:
		return trackExpireJaero
	case source == SourceIndirect && debugRoughReceiverLocation:
		return trackExpireRough
	default:
		return trackExpire
	}
}

// updateValidity drives a single field's fresh -> stale -> expired state
// machine forward to `now`, given the caller-supplied default expiration
// timeout (TRACK_EXPIRE or TRACK_EXPIRE_LONG for slow fields). Mirrors
// updateValidity() in track.h exactly, including its early return for an
// already-invalid field (an invalid field never generates a stale flip).
func updateValidity(v *DataValidity, now int64, expirationTimeout time.Duration, debugRoughReceiverLocation bool) {
	if v.Source == SourceInvalid {
		return
	}
	stale := now-v.Updated > trackStale.Milliseconds()
	if stale != v.Stale {
		v.Stale = stale
	}

	switch {
	case v.Source == SourceJAERO:
		if now > v.Updated+trackExpireJaero.Milliseconds() {
			v.Source = SourceInvalid
		}
	case v.Source == SourceIndirect && debugRoughReceiverLocation:
		if now > v.Updated+trackExpireRough.Milliseconds() {
			v.Source = SourceInvalid
		}
	default:
		if now > v.Updated+expirationTimeout.Milliseconds() {
			v.Source = SourceInvalid
		}
	}
}

// trackVState reports whether a field should still be considered valid for
// trace/trail purposes: fields paired with a low-quality position source
// (JAERO or worse) keep their normal expiration, but fields paired with a
// good position source get a tighter 35s cutoff (trace points shouldn't
// carry long-stale secondary fields next to a fresh position).
func trackVState(now int64, v *DataValidity, posValid *DataValidity) bool {
	if posValid.Source <= SourceJAERO {
		return v.Source != SourceInvalid
	}
	return v.Source != SourceInvalid && now < v.Updated+(35*time.Second).Milliseconds()
}
