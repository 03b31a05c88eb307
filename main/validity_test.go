/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	validity_test.go: unit tests for the data-validity state machine.
*/

package main

import (
	"testing"
	"time"
)

func ms(d time.Duration) int64 { return d.Milliseconds() }

// TestValidityMonotonicity verifies property 3: a lower-source update
// arriving while a field is fresh with a higher source is rejected.
func TestValidityMonotonicity(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)

	if !v.MaybeUpdate(now, SourceADSB) {
		t.Fatal("first update into an invalid field must be accepted")
	}

	later := now + ms(5*time.Second) // still fresh (< 15s)
	if v.MaybeUpdate(later, SourceMLAT) {
		t.Error("lower-source update while fresh must be rejected")
	}
	if v.Source != SourceADSB {
		t.Errorf("source changed to %v despite rejection", v.Source)
	}
}

// TestValiditySourcePreemption verifies property 4: once stale, any
// non-invalid source is accepted and the field returns to fresh.
func TestValiditySourcePreemption(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)
	v.MaybeUpdate(now, SourceADSB)

	stale := now + ms(20*time.Second) // beyond TRACK_STALE
	if !v.MaybeUpdate(stale, SourceMLAT) {
		t.Fatal("any non-invalid source must be accepted once stale")
	}
	if v.Source != SourceMLAT {
		t.Errorf("source = %v, want MLAT", v.Source)
	}
	if v.Stale {
		t.Error("field should be fresh immediately after a new update")
	}
}

func TestValidityEqualSourceFresherTimestampWins(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)
	v.MaybeUpdate(now, SourceModeS)

	if !v.MaybeUpdate(now+100, SourceModeS) {
		t.Error("equal source must be accepted on a fresher timestamp")
	}
	if v.Updated != now+100 {
		t.Errorf("Updated = %d, want %d", v.Updated, now+100)
	}
}

func TestUpdateValidityExpiresDefault(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)
	v.MaybeUpdate(now, SourceModeS)

	expired := now + ms(trackExpire) + 1
	updateValidity(&v, expired, trackExpire, false)
	if v.Source != SourceInvalid {
		t.Errorf("field should have expired, source = %v", v.Source)
	}
}

func TestUpdateValidityJaeroUsesLongTimeout(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)
	v.MaybeUpdate(now, SourceJAERO)

	// well past the default TRACK_EXPIRE but short of TRACK_EXPIRE_JAERO
	short := now + ms(trackExpire) + 1
	updateValidity(&v, short, trackExpire, false)
	if v.Source != SourceJAERO {
		t.Errorf("JAERO field expired early, source = %v", v.Source)
	}

	long := now + ms(trackExpireJaero) + 1
	updateValidity(&v, long, trackExpire, false)
	if v.Source != SourceInvalid {
		t.Errorf("JAERO field should have expired by trackExpireJaero, source = %v", v.Source)
	}
}

func TestUpdateValidityIndirectRoughTimeout(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)
	v.MaybeUpdate(now, SourceIndirect)

	within := now + ms(trackExpireRough) - 1
	updateValidity(&v, within, trackExpire, true)
	if v.Source != SourceIndirect {
		t.Error("indirect field expired before TRACK_EXPIRE_ROUGH")
	}

	beyond := now + ms(trackExpireRough) + 1
	updateValidity(&v, beyond, trackExpire, true)
	if v.Source != SourceInvalid {
		t.Error("indirect field should have expired past TRACK_EXPIRE_ROUGH")
	}
}

func TestUpdateValidityAlreadyInvalidIsNoop(t *testing.T) {
	v := DataValidity{Source: SourceInvalid, Stale: true}
	updateValidity(&v, 99999, trackExpire, false)
	if v.Source != SourceInvalid || !v.Stale {
		t.Error("updateValidity must not touch an already-invalid field")
	}
}

func TestValidityStaleFlag(t *testing.T) {
	var v DataValidity
	now := int64(1_000_000)
	v.MaybeUpdate(now, SourceADSB)

	fresh := now + ms(10*time.Second)
	updateValidity(&v, fresh, trackExpire, false)
	if v.Stale {
		t.Error("field should not be stale within TRACK_STALE")
	}

	stale := now + ms(20*time.Second)
	updateValidity(&v, stale, trackExpire, false)
	if !v.Stale {
		t.Error("field should be stale beyond TRACK_STALE")
	}
}
