/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	bincraft_test.go: unit tests for the binary snapshot projection.
*/

package main

import "testing"

// TestSnapshotIdempotence covers property 8: ToBinCraft is a pure function
// of (aircraft, now) and repeated calls at the same instant agree exactly.
func TestSnapshotIdempotence(t *testing.T) {
	a := newAircraft(0x6006, 0)
	a.Lat, a.Lon = 48.1, 11.5
	a.PositionValid.update(1000, SourceADSB)
	a.PosReliableOdd, a.PosReliableEven = 4, 4
	a.BaroAlt = 35000
	a.BaroAltValid.update(1000, SourceADSB)
	a.AltReliable = 4
	a.GS = 450
	a.GSValid.update(1000, SourceADSB)

	db := NewDB()
	now := int64(2000)

	first := ToBinCraft(a, db, now, 3, true)
	second := ToBinCraft(a, db, now, 3, true)

	if *first != *second {
		t.Errorf("ToBinCraft is not idempotent:\n%+v\n%+v", *first, *second)
	}
	if !first.PositionValid || first.Lat != 48100000 || first.Lon != 11500000 {
		t.Errorf("position = (%d,%d) valid=%v, want (48100000,11500000) valid=true",
			first.Lat, first.Lon, first.PositionValid)
	}
	if !first.BaroAltValid || first.BaroAlt != 1400 {
		t.Errorf("baroAlt = %d valid=%v, want 1400 (35000/25)", first.BaroAlt, first.BaroAltValid)
	}
	if !first.GSValid || first.GS != 4500 {
		t.Errorf("gs = %d valid=%v, want 4500 (450*10)", first.GS, first.GSValid)
	}
}

// TestSnapshotPositionFallback covers scenario S6: once the live position
// goes unreliable, the snapshot falls back to the latReliable/lonReliable
// pair recorded at seenPosReliable, as long as that's within 14 days.
func TestSnapshotPositionFallback(t *testing.T) {
	a := newAircraft(0x7007, 0)
	a.LatReliable, a.LonReliable = 52.5, 13.4
	a.SeenPosReliable = 1_000_000
	a.PosNICReliable, a.PosRcReliable = 8, 186
	// PositionValid stays SourceInvalid: posReliable() is false.

	b := ToBinCraft(a, nil, 1_000_000+60_000, 3, false)

	if b.PositionValid {
		t.Fatal("position_valid should be false when the live source is invalid")
	}
	if b.Lat != 52500000 || b.Lon != 13400000 {
		t.Errorf("fallback position = (%d,%d), want (52500000,13400000)", b.Lat, b.Lon)
	}
	if b.PosNIC != 8 || b.PosRc != 186 {
		t.Errorf("fallback nic/rc = (%d,%d), want (8,186)", b.PosNIC, b.PosRc)
	}
}

// TestSnapshotPositionFallbackExpires checks the 14-day cutoff: once that
// long has passed since seenPosReliable, the snapshot carries no position.
func TestSnapshotPositionFallbackExpires(t *testing.T) {
	a := newAircraft(0x7008, 0)
	a.LatReliable, a.LonReliable = 52.5, 13.4
	a.SeenPosReliable = 0

	b := ToBinCraft(a, nil, fourteenDaysMs+1, 3, false)

	if b.PositionValid || b.Lat != 0 || b.Lon != 0 {
		t.Errorf("position should be absent past the 14-day cutoff, got valid=%v (%d,%d)",
			b.PositionValid, b.Lat, b.Lon)
	}
}

func TestSnapshotVersionUnknownConvention(t *testing.T) {
	a := newAircraft(0x8008, 0) // ADSBVersion/ADSRVersion/TISBVersion default to -1
	b := ToBinCraft(a, nil, 0, 3, false)

	if b.ADSBVersion != 15 || b.ADSRVersion != 15 || b.TISBVersion != 15 {
		t.Errorf("unset versions = (%d,%d,%d), want (15,15,15)", b.ADSBVersion, b.ADSRVersion, b.TISBVersion)
	}
}

func TestSnapshotReceiverCountBySource(t *testing.T) {
	a := newAircraft(0x9009, 0)
	a.PositionValid.update(0, SourceMLAT)
	a.ReceiverCountMlat = 3

	b := ToBinCraft(a, nil, 0, 3, true)
	if b.ReceiverCount != 3 {
		t.Errorf("receiverCount = %d, want 3 (mlat)", b.ReceiverCount)
	}

	a.PositionValid.update(0, SourceTISB)
	a.pushReceiverID(11)
	a.pushReceiverID(12)
	a.pushReceiverID(11)
	b = ToBinCraft(a, nil, 0, 3, true)
	if b.ReceiverCount != 2 {
		t.Errorf("receiverCount = %d, want 2 distinct tisb ids", b.ReceiverCount)
	}

	a.PositionValid.update(0, SourceModeS)
	b = ToBinCraft(a, nil, 0, 3, true)
	if b.ReceiverCount != 1 {
		t.Errorf("receiverCount = %d, want default 1", b.ReceiverCount)
	}
}
