/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	track_test.go: unit tests for the message-driven update pipeline.
*/

package main

import "testing"

// fakeCPRDecoder never succeeds; the scenarios exercised here feed
// already-decoded positions (DirectPosValid) so the CPR arithmetic itself,
// out of scope for this daemon, is never invoked.
type fakeCPRDecoder struct{}

func (fakeCPRDecoder) DecodeGlobal(odd, even CPRFragment) (float64, float64, bool) {
	return 0, 0, false
}
func (fakeCPRDecoder) DecodeLocal(frag CPRFragment, refLat, refLon float64) (float64, float64, bool) {
	return 0, 0, false
}

func newTestPipeline() *Pipeline {
	return NewPipeline(DefaultConfig(), fakeCPRDecoder{})
}

// TestSourcePreemption covers scenario S2.
func TestSourcePreemption(t *testing.T) {
	p := newTestPipeline()

	mlat := &ModeSMessage{
		Addr: 0x1001, Source: SourceMLAT, ReceiverID: 1, Now: 0,
		DirectPosValid: true, DirectLat: 10.0, DirectLon: 20.0,
	}
	adsb := &ModeSMessage{
		Addr: 0x1001, Source: SourceADSB, ReceiverID: 1, Now: 60_000,
		DirectPosValid: true, DirectLat: 10.1, DirectLon: 20.1,
	}

	p.UpdateFromMessage(mlat)
	a := p.UpdateFromMessage(adsb)

	if a.Lat != 10.1 || a.Lon != 20.1 {
		t.Errorf("final position = (%f, %f), want (10.1, 20.1)", a.Lat, a.Lon)
	}
	if a.PositionValid.Source != SourceADSB {
		t.Errorf("position source = %v, want ADSB", a.PositionValid.Source)
	}
}

// TestSpeedCheckReject covers scenario S3.
func TestSpeedCheckReject(t *testing.T) {
	p := newTestPipeline()

	first := &ModeSMessage{
		Addr: 0x2002, Source: SourceADSB, ReceiverID: 1, Now: 0,
		DirectPosValid: true, DirectLat: 50.0, DirectLon: 8.0,
	}
	a := p.UpdateFromMessage(first)
	reliableBefore := a.PosReliableOdd

	// ~20km away, 1s later: requires 20,000 m/s, far beyond any
	// altitude-dependent ceiling.
	second := &ModeSMessage{
		Addr: 0x2002, Source: SourceADSB, ReceiverID: 1, Now: 1000,
		DirectPosValid: true, DirectLat: 50.18, DirectLon: 8.0,
	}
	a = p.UpdateFromMessage(second)

	if a.Lat != 50.0 || a.Lon != 8.0 {
		t.Errorf("rejected update must not move the position, got (%f, %f)", a.Lat, a.Lon)
	}
	if a.PosReliableOdd != reliableBefore-1 {
		t.Errorf("pos_reliable_odd = %f, want %f", a.PosReliableOdd, reliableBefore-1)
	}
}

func TestQuarantinedReceiverMessageDropped(t *testing.T) {
	p := newTestPipeline()
	now := int64(0)
	for i := 0; i < 6; i++ {
		p.Receivers.Bad(7, 1, now)
		now += 100
	}

	mm := &ModeSMessage{Addr: 0x3003, Source: SourceADSB, ReceiverID: 7, Now: now}
	if a := p.UpdateFromMessage(mm); a != nil {
		t.Error("message from a quarantined receiver should be dropped")
	}
	if p.Directory.Get(0x3003) != nil {
		t.Error("a dropped message should not create an aircraft record")
	}
}

func TestValidityGatingRejectsStaleSource(t *testing.T) {
	p := newTestPipeline()

	first := &ModeSMessage{
		Addr: 0x4004, Source: SourceADSB, ReceiverID: 1, Now: 0,
		CallsignValid: true, Callsign: "UAL123",
	}
	p.UpdateFromMessage(first)

	lower := &ModeSMessage{
		Addr: 0x4004, Source: SourceModeS, ReceiverID: 1, Now: 1000,
		CallsignValid: true, Callsign: "CHANGED",
	}
	a := p.UpdateFromMessage(lower)

	if a.Callsign != "UAL123" {
		t.Errorf("callsign = %q, want unchanged %q (lower source while fresh)", a.Callsign, "UAL123")
	}
}

func TestMessageHousekeeping(t *testing.T) {
	p := newTestPipeline()
	mm := &ModeSMessage{Addr: 0x5005, Source: SourceADSB, ReceiverID: 9, Now: 1000, SignalLevel: 0.5}
	a := p.UpdateFromMessage(mm)

	if a.Messages != 1 {
		t.Errorf("messages = %d, want 1", a.Messages)
	}
	if a.Seen != 1000 {
		t.Errorf("seen = %d, want 1000", a.Seen)
	}
	if a.ReceiverIDs[0] != 9 {
		t.Errorf("receiverIds[0] = %d, want 9", a.ReceiverIDs[0])
	}
}
