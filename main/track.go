/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	track.go: the message-driven update pipeline. Grounded on
	original_source/track.h's trackUpdateFromMessage() declaration and
	its data_validity/cpr_odd_valid/cpr_even_valid fields; the CPR
	decode arithmetic itself is an external collaborator (§1 Non-goals)
	reached through the CPRDecoder interface below.
*/

package main

import (
	"github.com/asenci/readsb/common"
)

// CPRDecoder resolves a paired or isolated CPR fragment into a lat/lon.
// The demodulator/CPR math that implements this lives outside the
// tracker; tests supply a fake satisfying this contract.
type CPRDecoder interface {
	// DecodeGlobal pairs an odd and even fragment (from the same aircraft,
	// compatible surface/airborne types) into an unambiguous position.
	DecodeGlobal(odd, even CPRFragment) (lat, lon float64, ok bool)
	// DecodeLocal resolves a single fragment relative to a known reference
	// position (the aircraft's own last position, or a receiver's rough
	// coverage-box center).
	DecodeLocal(frag CPRFragment, refLat, refLon float64) (lat, lon float64, ok bool)
}

const (
	localPositionRelWindow = 30_000 // ms, §4.2's "now - seenPosReliable < ~30s"
)

// Pipeline bundles the collaborators trackUpdateFromMessage threads
// together, replacing the original's process-wide Modes singleton (§9).
type Pipeline struct {
	Directory *Directory
	Receivers *ReceiverTable
	Config    *Config
	Decoder   CPRDecoder

	// Metrics is nil-safe: tests and other callers that build a Pipeline
	// directly (NewPipeline leaves it unset) simply skip instrumentation.
	Metrics *Metrics
}

// NewPipeline constructs a pipeline over fresh directory/receiver tables.
func NewPipeline(cfg *Config, decoder CPRDecoder) *Pipeline {
	return &Pipeline{
		Directory: NewDirectory(),
		Receivers: NewReceiverTable(),
		Config:    cfg,
		Decoder:   decoder,
	}
}

// UpdateFromMessage is trackUpdateFromMessage(): resolves the receiver and
// aircraft, applies per-field validity gating, attempts a CPR decode and
// speed check, and updates housekeeping counters. Returns the aircraft
// record touched (nil if the message was dropped outright).
func (p *Pipeline) UpdateFromMessage(mm *ModeSMessage) *Aircraft {
	now := mm.Now

	if mm.ReceiverID != 0 && p.Receivers.CheckBad(mm.ReceiverID, now) {
		// Quarantined: message is dropped rather than allowed to feed
		// reliability counters (§4.2 step 1, §3.3 invariant).
		if p.Metrics != nil {
			p.Metrics.Messages.WithLabelValues(OutcomeRejectedQuarantinedRecv).Inc()
		}
		return nil
	}

	a := p.Directory.GetOrCreate(mm.Addr, now)

	p.applyIdentity(a, mm, now)
	p.applyKinematics(a, mm, now)
	p.applyIntent(a, mm, now)
	p.applyQuality(a, mm, now)

	switch {
	case mm.CPRValid:
		p.applyCPR(a, mm, now)
	case mm.DirectPosValid:
		p.applyDirectPosition(a, mm, now)
	}

	a.Seen = now
	a.Messages++
	if mm.SignalLevel > 0 {
		a.pushSignal(mm.SignalLevel)
	}
	if mm.ReceiverID != 0 {
		a.pushReceiverID(mm.ReceiverID)
		if mm.Source == SourceMLAT {
			a.ReceiverCountMlat++
		}
	}

	if p.Metrics != nil {
		p.Metrics.Messages.WithLabelValues(OutcomeAccepted).Inc()
	}

	return a
}

func (p *Pipeline) applyIdentity(a *Aircraft, mm *ModeSMessage, now int64) {
	if mm.AddrType != AddrUnknown && mm.AddrType > a.AddrType {
		a.AddrType = mm.AddrType
		a.AddrTypeUpdated = now
	}
	if mm.CallsignValid && a.CallsignValid.accepts(now, mm.Source) {
		a.Callsign = string(common.Sanitize([]byte(mm.Callsign)))
		a.CallsignValid.update(now, mm.Source)
	}
	if mm.SquawkValid && a.SquawkValid.accepts(now, mm.Source) {
		if mm.Squawk == a.SquawkTentative {
			a.Squawk = mm.Squawk
			a.SquawkValid.update(now, mm.Source)
		} else {
			a.SquawkTentative = mm.Squawk
		}
	}
}

func (p *Pipeline) applyKinematics(a *Aircraft, mm *ModeSMessage, now int64) {
	if mm.BaroAltValid && a.BaroAltValid.accepts(now, mm.Source) {
		a.BaroAlt = mm.BaroAlt
		a.BaroAltValid.update(now, mm.Source)
		a.AltReliable++
	}
	if mm.GeomAltValid && a.GeomAltValid.accepts(now, mm.Source) {
		a.GeomAlt = mm.GeomAlt
		a.GeomAltValid.update(now, mm.Source)
	}
	if mm.BaroRateValid && a.BaroRateValid.accepts(now, mm.Source) {
		a.BaroRate = mm.BaroRate
		a.BaroRateValid.update(now, mm.Source)
	}
	if mm.GeomRateValid && a.GeomRateValid.accepts(now, mm.Source) {
		a.GeomRate = mm.GeomRate
		a.GeomRateValid.update(now, mm.Source)
	}
	if mm.GSValid && a.GSValid.accepts(now, mm.Source) {
		a.GS = mm.GS
		a.GSValid.update(now, mm.Source)
	}
	if mm.IASValid && a.IASValid.accepts(now, mm.Source) {
		a.IAS = mm.IAS
		a.IASValid.update(now, mm.Source)
	}
	if mm.TASValid && a.TASValid.accepts(now, mm.Source) {
		a.TAS = mm.TAS
		a.TASValid.update(now, mm.Source)
	}
	if mm.MachValid && a.MachValid.accepts(now, mm.Source) {
		a.Mach = mm.Mach
		a.MachValid.update(now, mm.Source)
	}
	if mm.TrackValid && a.TrackValid.accepts(now, mm.Source) {
		a.Track = mm.Track
		a.TrackValid.update(now, mm.Source)
	}
	if mm.TrackRateValid && a.TrackRateValid.accepts(now, mm.Source) {
		a.TrackRate = mm.TrackRate
		a.TrackRateValid.update(now, mm.Source)
	}
	if mm.RollValid && a.RollValid.accepts(now, mm.Source) {
		a.Roll = mm.Roll
		a.RollValid.update(now, mm.Source)
	}
	if mm.MagHeadingValid && a.MagHeadingValid.accepts(now, mm.Source) {
		a.MagHeading = mm.MagHeading
		a.MagHeadingValid.update(now, mm.Source)
	}
	if mm.TrueHeadingValid && a.TrueHeadingValid.accepts(now, mm.Source) {
		a.TrueHeading = mm.TrueHeading
		a.TrueHeadingValid.update(now, mm.Source)
	}
}

func (p *Pipeline) applyIntent(a *Aircraft, mm *ModeSMessage, now int64) {
	if mm.NavAltitudeMCPValid && a.NavAltitudeMCPValid.accepts(now, mm.Source) {
		a.NavAltitudeMCP = mm.NavAltitudeMCP
		a.NavAltitudeMCPValid.update(now, mm.Source)
	}
	if mm.NavAltitudeFMSValid && a.NavAltitudeFMSValid.accepts(now, mm.Source) {
		a.NavAltitudeFMS = mm.NavAltitudeFMS
		a.NavAltitudeFMSValid.update(now, mm.Source)
	}
	if mm.NavQNHValid && a.NavQNHValid.accepts(now, mm.Source) {
		a.NavQNH = mm.NavQNH
		a.NavQNHValid.update(now, mm.Source)
	}
	if mm.NavHeadingValid && a.NavHeadingValid.accepts(now, mm.Source) {
		a.NavHeading = mm.NavHeading
		a.NavHeadingValid.update(now, mm.Source)
	}
	if mm.NavModesValid && a.NavModesValid.accepts(now, mm.Source) {
		a.NavModesValue = mm.NavModesValue
		a.NavModesValid.update(now, mm.Source)
	}
	if mm.NavAltitudeSrcValid && a.NavAltitudeSrcValid.accepts(now, mm.Source) {
		a.NavAltitudeSrc = mm.NavAltitudeSrc
		a.NavAltitudeSrcValid.update(now, mm.Source)
	}
}

func (p *Pipeline) applyQuality(a *Aircraft, mm *ModeSMessage, now int64) {
	if mm.NICaValid && a.NicAValid.accepts(now, mm.Source) {
		a.NICa = mm.NICa
		a.NicAValid.update(now, mm.Source)
	}
	if mm.NICcValid && a.NicCValid.accepts(now, mm.Source) {
		a.NICc = mm.NICc
		a.NicCValid.update(now, mm.Source)
	}
	if mm.NICbaroValid && a.NicBaroValid.accepts(now, mm.Source) {
		a.NICbaro = mm.NICbaro
		a.NicBaroValid.update(now, mm.Source)
	}
	if mm.NACpValid && a.NacPValid.accepts(now, mm.Source) {
		a.NACp = mm.NACp
		a.NacPValid.update(now, mm.Source)
	}
	if mm.NACvValid && a.NacVValid.accepts(now, mm.Source) {
		a.NACv = mm.NACv
		a.NacVValid.update(now, mm.Source)
	}
	if mm.SILValid && a.SilValid.accepts(now, mm.Source) {
		a.SIL = mm.SIL
		a.SILType = mm.SILType
		a.SilValid.update(now, mm.Source)
	}
	if mm.GVAValid && a.GvaValid.accepts(now, mm.Source) {
		a.GVA = mm.GVA
		a.GvaValid.update(now, mm.Source)
	}
	if mm.SDAValid && a.SdaValid.accepts(now, mm.Source) {
		a.SDA = mm.SDA
		a.SdaValid.update(now, mm.Source)
	}
	if mm.AirGroundValid && a.AirGroundValid.accepts(now, mm.Source) {
		a.AirGroundValue = mm.AirGroundValue
		a.AirGroundValid.update(now, mm.Source)
	}
	if mm.EmergencyValid && a.EmergencyValid.accepts(now, mm.Source) {
		a.Emergency = mm.Emergency
		a.EmergencyValid.update(now, mm.Source)
	}
	if mm.AlertValid && a.AlertValid.accepts(now, mm.Source) {
		a.Alert = mm.Alert
		a.AlertValid.update(now, mm.Source)
	}
	if mm.SPIValid && a.SPIValid.accepts(now, mm.Source) {
		a.SPI = mm.SPI
		a.SPIValid.update(now, mm.Source)
	}
	if mm.ADSBVersion >= 0 {
		a.ADSBVersion = mm.ADSBVersion
	}
	if mm.ADSRVersion >= 0 {
		a.ADSRVersion = mm.ADSRVersion
	}
	if mm.TISBVersion >= 0 {
		a.TISBVersion = mm.TISBVersion
	}
	if mm.Category != 0 {
		a.Category = mm.Category
		a.CategoryUpdated = now
	}
}

// applyCPR is §4.2 step 4: store the fragment, attempt a global decode
// against the opposite parity, fall back to a local decode, and run the
// speed check on whatever position resulted.
func (p *Pipeline) applyCPR(a *Aircraft, mm *ModeSMessage, now int64) {
	frag := CPRFragment{
		Lat: mm.CPRLat, Lon: mm.CPRLon,
		NIC: mm.CPRNIC, Rc: mm.CPRRc,
		Surface:    mm.CPRType == CPRSurface,
		Timestamp:  now,
		ReceiverID: mm.ReceiverID,
		Type:       mm.CPRType,
	}

	if mm.CPROdd {
		if !a.CPROddValid.accepts(now, mm.Source) {
			if p.Metrics != nil {
				p.Metrics.Messages.WithLabelValues(OutcomeRejectedStaleSource).Inc()
			}
			return
		}
		a.CPROdd = frag
		a.CPROddValid.update(now, mm.Source)
	} else {
		if !a.CPREvenValid.accepts(now, mm.Source) {
			if p.Metrics != nil {
				p.Metrics.Messages.WithLabelValues(OutcomeRejectedStaleSource).Inc()
			}
			return
		}
		a.CPREven = frag
		a.CPREvenValid.update(now, mm.Source)
	}
	a.LastCPRType = mm.CPRType

	lat, lon, ok := p.decodePosition(a, mm, now)
	if !ok {
		return
	}

	if !p.speedCheck(a, lat, lon, now) {
		if p.Metrics != nil {
			p.Metrics.Messages.WithLabelValues(OutcomeRejectedSpeedCheck).Inc()
		}
		a.bumpReliability(p.Config.PositionPersistence, -1, -1)
		a.pushDiscarded(Discarded{CPRLat: mm.CPRLat, CPRLon: mm.CPRLon, Timestamp: now, ReceiverID: mm.ReceiverID})
		return
	}

	a.SeenPosGlobal = now
	p.acceptPosition(a, mm, lat, lon, now, deltaFor(mm.CPROdd, true), deltaFor(mm.CPROdd, false))
}

// applyDirectPosition handles feeds (MLAT, JAERO) that hand over an
// already-resolved lat/lon with no CPR pairing required: still subject to
// the speed check and the same reliability/coverage bookkeeping.
func (p *Pipeline) applyDirectPosition(a *Aircraft, mm *ModeSMessage, now int64) {
	if !a.PositionValid.accepts(now, mm.Source) {
		if p.Metrics != nil {
			p.Metrics.Messages.WithLabelValues(OutcomeRejectedStaleSource).Inc()
		}
		return
	}
	lat, lon := mm.DirectLat, mm.DirectLon
	if !p.speedCheck(a, lat, lon, now) {
		if p.Metrics != nil {
			p.Metrics.Messages.WithLabelValues(OutcomeRejectedSpeedCheck).Inc()
		}
		a.bumpReliability(p.Config.PositionPersistence, -1, -1)
		a.pushDiscarded(Discarded{Timestamp: now, ReceiverID: mm.ReceiverID})
		return
	}
	p.acceptPosition(a, mm, lat, lon, now, 1, 1)
}

// acceptPosition commits a speed-check-passed position: the position that
// speedCheck just validated against becomes (prev_lat, prev_lon,
// prev_pos_time) for the *next* call, updates validity/housekeeping, bumps
// the reliability counters, and (for ADS-B) feeds the receiver coverage
// engine. Shared by the CPR and direct-position paths.
func (p *Pipeline) acceptPosition(a *Aircraft, mm *ModeSMessage, lat, lon float64, now int64, deltaOdd, deltaEven float32) {
	if a.PositionValid.Valid() {
		a.PrevLat, a.PrevLon = a.Lat, a.Lon
		a.PrevPosTime = a.SeenPos
	}

	a.Lat, a.Lon = lat, lon
	a.PositionValid.update(now, mm.Source)
	a.SeenPos = now

	a.bumpReliability(p.Config.PositionPersistence, deltaOdd, deltaEven)

	if a.posReliable(p.Config.JSONReliable) {
		a.LatReliable, a.LonReliable = lat, lon
		a.SeenPosReliable = now
	}

	if mm.Source == SourceADSB && mm.ReceiverID != 0 {
		receiverPositionReceived(p.Receivers, a, mm, lat, lon, now, p.Config.reliabilityRequired())
	}
	a.LastPosReceiverID = mm.ReceiverID
}

// deltaFor returns the +1/0 reliability bump for the parity that produced
// this fragment: only the parity that was just confirmed gains a point.
func deltaFor(odd bool, wantOdd bool) float32 {
	if odd == wantOdd {
		return 1
	}
	return 0
}

// decodePosition tries a global pairing first, then a local decode
// relative to the aircraft's own current position (only while its last
// reliable fix is under ~30s old) or (failing that) its receiver's rough
// coverage-box reference, per §4.2's ordering.
func (p *Pipeline) decodePosition(a *Aircraft, mm *ModeSMessage, now int64) (lat, lon float64, ok bool) {
	if p.Decoder == nil {
		return 0, 0, false
	}

	oddSurface := a.CPROdd.Type == CPRSurface
	evenSurface := a.CPREven.Type == CPRSurface
	bothFresh := a.CPROddValid.Valid() && a.CPREvenValid.Valid() &&
		now-a.CPROddValid.Updated <= trackStale.Milliseconds() &&
		now-a.CPREvenValid.Updated <= trackStale.Milliseconds()

	if bothFresh && oddSurface == evenSurface {
		if lat, lon, ok = p.Decoder.DecodeGlobal(a.CPROdd, a.CPREven); ok {
			return lat, lon, true
		}
	}

	if now-a.SeenPosReliable < localPositionRelWindow {
		frag := a.CPREven
		if mm.CPROdd {
			frag = a.CPROdd
		}
		if lat, lon, ok = p.Decoder.DecodeLocal(frag, a.Lat, a.Lon); ok {
			return lat, lon, true
		}
	}

	if refLat, refLon, ok2 := p.Receivers.GetReference(mm.ReceiverID, p.Config.ViewADSB || p.Config.ReceiverFocus); ok2 {
		frag := a.CPREven
		if mm.CPROdd {
			frag = a.CPROdd
		}
		return p.Decoder.DecodeLocal(frag, refLat, refLon)
	}

	return 0, 0, false
}

// speedCheck is §4.3: reject a bogus point, a non-causal timestamp, or an
// implied ground speed beyond the altitude-dependent maximum. The
// comparison point is the aircraft's current (not yet overwritten)
// position -- the position that acceptPosition is about to displace into
// (prev_lat, prev_lon, prev_pos_time).
func (p *Pipeline) speedCheck(a *Aircraft, lat, lon float64, now int64) bool {
	if common.BogusLatLon(lat, lon) {
		return false
	}
	if !a.PositionValid.Valid() {
		return true
	}
	dtMs := now - a.SeenPos
	if dtMs <= 0 {
		return false
	}
	dist := common.GreatCircleEquirect(a.Lat, a.Lon, lat, lon)
	speed := dist / (float64(dtMs) / 1000.0) // m/s
	return speed <= maxSpeedForAltitude(a.BaroAlt)
}

// maxSpeedForAltitude returns the plausible maximum ground speed (m/s) for
// an aircraft at the given barometric altitude (feet): monotone increasing
// with altitude and bounded, reflecting that TAS for a fixed indicated
// airspeed grows with thinner air at height, capped near sustained
// supersonic cruise.
func maxSpeedForAltitude(baroAltFt int) float64 {
	const (
		seaLevelMax = 300.0  // m/s, ~580kt: generous subsonic ceiling at low altitude
		highAltMax  = 700.0  // m/s, ~1360kt: generous supersonic ceiling at high altitude
		rampTopFt   = 45000.0
	)
	if baroAltFt <= 0 {
		return seaLevelMax
	}
	if baroAltFt >= rampTopFt {
		return highAltMax
	}
	frac := float64(baroAltFt) / rampTopFt
	return seaLevelMax + frac*(highAltMax-seaLevelMax)
}
