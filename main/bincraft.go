/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	bincraft.go: the binary snapshot projection. Grounded on
	original_source/aircraft.c's toBinCraft(), with every §4.6 scale
	factor and value width reproduced exactly. The record is a Go
	struct: it has no packed byte layout and no fixed byte offsets.
*/

package main

import "math"

const fourteenDaysMs = 14 * 24 * 60 * 60 * 1000

// BinCraft is the fixed-layout per-aircraft snapshot record. Field order
// mirrors the original only loosely -- callers read it as a Go struct, not
// as a packed C layout -- but every scale factor and width is exact.
type BinCraft struct {
	Hex      uint32
	Seen     uint16 // (now-seen)/100ms
	SeenPos  uint16 // (now-seen_pos)/100ms
	Messages uint16

	Callsign      [8]byte
	CallsignValid bool

	Registration string
	TypeCode     string
	DBFlags      uint8

	PositionValid bool
	Lat, Lon      int32 // x1e6
	PosNIC, PosRc uint

	BaroAltValid bool
	BaroAlt      int16 // /25
	GeomAlt      int16 // /25
	GeomAltValid bool
	BaroRate     int16 // /8
	BaroRateValid bool
	GeomRate     int16 // /8
	GeomRateValid bool

	IAS, TAS float64

	Squawk      uint32
	SquawkValid bool
	Category    uint

	NavAltitudeMCP uint16 // /4
	NavAltitudeMCPValid bool
	NavAltitudeFMS uint16 // /4
	NavAltitudeFMSValid bool
	NavQNH      int16 // x10
	NavQNHValid bool

	GS      int16 // x10
	GSValid bool
	Mach    int16 // x1000
	MachValid bool

	TrackRate int16 // x100
	TrackRateValid bool
	Roll      int16 // x100
	RollValid bool
	Track     int16 // x90
	TrackValid bool

	MagHeading      int16 // x90
	MagHeadingValid bool
	TrueHeading      int16 // x90
	TrueHeadingValid bool
	NavHeading      int16 // x90
	NavHeadingValid bool

	Emergency      EmergencyState
	EmergencyValid bool
	AirGround      AirGround

	AddrType      AddressType
	NavModesValue NavModes
	NavModesValid bool
	NavAltitudeSrc      NavAltitudeSource
	NavAltitudeSrcValid bool
	SILType uint

	ADSBVersion int
	ADSRVersion int
	TISBVersion int

	NICa, NICc, NICbaro             bool
	NICaValid, NICcValid, NICbaroValid bool
	NACp, NACv                      uint
	NACpValid, NACvValid            bool
	SIL, GVA, SDA                   uint
	SILValid, GVAValid, SDAValid    bool
	Alert, SPI                      bool
	AlertValid, SPIValid            bool

	Signal int

	ReceiverCount int
}

// ToBinCraft is toBinCraft(a, now): a pure function of (a, db, now),
// satisfying property 8 (snapshot idempotence).
func ToBinCraft(a *Aircraft, db *DB, now int64, jsonReliable int, globeIndex bool) *BinCraft {
	b := &BinCraft{}
	b.Hex = a.Addr
	b.Seen = clampMs100(now - a.Seen)
	b.Messages = uint16(a.Messages)

	b.CallsignValid = a.CallsignValid.Valid()
	if b.CallsignValid {
		copy(b.Callsign[:], a.Callsign)
	}

	if db != nil {
		if d := db.Get(a.Addr); d != nil {
			b.Registration = d.Registration
			b.TypeCode = d.TypeCode
			b.DBFlags = d.DBFlags
		}
	}

	b.PositionValid = a.posReliable(jsonReliable)
	switch {
	case b.PositionValid:
		b.SeenPos = clampMs100(now - a.SeenPos)
		b.Lat = nearbyintScaled(a.Lat, 1e6)
		b.Lon = nearbyintScaled(a.Lon, 1e6)
		b.PosNIC = a.PosNIC
		b.PosRc = a.PosRc
	case now < a.SeenPosReliable+fourteenDaysMs:
		// Scenario S6: fall back to the reliable position snapshot.
		b.SeenPos = clampMs100(now - a.SeenPosReliable)
		b.Lat = nearbyintScaled(a.LatReliable, 1e6)
		b.Lon = nearbyintScaled(a.LonReliable, 1e6)
		b.PosNIC = a.PosNICReliable
		b.PosRc = a.PosRcReliable
	}

	b.BaroAltValid = a.altBaroReliable(jsonReliable)
	b.BaroAlt = int16(nearbyintDiv(float64(a.BaroAlt), 25))
	b.GeomAlt = int16(nearbyintDiv(float64(a.GeomAlt), 25))
	b.GeomAltValid = a.GeomAltValid.Valid()
	if !b.GeomAltValid {
		b.GeomAlt = 0
	}
	b.BaroRate = int16(nearbyintDiv(float64(a.BaroRate), 8))
	b.BaroRateValid = a.BaroRateValid.Valid()
	if !b.BaroRateValid {
		b.BaroRate = 0
	}
	b.GeomRate = int16(nearbyintDiv(float64(a.GeomRate), 8))
	b.GeomRateValid = a.GeomRateValid.Valid()
	if !b.GeomRateValid {
		b.GeomRate = 0
	}

	b.IAS = maskedFloat(a.IAS, a.IASValid.Valid())
	b.TAS = maskedFloat(a.TAS, a.TASValid.Valid())

	b.SquawkValid = a.SquawkValid.Valid()
	b.Squawk = maskedUint32(a.Squawk, b.SquawkValid)

	b.Category = a.Category
	if !(now < a.CategoryUpdated+trackExpireJaero.Milliseconds()) {
		b.Category = 0
	}

	b.NavAltitudeMCPValid = a.NavAltitudeMCPValid.Valid()
	b.NavAltitudeMCP = uint16(nearbyintDiv(float64(a.NavAltitudeMCP), 4))
	if !b.NavAltitudeMCPValid {
		b.NavAltitudeMCP = 0
	}
	b.NavAltitudeFMSValid = a.NavAltitudeFMSValid.Valid()
	b.NavAltitudeFMS = uint16(nearbyintDiv(float64(a.NavAltitudeFMS), 4))
	if !b.NavAltitudeFMSValid {
		b.NavAltitudeFMS = 0
	}

	b.NavQNHValid = a.NavQNHValid.Valid()
	b.NavQNH = int16(nearbyintScaled(a.NavQNH, 10))
	if !b.NavQNHValid {
		b.NavQNH = 0
	}

	b.GSValid = a.GSValid.Valid()
	b.GS = int16(nearbyintScaled(a.GS, 10))
	if !b.GSValid {
		b.GS = 0
	}
	b.MachValid = a.MachValid.Valid()
	b.Mach = int16(nearbyintScaled(a.Mach, 1000))
	if !b.MachValid {
		b.Mach = 0
	}

	b.TrackRateValid = a.TrackRateValid.Valid()
	b.TrackRate = int16(nearbyintScaled(a.TrackRate, 100))
	if !b.TrackRateValid {
		b.TrackRate = 0
	}
	b.RollValid = a.RollValid.Valid()
	b.Roll = int16(nearbyintScaled(a.Roll, 100))
	if !b.RollValid {
		b.Roll = 0
	}

	b.TrackValid = a.TrackValid.Valid()
	if b.TrackValid {
		b.Track = int16(nearbyintScaled(a.Track, 90))
	} else {
		b.Track = int16(nearbyintScaled(a.CalcTrack, 90))
	}

	b.MagHeadingValid = a.MagHeadingValid.Valid()
	b.MagHeading = int16(nearbyintScaled(a.MagHeading, 90))
	if !b.MagHeadingValid {
		b.MagHeading = 0
	}
	b.TrueHeadingValid = a.TrueHeadingValid.Valid()
	b.TrueHeading = int16(nearbyintScaled(a.TrueHeading, 90))
	if !b.TrueHeadingValid {
		b.TrueHeading = 0
	}
	b.NavHeadingValid = a.NavHeadingValid.Valid()
	b.NavHeading = int16(nearbyintScaled(a.NavHeading, 90))
	if !b.NavHeadingValid {
		b.NavHeading = 0
	}

	b.EmergencyValid = a.EmergencyValid.Valid()
	b.Emergency = maskedEmergency(a.Emergency, b.EmergencyValid)
	b.AirGround = maskedAirGround(a.AirGroundValue, a.AirGroundValid.Valid())

	b.AddrType = a.AddrType
	b.NavModesValid = a.NavModesValid.Valid()
	b.NavModesValue = maskedNavModes(a.NavModesValue, b.NavModesValid)
	b.NavAltitudeSrcValid = a.NavAltitudeSrcValid.Valid()
	b.NavAltitudeSrc = a.NavAltitudeSrc
	if !b.NavAltitudeSrcValid {
		b.NavAltitudeSrc = NavAltSrcUnknown
	}
	b.SILType = a.SILType

	b.ADSBVersion = versionOrUnknown(a.ADSBVersion)
	b.ADSRVersion = versionOrUnknown(a.ADSRVersion)
	b.TISBVersion = versionOrUnknown(a.TISBVersion)

	b.NICaValid = a.NicAValid.Valid()
	b.NICa = a.NICa && b.NICaValid
	b.NICcValid = a.NicCValid.Valid()
	b.NICc = a.NICc && b.NICcValid
	b.NICbaroValid = a.NicBaroValid.Valid()
	b.NICbaro = a.NICbaro && b.NICbaroValid

	b.NACpValid = a.NacPValid.Valid()
	b.NACp = maskedUint(a.NACp, b.NACpValid)
	b.NACvValid = a.NacVValid.Valid()
	b.NACv = maskedUint(a.NACv, b.NACvValid)

	b.SILValid = a.SilValid.Valid()
	b.SIL = maskedUint(a.SIL, b.SILValid)
	b.GVAValid = a.GvaValid.Valid()
	b.GVA = maskedUint(a.GVA, b.GVAValid)
	b.SDAValid = a.SdaValid.Valid()
	b.SDA = maskedUint(a.SDA, b.SDAValid)

	b.AlertValid = a.AlertValid.Valid()
	b.Alert = a.Alert && b.AlertValid
	b.SPIValid = a.SPIValid.Valid()
	b.SPI = a.SPI && b.SPIValid

	b.Signal = a.get8BitSignal()

	if globeIndex {
		switch {
		case a.PositionValid.Source == SourceMLAT:
			b.ReceiverCount = int(a.ReceiverCountMlat)
		case a.PositionValid.Source >= SourceTISB:
			b.ReceiverCount = a.distinctReceiverCount()
		default:
			b.ReceiverCount = 1
		}
	}

	return b
}

func clampMs100(deltaMs int64) uint16 {
	if deltaMs < 0 {
		deltaMs = 0
	}
	v := deltaMs / 100
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

func nearbyintScaled(v float64, scale float64) int32 {
	return int32(math.RoundToEven(v * scale))
}

func nearbyintDiv(v, div float64) int64 {
	return int64(math.RoundToEven(v / div))
}

func versionOrUnknown(v int) int {
	if v < 0 {
		return 15
	}
	return v
}

func maskedFloat(v float64, valid bool) float64 {
	if !valid {
		return 0
	}
	return v
}

func maskedUint32(v uint32, valid bool) uint32 {
	if !valid {
		return 0
	}
	return v
}

func maskedUint(v uint, valid bool) uint {
	if !valid {
		return 0
	}
	return v
}

func maskedEmergency(v EmergencyState, valid bool) EmergencyState {
	if !valid {
		return 0
	}
	return v
}

func maskedAirGround(v AirGround, valid bool) AirGround {
	if !valid {
		return AirGroundUnknown
	}
	return v
}

func maskedNavModes(v NavModes, valid bool) NavModes {
	if !valid {
		return 0
	}
	return v
}
