/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	aircraft.go: the per-aircraft record and its derived predicates.
	Grounded on original_source/track.h's struct aircraft and the
	static inline helpers posReliable()/altBaroReliable()/trackVState().
*/

package main

import (
	"math"

	"github.com/asenci/readsb/common"
)

const receiverIDBuffer = 12
const discardCacheSize = 4

// Discarded is a CPR fragment that was rejected by the speed check; kept
// for diagnostics (§3.1, disc_cache in the original).
type Discarded struct {
	CPRLat, CPRLon uint32
	Timestamp      int64
	ReceiverID     uint64
}

// CPRFragment is one half (odd or even) of a CPR position report.
type CPRFragment struct {
	Lat, Lon   uint32
	NIC, Rc    uint32
	Surface    bool
	Timestamp  int64
	ReceiverID uint64
	Type       CPRType
}

// Aircraft is the consolidated current state for one 24-bit ICAO address.
// addr is immutable for the record's lifetime (§3.1 invariant).
type Aircraft struct {
	next *Aircraft // intrusive chain link in the directory's bucket table

	Addr        uint32
	AddrType    AddressType
	AddrTypeUpdated int64

	Callsign        string
	Squawk          uint32
	SquawkTentative uint32

	Registration string
	TypeCode     string
	TypeLong     string
	Year         string
	OwnerOp      string
	DBFlags      uint8

	Lat, Lon               float64
	LatReliable, LonReliable float64
	PrevLat, PrevLon       float64
	PrevPosTime            int64

	BaroAlt, GeomAlt   int
	AltReliable        int
	BaroRate, GeomRate int

	GS, TAS, IAS, Mach float64
	Track, CalcTrack   float64
	TrackRate, Roll    float64
	MagHeading, TrueHeading float64
	TrackUnreliable    int32
	SpeedUnreliable    int32
	GSLastPos          float64

	CPROdd, CPREven     CPRFragment
	CPROddValid, CPREvenValid DataValidity

	NavAltitudeMCP, NavAltitudeFMS uint
	NavQNH, NavHeading            float64
	NavModesValue                 NavModes
	NavAltitudeSrc                NavAltitudeSource

	NICa, NICc, NICbaro bool
	NACp, NACv          uint
	SIL, SILType        uint
	GVA, SDA            uint
	ADSBVersion, ADSRVersion, TISBVersion int

	PosReliableOdd, PosReliableEven float32
	PosNIC, PosRc                   uint
	PosNICReliable, PosRcReliable   uint
	PosSurface                      bool
	LastCPRType                     CPRType

	DiscCache      [discardCacheSize]Discarded
	DiscCacheIndex uint32

	ReceiverIDs     [receiverIDBuffer]uint64
	ReceiverIDsNext uint16
	ReceiverCountMlat uint16
	LastPosReceiverID uint64

	Category        uint
	CategoryUpdated int64

	Emergency EmergencyState
	AirGroundValue AirGround
	Alert, SPI bool

	RRLat, RRLon float64
	RRSeen       int64

	MagneticDeclination   float64
	UpdatedDeclination    int64

	NogpsCounter uint16

	Seen, SeenPos       int64
	SeenPosReliable     int64
	SeenAdsbReliable    int64
	SeenPosGlobal       int64
	Messages            uint32

	SignalLevel [8]float64
	SignalNext  uint32

	Trace     []TracePoint
	TraceNextTmpfs int64
	TraceNextPerm  int64

	CallsignValid, SquawkValid                             DataValidity
	BaroAltValid, GeomAltValid                              DataValidity
	BaroRateValid, GeomRateValid                            DataValidity
	GSValid, IASValid, TASValid, MachValid                  DataValidity
	TrackValid, TrackRateValid, RollValid                   DataValidity
	MagHeadingValid, TrueHeadingValid                       DataValidity
	NicAValid, NicCValid, NicBaroValid                      DataValidity
	NacPValid, NacVValid, SilValid, GvaValid, SdaValid      DataValidity
	NavQNHValid, NavAltitudeMCPValid, NavAltitudeFMSValid   DataValidity
	NavAltitudeSrcValid, NavHeadingValid, NavModesValid     DataValidity
	PositionValid                                           DataValidity
	AlertValid, SPIValid                                    DataValidity
	AirGroundValid                                          DataValidity
	EmergencyValid                                          DataValidity
}

// TracePoint is one entry in an aircraft's recent-position trail.
type TracePoint struct {
	Timestamp int64
	OnGround  bool
	Stale     bool
	Lat, Lon  int32
	GS, Track uint16
	BaroAlt, BaroRate int16
	GeomAlt, GeomRate int16
}

// newAircraft builds a freshly initialized record for addr, matching the
// zero-then-override defaults in aircraftCreate().
func newAircraft(addr uint32, now int64) *Aircraft {
	a := &Aircraft{
		Addr:        addr,
		AddrType:    AddrUnknown,
		ADSBVersion: -1,
		ADSRVersion: -1,
		TISBVersion: -1,
		Seen:        now,
	}
	return a
}

// reliabilityRequired returns the default gate for posReliable(), equal to
// Modes.json_reliable with the non-ICAO extra-reliability bump disabled
// (the original keeps that branch dead with "if (0 && ...)").
func reliabilityRequired(jsonReliable int) float32 {
	return float32(jsonReliable)
}

// posReliable reports whether the aircraft's current position should be
// treated as reliable: degraded sources (MLAT/JAERO/INDIRECT) bypass the
// counter gate entirely; everything else needs both CPR parities to have
// accumulated enough independently-confirmed global decodes.
func (a *Aircraft) posReliable(jsonReliable int) bool {
	if !a.PositionValid.Valid() {
		return false
	}
	switch a.PositionValid.Source {
	case SourceJAERO, SourceMLAT, SourceIndirect:
		return true
	}
	required := reliabilityRequired(jsonReliable)
	return a.PosReliableOdd >= required && a.PosReliableEven >= required
}

// altBaroReliable mirrors altBaroReliable() in track.h.
func (a *Aircraft) altBaroReliable(jsonReliable int) bool {
	if !a.BaroAltValid.Valid() {
		return false
	}
	if a.PositionValid.Source == SourceJAERO {
		return true
	}
	return a.AltReliable >= jsonReliable+1
}

// trackVState reports whether field v should still be carried forward into
// a trace point, given the aircraft's current position validity.
func (a *Aircraft) trackVState(now int64, v *DataValidity) bool {
	return trackVState(now, v, &a.PositionValid)
}

// get8BitSignal compresses the 8-sample signal ring into a single 0-255
// byte the way the original's get8bitSignal() does (RMS, sqrt-compressed).
func (a *Aircraft) get8BitSignal() int {
	sum := 0.0
	for _, s := range a.SignalLevel {
		sum += s
	}
	signal := math.Sqrt(sum/8.0) * 255.0
	if signal > 255 {
		signal = 255
	}
	if signal > 0 && signal < 1 {
		signal = 1
	}
	return int(math.Round(signal))
}

// pushSignal records a new signal amplitude sample into the 8-slot ring.
func (a *Aircraft) pushSignal(level float64) {
	a.SignalLevel[a.SignalNext%8] = level
	a.SignalNext = (a.SignalNext + 1) % 8
}

// distinctReceiverCount returns the number of distinct non-zero receiver
// ids currently held in the 12-slot ring, used by toBinCraft for
// TIS-B-and-above sources.
func (a *Aircraft) distinctReceiverCount() int {
	seen := make(map[uint64]struct{}, receiverIDBuffer)
	for _, id := range a.ReceiverIDs {
		if id != 0 {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// pushReceiverID records a contributing receiver id into the ring.
func (a *Aircraft) pushReceiverID(id uint64) {
	a.ReceiverIDs[a.ReceiverIDsNext%receiverIDBuffer] = id
	a.ReceiverIDsNext = (a.ReceiverIDsNext + 1) % receiverIDBuffer
}

// pushDiscarded records a CPR fragment that failed the speed check.
func (a *Aircraft) pushDiscarded(d Discarded) {
	a.DiscCache[a.DiscCacheIndex%discardCacheSize] = d
	a.DiscCacheIndex = (a.DiscCacheIndex + 1) % discardCacheSize
}

// bumpReliability adjusts the odd/even CPR reliability counters, clamped
// to [0, cap] as required by §4.3/property 5.
func (a *Aircraft) bumpReliability(cap float32, deltaOdd, deltaEven float32) {
	a.PosReliableOdd = common.ClampFloat32(a.PosReliableOdd+deltaOdd, 0, cap)
	a.PosReliableEven = common.ClampFloat32(a.PosReliableEven+deltaEven, 0, cap)
}
