/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	types.go: shared enums and the decoded-message contract. The
	demodulator and CPR arithmetic that produce a ModeSMessage live
	outside this daemon; only the struct shape is specified here.
*/

package main

import "time"

// Source is the totally-ordered provenance of a tracked field, worst to
// best. Higher values win on contention; see DataValidity.
type Source uint8

const (
	SourceInvalid Source = iota
	SourceModeAC
	SourceMLAT
	SourceModeS
	SourceADSR
	SourceTISB
	SourceJAERO
	SourceADSB
	SourceIndirect // rough receiver location, see TRACK_EXPIRE_ROUGH
)

func (s Source) String() string {
	switch s {
	case SourceInvalid:
		return "invalid"
	case SourceModeAC:
		return "mode_ac"
	case SourceMLAT:
		return "mlat"
	case SourceModeS:
		return "mode_s"
	case SourceADSR:
		return "adsr"
	case SourceTISB:
		return "tisb"
	case SourceJAERO:
		return "jaero"
	case SourceADSB:
		return "adsb"
	case SourceIndirect:
		return "indirect"
	default:
		return "unknown"
	}
}

// AddressType is the highest-priority address type seen for an aircraft.
type AddressType uint8

const (
	AddrUnknown AddressType = iota
	AddrICAO
	AddrNonICAO
	AddrTISB
	AddrTISBICAO
	AddrADSRICAO
	AddrModeS
	AddrADSBReserved
)

// NonICAOBit marks addresses that are not real 24-bit ICAO allocations
// (e.g. TIS-B track files, anonymized addresses).
const NonICAOBit uint32 = 1 << 24

// CPRType distinguishes the kind of CPR fragment carried by a message.
type CPRType uint8

const (
	CPRAir CPRType = iota
	CPRSurface
	CPRCoarse
)

// EmergencyState mirrors the FS flight-status emergency/priority field.
type EmergencyState uint8

// NavAltitudeSource identifies which selected-altitude source is in use.
type NavAltitudeSource uint8

const (
	NavAltSrcUnknown NavAltitudeSource = iota
	NavAltSrcMCP
	NavAltSrcFMS
	NavAltSrcGPSHold
)

// AirGround is the air/ground status bit pair.
type AirGround uint8

const (
	AirGroundUnknown AirGround = iota
	AirGroundAirborne
	AirGroundGround
)

// NavModes is a bitset of enabled autopilot modes.
type NavModes uint8

const (
	NavModeAutopilot NavModes = 1 << iota
	NavModeVNAV
	NavModeAltHold
	NavModeApproach
	NavModeLNAV
	NavModeTCAS
)

// MagicUATTimestamp is the sentinel timestampMsg value for UAT-sourced
// messages that carry no meaningful radio timestamp.
const MagicUATTimestamp int64 = 0xFFFFFFFFFFFFF

// ModeSMessage is the decoded-message contract produced by the (external)
// demodulator/CPR decoder and consumed by the update pipeline. Only the
// fields the tracker actually gates on are present; anything not set uses
// its zero value together with the matching *Valid flag being false.
type ModeSMessage struct {
	Addr       uint32
	AddrType   AddressType
	MsgType    int
	Source     Source
	ReceiverID uint64

	TimestampMsg int64
	SignalLevel  float64
	Now          int64 // ms epoch the message was processed at

	CPRValid bool
	CPRLat   uint32
	CPRLon   uint32
	CPROdd   bool
	CPRType  CPRType
	CPRNIC   uint32
	CPRRc    uint32

	// DirectPosValid carries an already-decoded position (typical of MLAT
	// and JAERO feeds, which hand over lat/lon directly rather than a CPR
	// fragment needing global/local pairing).
	DirectPosValid bool
	DirectLat      float64
	DirectLon      float64

	Callsign      string
	CallsignValid bool

	Squawk      uint32
	SquawkValid bool

	BaroAlt      int
	BaroAltValid bool
	GeomAlt      int
	GeomAltValid bool
	BaroRate     int
	BaroRateValid bool
	GeomRate     int
	GeomRateValid bool

	GS      float64
	GSValid bool
	IAS     float64
	IASValid bool
	TAS     float64
	TASValid bool
	Mach    float64
	MachValid bool

	Track        float64
	TrackValid   bool
	TrackRate    float64
	TrackRateValid bool
	Roll         float64
	RollValid    bool
	MagHeading   float64
	MagHeadingValid bool
	TrueHeading  float64
	TrueHeadingValid bool

	NavAltitudeMCP      uint
	NavAltitudeMCPValid bool
	NavAltitudeFMS      uint
	NavAltitudeFMSValid bool
	NavQNH              float64
	NavQNHValid         bool
	NavHeading          float64
	NavHeadingValid     bool
	NavModesValue       NavModes
	NavModesValid       bool
	NavAltitudeSrc      NavAltitudeSource
	NavAltitudeSrcValid bool

	NICa, NICc, NICbaro       bool
	NICaValid, NICcValid, NICbaroValid bool
	NACp    uint
	NACpValid bool
	NACv    uint
	NACvValid bool
	SIL     uint
	SILValid bool
	SILType uint
	GVA     uint
	GVAValid bool
	SDA     uint
	SDAValid bool

	Emergency      EmergencyState
	EmergencyValid bool
	AirGroundValue AirGround
	AirGroundValid bool
	Alert      bool
	AlertValid bool
	SPI        bool
	SPIValid   bool

	ADSBVersion  int
	ADSRVersion  int
	TISBVersion  int
	Category     uint
}

func msNow() int64 { return time.Now().UnixMilli() }
