/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	sweep.go: the periodic stale-reaping sweep (§4.8). Grounded on
	original_source/track.h's updateValidity()/trackDataValid() pattern,
	generalized into updateValidities() -- a single pass over every
	per-field validity record on an aircraft, followed by whole-record
	eviction once every field has gone invalid.
*/

package main

import "time"

// aircraftTimeout bounds how long an aircraft record survives after its
// last message once every one of its fields has expired. Not stated as a
// concrete constant anywhere in the retained source; chosen in the same
// ballpark as TRACK_EXPIRE_LONG so a record outlives any single field's
// own expiration before the whole-aircraft sweep reclaims it.
const aircraftTimeout = 5 * time.Minute

// updateValidities drives every per-field validity state machine on a
// forward to `now`, matching updateValidity()'s fresh -> stale -> expired
// transitions. positionValid and the altitude fields use the long timeout
// since they're expected to persist through brief gaps in reception;
// everything else uses the standard one.
func updateValidities(a *Aircraft, now int64, debugRoughReceiverLocation bool) {
	long := []*DataValidity{
		&a.PositionValid, &a.BaroAltValid, &a.GeomAltValid,
	}
	for _, v := range long {
		updateValidity(v, now, trackExpireLong, debugRoughReceiverLocation)
	}

	standard := []*DataValidity{
		&a.CallsignValid, &a.SquawkValid,
		&a.BaroRateValid, &a.GeomRateValid,
		&a.GSValid, &a.IASValid, &a.TASValid, &a.MachValid,
		&a.TrackValid, &a.TrackRateValid, &a.RollValid,
		&a.MagHeadingValid, &a.TrueHeadingValid,
		&a.NicAValid, &a.NicCValid, &a.NicBaroValid,
		&a.NacPValid, &a.NacVValid, &a.SilValid, &a.GvaValid, &a.SdaValid,
		&a.NavQNHValid, &a.NavAltitudeMCPValid, &a.NavAltitudeFMSValid,
		&a.NavAltitudeSrcValid, &a.NavHeadingValid, &a.NavModesValid,
		&a.AlertValid, &a.SPIValid, &a.AirGroundValid, &a.EmergencyValid,
		&a.CPROddValid, &a.CPREvenValid,
	}
	for _, v := range standard {
		updateValidity(v, now, trackExpire, debugRoughReceiverLocation)
	}
}

// allFieldsInvalid reports whether every tracked field on a has expired,
// the §4.8 precondition for whole-record eviction.
func allFieldsInvalid(a *Aircraft) bool {
	fields := []*DataValidity{
		&a.PositionValid, &a.BaroAltValid, &a.GeomAltValid,
		&a.CallsignValid, &a.SquawkValid,
		&a.BaroRateValid, &a.GeomRateValid,
		&a.GSValid, &a.IASValid, &a.TASValid, &a.MachValid,
		&a.TrackValid, &a.TrackRateValid, &a.RollValid,
		&a.MagHeadingValid, &a.TrueHeadingValid,
		&a.NicAValid, &a.NicCValid, &a.NicBaroValid,
		&a.NacPValid, &a.NacVValid, &a.SilValid, &a.GvaValid, &a.SdaValid,
		&a.NavQNHValid, &a.NavAltitudeMCPValid, &a.NavAltitudeFMSValid,
		&a.NavAltitudeSrcValid, &a.NavHeadingValid, &a.NavModesValid,
		&a.AlertValid, &a.SPIValid, &a.AirGroundValid, &a.EmergencyValid,
		&a.CPROddValid, &a.CPREvenValid,
	}
	for _, v := range fields {
		if v.Valid() {
			return false
		}
	}
	return true
}

// RemoveStale runs one pass of trackRemoveStale over the directory:
// refresh every aircraft's field validities, then evict whole records
// that have gone entirely invalid and aged past aircraftTimeout.
func RemoveStale(dir *Directory, now int64, debugRoughReceiverLocation bool) {
	var evict []uint32
	dir.ForEach(func(a *Aircraft) {
		updateValidities(a, now, debugRoughReceiverLocation)
		if now-a.Seen > aircraftTimeout.Milliseconds() && allFieldsInvalid(a) {
			evict = append(evict, a.Addr)
		}
	})
	for _, addr := range evict {
		dir.Remove(addr)
	}
}
