/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	receiver.go: receiver reputation and coverage engine. Grounded on
	original_source/receiver.c (receiverHash/receiverGet/receiverCreate/
	receiverTimeout/receiverPositionReceived/receiverBad/
	receiverCheckBad/receiverGetReference) with the mixing constant
	kept verbatim.

	Great-circle distance for coverage-box math is backed by
	kellydunn/golang-geo; the coarse coverage geohash is an addition
	(SPEC_FULL.md §4.4) backed by gansidui/geohash.
*/

package main

import (
	"sync"
	"time"

	geo "github.com/kellydunn/golang-geo"
	"github.com/sirupsen/logrus"

	"github.com/asenci/readsb/common"
)

const (
	receiverTableHashBits = 16
	receiverTableSize     = 1 << receiverTableHashBits
	receiverMaxRangeM     = 800e3
	receiverBadAircraft   = 1
	receiverTimeoutWindow = 12 * time.Second
)

// receiverHash mixes a 64-bit receiver id through the same fixed avalanche
// constant as the original, folded down to receiverTableSize buckets.
func receiverHash(id uint64) uint32 {
	h := uint64(0x30732349f7810465) ^ (4 * 0x2127599bf4325c37)
	h ^= mixFasthash(id)
	h -= h >> 32
	h &= (1 << 32) - 1
	h -= h >> receiverTableHashBits
	return uint32(h) & (receiverTableSize - 1)
}

// mixFasthash is a 64-bit avalanche mix (the FastHash finalizer), used as
// the "fixed 64-bit avalanche constant" mixing step from §4.4.
func mixFasthash(h uint64) uint64 {
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return h
}

type badAircraft struct {
	addr uint32
	ts   int64
}

// Receiver is a physical feeder's reputation/coverage record, keyed by an
// opaque 64-bit id (§3.3).
type Receiver struct {
	next *Receiver

	ID uint64

	FirstSeen, LastSeen int64
	PositionCounter     uint64
	GoodCounter         int
	BadCounter          float64
	TimedOutCounter     uint32
	TimedOutUntil       int64
	BadExtent           int64

	LatMin, LatMax, LonMin, LonMax float64
	CoverageGeohash                string

	badAircraft [receiverBadAircraft]badAircraft
}

// ReceiverTable tracks all known receivers under a single RWMutex, like
// the aircraft directory (no sharded locking); contention is low since a
// receiver's messages almost always arrive on the same goroutine.
type ReceiverTable struct {
	mu      sync.RWMutex
	buckets [receiverTableSize]*Receiver
	count   int

	// Log and Metrics are nil-safe: a zero-value ReceiverTable (as used
	// throughout the existing tests) stays silent rather than panicking.
	Log     *logrus.Logger
	Metrics *Metrics
}

// NewReceiverTable constructs an empty receiver table.
func NewReceiverTable() *ReceiverTable {
	return &ReceiverTable{}
}

// Get returns the receiver for id, or nil.
func (t *ReceiverTable) Get(id uint64) *Receiver {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r := t.buckets[receiverHash(id)]
	for r != nil && r.ID != id {
		r = r.next
	}
	return r
}

// Create returns the existing receiver for id, or creates one, refusing
// when the table is grossly over capacity (§7, resource exhaustion).
func (t *ReceiverTable) Create(id uint64, now int64) *Receiver {
	if r := t.Get(id); r != nil {
		return r
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count > 4*receiverTableSize {
		if t.Log != nil {
			logResourceExhaustion(t.Log, "receivers", t.count)
		}
		return nil
	}

	hash := receiverHash(id)
	r := &Receiver{ID: id, FirstSeen: now, LastSeen: now}
	r.next = t.buckets[hash]
	t.buckets[hash] = r
	t.count++
	return r
}

// Timeout evicts receivers in shard `part` of `nParts`, matching
// receiverTimeout()'s three eviction conditions exactly.
func (t *ReceiverTable) Timeout(part, nParts int, now int64) {
	stride := receiverTableSize / nParts
	start := part * stride
	end := start + stride

	t.mu.Lock()
	defer t.mu.Unlock()

	overFull := t.count > receiverTableSize
	for i := start; i < end; i++ {
		pp := &t.buckets[i]
		for *pp != nil {
			r := *pp
			evict := (overFull && r.LastSeen < now-int64(20*time.Minute/time.Millisecond)) ||
				(now > r.LastSeen+int64(24*time.Hour/time.Millisecond)) ||
				(r.BadExtent != 0 && now > r.BadExtent+int64(30*time.Minute/time.Millisecond))
			if evict {
				*pp = r.next
				t.count--
			} else {
				pp = &r.next
			}
		}
	}
}

// Len returns the number of receivers currently tracked.
func (t *ReceiverTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// ForEach calls fn for every receiver under a read lock.
func (t *ReceiverTable) ForEach(fn func(*Receiver)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, head := range t.buckets {
		for r := head; r != nil; r = r.next {
			fn(r)
		}
	}
}

// greatcircle implements §4.3's greatcircle(): the equirectangular
// approximation when approx is true, haversine otherwise. golang-geo
// only exposes a haversine-based distance, so the approximate branch is
// the spec's own formula applied directly.
func greatcircle(lat0, lon0, lat1, lon1 float64, approx bool) float64 {
	if approx {
		return common.GreatCircleEquirect(lat0, lon0, lat1, lon1)
	}
	p0 := geo.NewPoint(lat0, lon0)
	p1 := geo.NewPoint(lat1, lon1)
	return p0.GreatCircleDistance(p1) * 1000.0 // golang-geo returns km
}

// receiverPositionReceived updates (or initializes) a receiver's coverage
// box from a newly, reliably decoded ADS-B global position. Mirrors
// receiverPositionReceived() including its -1/-2/1 return contract.
func receiverPositionReceived(t *ReceiverTable, a *Aircraft, mm *ModeSMessage, lat, lon float64, now int64, reliabilityRequired float32) int {
	if lat > 85.0 || lat < -85.0 || lon < -175 || lon > 175 {
		return -1
	}
	if !(mm.Source == SourceADSB && mm.CPRType != CPRSurface &&
		a.PosReliableOdd >= reliabilityRequired && a.PosReliableEven >= reliabilityRequired) {
		return -1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := mm.ReceiverID
	r := t.getLocked(id)
	if r == nil || r.PositionCounter == 0 {
		if r == nil {
			if t.count > 4*receiverTableSize {
				if t.Log != nil {
					logResourceExhaustion(t.Log, "receivers", t.count)
				}
				return -1
			}
			hash := receiverHash(id)
			r = &Receiver{ID: id, FirstSeen: now, LastSeen: now}
			r.next = t.buckets[hash]
			t.buckets[hash] = r
			t.count++
		}
		r.LatMin, r.LatMax = lat, lat
		r.LonMin, r.LonMax = lon, lon
		r.PositionCounter++
		r.LastSeen = now
		r.CoverageGeohash = coverageGeohash(r)
		return 1
	}

	latDiff := r.LatMax - r.LatMin
	lonDiff := r.LonMax - r.LonMin
	rlat := r.LatMin + latDiff/2
	rlon := r.LonMin + lonDiff/2

	distance := greatcircle(rlat, rlon, lat, lon, true)

	if distance < receiverMaxRangeM {
		r.LonMin = minf(r.LonMin, lon)
		r.LatMin = minf(r.LatMin, lat)
		r.LonMax = maxf(r.LonMax, lon)
		r.LatMax = maxf(r.LatMax, lat)
		r.GoodCounter++
		r.BadCounter = maxf(0, r.BadCounter-0.5)
	}

	if r.BadExtent == 0 && distance > receiverMaxRangeM {
		declare := true
		for i := range r.badAircraft {
			if r.badAircraft[i].addr == a.Addr {
				declare = false
				break
			}
		}
		if declare {
			for i := range r.badAircraft {
				if now-r.badAircraft[i].ts > int64(3*time.Minute/time.Millisecond) {
					r.badAircraft[i].ts = now
					r.badAircraft[i].addr = a.Addr
					declare = false
					break
				}
			}
		}
		if declare {
			r.BadExtent = now
			if t.Log != nil {
				logBadExtent(t.Log, r.ID, r.BadExtent)
			}
		}
	}

	r.PositionCounter++
	r.LastSeen = now
	r.CoverageGeohash = coverageGeohash(r)

	if distance > receiverMaxRangeM {
		return -2
	}
	return 1
}

// getLocked looks up a receiver assuming the caller already holds t.mu.
func (t *ReceiverTable) getLocked(id uint64) *Receiver {
	r := t.buckets[receiverHash(id)]
	for r != nil && r.ID != id {
		r = r.next
	}
	return r
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CheckBad reports whether the receiver is currently quarantined.
func (t *ReceiverTable) CheckBad(id uint64, now int64) bool {
	r := t.Get(id)
	return r != nil && now < r.TimedOutUntil
}

// Bad increments the receiver's bad-message counter and quarantines it for
// receiverTimeoutWindow once the counter reaches 6. Matches receiverBad()'s
// "badCounter > 5.99" float threshold and the 2/3-of-timeout re-entry guard.
func (t *ReceiverTable) Bad(id uint64, addr uint32, now int64) *Receiver {
	r := t.Get(id)
	if r == nil {
		r = t.Create(id, now)
		if r == nil {
			return nil
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	guard := now + int64(receiverTimeoutWindow*2/3/time.Millisecond)
	if guard <= r.TimedOutUntil {
		return nil
	}

	r.LastSeen = now
	r.BadCounter++
	if r.BadCounter > 5.99 {
		r.TimedOutCounter++
		r.TimedOutUntil = now + int64(receiverTimeoutWindow/time.Millisecond)
		r.GoodCounter = 0
		r.BadCounter = 0
		if t.Log != nil {
			logReceiverQuarantine(t.Log, r.ID, r.TimedOutUntil)
		}
		if t.Metrics != nil {
			t.Metrics.ReceiverQuarantines.Inc()
		}
	}
	return r
}

// GetReference returns a receiver's coverage box center for use as a rough
// reference location to globally decode an isolated CPR fragment, subject
// to the positionCounter/badExtent gates in §4.5.
func (t *ReceiverTable) GetReference(id uint64, viewOrFocusMode bool) (lat, lon float64, ok bool) {
	r := t.Get(id)
	if r == nil {
		return 0, 0, false
	}

	latDiff := r.LatMax - r.LatMin
	lonDiff := r.LonMax - r.LonMin
	lat = r.LatMin + latDiff/2
	lon = r.LonMin + lonDiff/2

	required := uint64(100)
	if viewOrFocusMode {
		required = 4
	}
	if r.PositionCounter < required || r.BadExtent != 0 {
		return lat, lon, false
	}
	return lat, lon, true
}

// coverageGeohash derives a coarse (precision-4, ~20km cell) geohash from
// a receiver's coverage-box center; descriptive only, see SPEC_FULL.md
// §4.4 -- it never gates acceptance or reference lookup.
func coverageGeohash(r *Receiver) string {
	latDiff := r.LatMax - r.LatMin
	lonDiff := r.LonMax - r.LonMin
	lat := r.LatMin + latDiff/2
	lon := r.LonMin + lonDiff/2
	return geohashEncode(lat, lon, 4)
}
