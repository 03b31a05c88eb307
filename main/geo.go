/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	geo.go: thin wrapper around gansidui/geohash, isolated here so the
	one external call site is easy to audit/replace.
*/

package main

import "github.com/gansidui/geohash"

// geohashEncode returns a geohash string for (lat, lon) at the given
// character precision (4 ~= 20km cells, enough to bucket a receiver's
// coverage-box center for "nearby receiver" prefiltering).
func geohashEncode(lat, lon float64, precision uint) string {
	return geohash.EncodeWithPrecision(lat, lon, precision)
}
