/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	metrics_test.go: unit tests for the Prometheus collectors.
*/

package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsSample(t *testing.T) {
	dir := NewDirectory()
	dir.GetOrCreate(0x400000, 0)
	dir.GetOrCreate(0x400001, 0)

	receivers := NewReceiverTable()
	receivers.Create(1, 0)

	m := NewMetrics()
	m.Sample(dir, receivers)

	if got := testutil.ToFloat64(m.AircraftTracked); got != 2 {
		t.Errorf("AircraftTracked = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ReceiversTracked); got != 1 {
		t.Errorf("ReceiversTracked = %v, want 1", got)
	}
}

func TestMetricsQuickCacheCounters(t *testing.T) {
	dir := NewDirectory()
	m := NewMetrics()
	dir.Metrics = m

	dir.GetOrCreate(0x400000, 0) // first touch: miss; the new record is chained, not cached
	dir.Get(0x400000)            // miss: chain hit, installed into the cache
	dir.Get(0x400000)            // hit

	if got := testutil.ToFloat64(m.QuickCacheHits); got < 1 {
		t.Errorf("QuickCacheHits = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(m.QuickCacheMisses); got < 1 {
		t.Errorf("QuickCacheMisses = %v, want >= 1", got)
	}
}

func TestMetricsMessageOutcomeCounters(t *testing.T) {
	p := newTestPipeline()
	m := NewMetrics()
	p.Metrics = m

	accepted := &ModeSMessage{
		Addr: 0x2001, Source: SourceADSB, ReceiverID: 1, Now: 0,
		DirectPosValid: true, DirectLat: 10.0, DirectLon: 20.0,
	}
	p.UpdateFromMessage(accepted)
	if got := testutil.ToFloat64(m.Messages.WithLabelValues(OutcomeAccepted)); got != 1 {
		t.Errorf("accepted count = %v, want 1", got)
	}

	quarantined := &ModeSMessage{Addr: 0x2001, Source: SourceADSB, ReceiverID: 2, Now: 0}
	p.Receivers.Bad(2, 0x2001, 0)
	for i := 0; i < 5; i++ {
		p.Receivers.Bad(2, 0x2001, int64(i))
	}
	p.UpdateFromMessage(quarantined)
	if got := testutil.ToFloat64(m.Messages.WithLabelValues(OutcomeRejectedQuarantinedRecv)); got != 1 {
		t.Errorf("rejected_quarantined_receiver count = %v, want 1", got)
	}

	// Stale source: a lower-source update arriving while the field is
	// still fresh is rejected rather than overwriting it.
	first := &ModeSMessage{
		Addr: 0x2002, Source: SourceADSB, ReceiverID: 3, Now: 0,
		DirectPosValid: true, DirectLat: 10.0, DirectLon: 20.0,
	}
	stale := &ModeSMessage{
		Addr: 0x2002, Source: SourceModeS, ReceiverID: 3, Now: 1000,
		DirectPosValid: true, DirectLat: 10.0, DirectLon: 20.0,
	}
	p.UpdateFromMessage(first)
	p.UpdateFromMessage(stale)
	if got := testutil.ToFloat64(m.Messages.WithLabelValues(OutcomeRejectedStaleSource)); got != 1 {
		t.Errorf("rejected_stale_source count = %v, want 1", got)
	}
}

func TestMetricsReceiverQuarantineCounter(t *testing.T) {
	receivers := NewReceiverTable()
	m := NewMetrics()
	receivers.Metrics = m

	for i := 0; i < 7; i++ {
		receivers.Bad(1, 0x400000, int64(i)*1000)
	}

	if got := testutil.ToFloat64(m.ReceiverQuarantines); got != 1 {
		t.Errorf("ReceiverQuarantines = %v, want 1", got)
	}
}
