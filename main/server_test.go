/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	server_test.go: unit tests for the HTTP transport.
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDBJSONShape(t *testing.T) {
	dir := NewDirectory()

	withReg := dir.GetOrCreate(0x400000, 0)
	withReg.Registration = "G-ABCD"
	withReg.TypeCode = "B738"

	noReg := dir.GetOrCreate(0x500000|NonICAOBit, 0)
	_ = noReg

	srv := NewServer(dir, NewReceiverTable(), NewDB(), NewMetrics(), DefaultConfig(), NewLogger(DefaultConfig()), func() int64 { return 1000 })

	req := httptest.NewRequest(http.MethodGet, "/db.json", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out map[string]dbJSONEntry
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal db.json: %v", err)
	}

	entry, ok := out["400000"]
	if !ok {
		t.Fatalf("missing key 400000 in %v", out)
	}
	if entry.Registration != "G-ABCD" || entry.TypeCode != "B738" {
		t.Errorf("entry = %+v", entry)
	}

	entry2, ok := out["~500000"]
	if !ok {
		t.Fatalf("missing non-ICAO key, got %v", out)
	}
	if !entry2.NoRegData {
		t.Errorf("expected noRegData for an aircraft with no static metadata, got %+v", entry2)
	}
}

func TestReceiversJSONShape(t *testing.T) {
	receivers := NewReceiverTable()
	r := receivers.Create(0x0102030405060708, 0)
	r.LatMin, r.LatMax = 48.0, 49.0
	r.LonMin, r.LonMax = 11.0, 12.0
	r.PositionCounter = 100

	srv := NewServer(NewDirectory(), receivers, NewDB(), NewMetrics(), DefaultConfig(), NewLogger(DefaultConfig()), func() int64 { return 100_000 })

	req := httptest.NewRequest(http.MethodGet, "/receivers.json", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out struct {
		Now       int64           `json:"now"`
		Receivers [][]interface{} `json:"receivers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal receivers.json: %v", err)
	}
	if out.Now != 100_000 {
		t.Errorf("now = %d, want 100000", out.Now)
	}
	if len(out.Receivers) != 1 || len(out.Receivers[0]) != 10 {
		t.Fatalf("receivers = %v, want one 10-element row", out.Receivers)
	}
	if out.Receivers[0][0] != sprintUUID1(r.ID) {
		t.Errorf("uuid = %v, want %s", out.Receivers[0][0], sprintUUID1(r.ID))
	}
}

func TestMetricsEndpointIsValidExposition(t *testing.T) {
	metrics := NewMetrics()
	metrics.AircraftTracked.Set(42)

	srv := NewServer(NewDirectory(), NewReceiverTable(), NewDB(), metrics, DefaultConfig(), NewLogger(DefaultConfig()), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "trackerd_aircraft_tracked 42") {
		t.Errorf("expected aircraft_tracked gauge in exposition, got:\n%s", body)
	}
}
