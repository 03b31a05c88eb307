/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	server.go: the HTTP transport (SPEC_FULL.md §4.9/§6). db.json and
	receivers.json are regenerated from live state on every request, not
	served from a cached file; /stream upgrades to a gorilla/websocket
	connection fed from the periodic snapshot sweep; /metrics is the
	promhttp handler over the process's Metrics registry.
*/

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// dbJSONEntry is one value in db.json's per-aircraft map, matching §6's
// "optional fields r, t, desc, dbFlags, ownOp, year, else noRegData: true".
type dbJSONEntry struct {
	Registration string `json:"r,omitempty"`
	TypeCode     string `json:"t,omitempty"`
	Desc         string `json:"desc,omitempty"`
	DBFlags      uint8  `json:"dbFlags,omitempty"`
	OwnOp        string `json:"ownOp,omitempty"`
	Year         string `json:"year,omitempty"`
	NoRegData    bool   `json:"noRegData,omitempty"`
}

func aircraftJSONKey(a *Aircraft) string {
	if a.Addr&NonICAOBit != 0 {
		return fmt.Sprintf("~%06X", a.Addr&^NonICAOBit)
	}
	return fmt.Sprintf("%06X", a.Addr)
}

// buildDBJSON walks the live directory into the db.json map shape.
func buildDBJSON(dir *Directory) map[string]dbJSONEntry {
	out := make(map[string]dbJSONEntry)
	dir.ForEach(func(a *Aircraft) {
		if a.Registration == "" && a.TypeCode == "" && a.TypeLong == "" && a.DBFlags == 0 {
			out[aircraftJSONKey(a)] = dbJSONEntry{NoRegData: true}
			return
		}
		out[aircraftJSONKey(a)] = dbJSONEntry{
			Registration: a.Registration,
			TypeCode:     a.TypeCode,
			Desc:         a.TypeLong,
			DBFlags:      a.DBFlags,
			OwnOp:        a.OwnerOp,
			Year:         a.Year,
		}
	})
	return out
}

// receiversJSON is the wire shape of receivers.json (§6): one row per
// receiver, positionally encoded exactly as the spec's tuple.
type receiversJSON struct {
	Now       int64             `json:"now"`
	Receivers [][10]interface{} `json:"receivers"`
}

func sprintUUID1(id uint64) string {
	return fmt.Sprintf("%08x-%08x", id>>32, id&0xffffffff)
}

func buildReceiversJSON(receivers *ReceiverTable, now int64) receiversJSON {
	out := receiversJSON{Now: now}
	receivers.ForEach(func(r *Receiver) {
		elapsedS := float64(now-r.FirstSeen) / 1000.0
		posRate := 0.0
		timeoutRate := 0.0
		if elapsedS > 0 {
			posRate = float64(r.PositionCounter) / elapsedS
			timeoutRate = float64(r.TimedOutCounter) / elapsedS
		}
		latDiff := r.LatMax - r.LatMin
		lonDiff := r.LonMax - r.LonMin
		row := [10]interface{}{
			sprintUUID1(r.ID), posRate, timeoutRate,
			r.LatMin, r.LatMax, r.LonMin, r.LonMax, r.BadExtent,
			r.LatMin + latDiff/2, r.LonMin + lonDiff/2,
		}
		out.Receivers = append(out.Receivers, row)
	})
	return out
}

// Server wires the directory/receiver/DB state to HTTP handlers.
type Server struct {
	Directory *Directory
	Receivers *ReceiverTable
	DB        *DB
	Metrics   *Metrics
	Config    *Config
	Log       *logrus.Logger

	nowFn func() int64

	upgrader websocket.Upgrader

	streamMu   sync.Mutex
	streamConn map[*websocket.Conn]struct{}
}

// NewServer constructs a Server; nowFn lets tests inject a fixed clock.
func NewServer(dir *Directory, receivers *ReceiverTable, db *DB, metrics *Metrics, cfg *Config, log *logrus.Logger, nowFn func() int64) *Server {
	if nowFn == nil {
		nowFn = msNow
	}
	return &Server{
		Directory:  dir,
		Receivers:  receivers,
		DB:         db,
		Metrics:    metrics,
		Config:     cfg,
		Log:        log,
		nowFn:      nowFn,
		streamConn: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the complete routing mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/db.json", s.handleDBJSON)
	mux.HandleFunc("/receivers.json", s.handleReceiversJSON)
	mux.HandleFunc("/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleDBJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(buildDBJSON(s.Directory)); err != nil {
		s.Log.WithError(err).Error("encoding db.json")
	}
}

func (s *Server) handleReceiversJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(buildReceiversJSON(s.Receivers, s.nowFn())); err != nil {
		s.Log.WithError(err).Error("encoding receivers.json")
	}
}

// handleStream upgrades to a websocket connection and registers it to
// receive binCraft broadcasts from Broadcast as the snapshot sweep
// (re)computes them.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s.streamMu.Lock()
	s.streamConn[conn] = struct{}{}
	s.streamMu.Unlock()

	go func() {
		defer func() {
			s.streamMu.Lock()
			delete(s.streamConn, conn)
			s.streamMu.Unlock()
			conn.Close()
		}()
		// The client never sends anything meaningful; read solely to
		// detect the connection closing.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends b to every connected /stream client. Write errors are
// ignored; a broken connection is removed by its reader goroutine once its
// read fails. Called once per aircraft from the periodic snapshot sweep.
func (s *Server) Broadcast(b *BinCraft) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	if len(s.streamConn) == 0 {
		return
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return
	}
	for conn := range s.streamConn {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}
