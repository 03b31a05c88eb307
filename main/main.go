/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	main.go: process entrypoint. Wires config, logging, metrics, the
	aircraft/receiver tables, the update pipeline, the HTTP transport and
	the periodic sweeps (stale reaping, receiver timeout, DB reload,
	snapshot broadcast) together; handles -service per SPEC_FULL.md §4.9.
*/

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ricochet2200/go-disk-usage/du"
	"github.com/sirupsen/logrus"
)

// noopCPRDecoder is the integration seam for the real CPR global/local
// decode arithmetic, which lives outside this daemon's scope (the
// demodulator and CPR math are external collaborators, §1). A production
// deployment supplies a real CPRDecoder; this keeps the binary linkable
// on its own.
type noopCPRDecoder struct{}

func (noopCPRDecoder) DecodeGlobal(odd, even CPRFragment) (float64, float64, bool) {
	return 0, 0, false
}
func (noopCPRDecoder) DecodeLocal(frag CPRFragment, refLat, refLon float64) (float64, float64, bool) {
	return 0, 0, false
}

func main() {
	configPath := flag.String("config", "", "path to trackerd.toml")
	service := flag.String("service", "", "install|remove|start|stop|status; leave empty to run in the foreground")
	flag.Parse()

	if *service != "" {
		status, err := ServiceAction(*service)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(status)
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := NewLogger(cfg)
	metrics := NewMetrics()

	db := NewDB()

	if cfg.WarmCachePath != "" {
		if wc, err := OpenWarmCache(cfg.WarmCachePath); err != nil {
			log.WithError(err).Warn("warm cache unavailable, starting cold")
		} else {
			if n, err := wc.Load(db); err != nil {
				log.WithError(err).Warn("warm cache load failed")
			} else {
				log.Infof("warm cache loaded %d static metadata entries", n)
			}
			wc.Close()
		}
	}

	// pipeline.UpdateFromMessage is the integration point for whatever
	// feeds decoded messages in (a real demodulator, a replay file, a
	// network relay); none of those are this daemon's concern, so this
	// process only owns the tables the pipeline populates.
	pipeline := NewPipeline(cfg, noopCPRDecoder{})
	pipeline.Metrics = metrics
	dir := pipeline.Directory
	receivers := pipeline.Receivers
	dir.Metrics = metrics
	receivers.Log = log
	receivers.Metrics = metrics

	server := NewServer(dir, receivers, db, metrics, cfg, log, msNow)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Handler()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	runSweeps(cfg, log, metrics, dir, receivers, db, server, stop)

	httpSrv.Close()
}

// runSweeps drives the periodic maintenance loop until stop fires: stale
// reaping, receiver timeout eviction, metrics sampling, and (when
// cfg.DBFile is set) static metadata DB reload.
func runSweeps(cfg *Config, log *logrus.Logger, metrics *Metrics, dir *Directory, receivers *ReceiverTable, db *DB, server *Server, stop <-chan os.Signal) {
	sweepTick := time.NewTicker(15 * time.Second)
	defer sweepTick.Stop()
	dbTick := time.NewTicker(60 * time.Second)
	defer dbTick.Stop()

	part := 0
	const nParts = 15

	for {
		select {
		case <-stop:
			log.Info("shutting down")
			return
		case <-sweepTick.C:
			now := msNow()
			RemoveStale(dir, now, cfg.DebugRoughReceiverLocation)
			receivers.Timeout(part, nParts, now)
			part = (part + 1) % nParts
			dir.ResizeCache()
			metrics.Sample(dir, receivers)
			dir.ForEach(func(a *Aircraft) {
				server.Broadcast(ToBinCraft(a, db, now, cfg.JSONReliable, true))
			})
		case <-dbTick.C:
			if cfg.DBFile == "" || cfg.DBFile == "none" {
				continue
			}
			start := time.Now()
			updated, err := db.Update(cfg.DBFile)
			if err != nil {
				log.WithError(err).Warn("static metadata db update failed")
				continue
			}
			if !updated {
				continue
			}
			db.FinishUpdate(dir)
			if cfg.WarmCachePath != "" {
				if wc, err := OpenWarmCache(cfg.WarmCachePath); err != nil {
					log.WithError(err).Warn("warm cache unavailable, not saved")
				} else {
					if err := wc.Save(db); err != nil {
						log.WithError(err).Warn("warm cache save failed")
					}
					wc.Close()
				}
			}
			metrics.DBReloads.Inc()
			metrics.DBReloadDuration.Observe(time.Since(start).Seconds())
			logDBSwap(log, cfg.DBFile, db.count, time.Since(start))
		}
	}
}

// writeTraceSnapshot writes buf to path, first checking that the
// filesystem backing path (expected to be a tmpfs-backed json_dir) has
// enough free space, logging and skipping rather than letting a full
// tmpfs fail the write with an opaque I/O error (§4.9 tmpfs guard).
func writeTraceSnapshot(log *logrus.Logger, path string, buf []byte) error {
	usage := du.NewDiskUsage(filepath.Dir(path))
	if usage.Available() < uint64(len(buf))*4 {
		log.Warnf("tmpfs guard: skipping write to %s, %d bytes available", path, usage.Available())
		return nil
	}
	return os.WriteFile(path, buf, 0o644)
}
