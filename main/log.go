/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	log.go: structured logging (SPEC_FULL.md §4.9). Every former
	fprintf(stderr, ...) diagnostic becomes a logrus entry at a matching
	level; dustin/go-humanize formats counts and durations in the
	messages that carry them.
*/

package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the daemon's root logger: text formatter with full
// timestamps, level controlled by cfg.DebugReceiver/DebugGarbage.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.DebugReceiver || cfg.DebugGarbage {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// logDBSwap reports a completed static metadata DB hot-swap.
func logDBSwap(log *logrus.Logger, path string, entries int, elapsed time.Duration) {
	log.WithFields(logrus.Fields{
		"path":    path,
		"entries": humanize.Comma(int64(entries)),
	}).Infof("static metadata db reloaded in %s", humanize.RelTime(time.Now().Add(-elapsed), time.Now(), "", ""))
}

// logReceiverQuarantine reports a receiver entering quarantine.
func logReceiverQuarantine(log *logrus.Logger, id uint64, until int64) {
	log.WithFields(logrus.Fields{
		"receiver_id": id,
		"until_ms":    until,
	}).Warn("receiver quarantined for excessive bad messages")
}

// logBadExtent reports a receiver's coverage box being declared bad.
func logBadExtent(log *logrus.Logger, id uint64, declaredAt int64) {
	log.WithFields(logrus.Fields{
		"receiver_id": id,
		"declared_at": humanize.Time(time.UnixMilli(declaredAt)),
	}).Warn("receiver coverage extent declared bad")
}

// logResourceExhaustion reports a table hitting its capacity ceiling.
func logResourceExhaustion(log *logrus.Logger, table string, count int) {
	log.WithFields(logrus.Fields{
		"table": table,
		"count": humanize.Comma(int64(count)),
	}).Error("resource exhaustion: refusing new entries")
}
