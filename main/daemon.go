/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	daemon.go: OS service install/remove/start/stop (SPEC_FULL.md §4.9),
	gated behind a -service flag; running in the foreground never touches
	the service manager. Backed by takama/daemon, one of montge-stratux's
	go.mod dependencies.
*/

package main

import (
	"fmt"

	"github.com/takama/daemon"
)

const (
	serviceName        = "trackerd"
	serviceDescription = "Mode-S/ADS-B aircraft state tracker"
)

// ServiceAction dispatches one of "install", "remove", "start", "stop",
// "status" against the OS service manager and returns its status message.
func ServiceAction(action string) (string, error) {
	d, err := daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
	if err != nil {
		return "", fmt.Errorf("daemon: %w", err)
	}

	switch action {
	case "install":
		return d.Install()
	case "remove":
		return d.Remove()
	case "start":
		return d.Start()
	case "stop":
		return d.Stop()
	case "status":
		return d.Status()
	default:
		return "", fmt.Errorf("daemon: unknown service action %q", action)
	}
}
