//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Redis container constants for the reference upstream's redis backend.
const (
	redisImage     = "redis:7-alpine"
	redisContainer = "roster-redis"
	redisPort      = "6379"
)

// Redis groups the development Redis container targets.
type Redis mg.Namespace

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// Up starts Redis on 127.0.0.1:6379. Run the upstream against it with
// ROSTER_BACKEND=redis roster upstream.
func (Redis) Up() error {
	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (install podman or docker)")
	}
	cmd := exec.Command(rt, "run", "-d", "--rm",
		"--name", redisContainer,
		"-p", "127.0.0.1:"+redisPort+":"+redisPort,
		redisImage)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Down stops the Redis container. A container that is not running is not
// an error.
func (Redis) Down() error {
	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (install podman or docker)")
	}
	_ = exec.Command(rt, "stop", redisContainer).Run()
	return nil
}
