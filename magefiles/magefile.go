//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the roster project using Mage.
//
// Usage:
//
//	mage build          Compile the roster binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests without the end-to-end session test
//	mage test:race      Run all tests with the race detector
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install roster to GOPATH/bin
//	mage redis:up       Start a Redis container for the redis backend
//	mage redis:down     Stop the Redis container
package main
