//go:build mage

// Package main provides build targets for the datashelf project using Mage.
//
// Usage:
//
//	mage build          Compile all packages
//	mage test           Run all tests
//	mage testRace       Run all tests with the race detector
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
package main

import (
	"github.com/magefile/mage/sh"
)

const (
	binGo   = "go"
	binLint = "golangci-lint"
)

// Build compiles all packages.
func Build() error {
	return sh.RunV(binGo, "build", "./...")
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// TestRace runs all tests with the race detector. The batch-edit path
// is lock-heavy; keep this green.
func TestRace() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.RunV(binGo, "clean")
}
