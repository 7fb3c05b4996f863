//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles both executables into ./bin.
func Build() error {
	mg.Deps(BuildSimulate, BuildScans)
	fmt.Println("Compilation finished")
	return nil
}

// The HDF5 bindings need cgo, flags are taken from the environment.
func goCommand(args ...string) *exec.Cmd {
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
		fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func BuildSimulate() error {
	fmt.Println("Building simulate executable...")
	return goCommand("build", "-o", "./bin/simulate", "./simulate").Run()
}

func BuildScans() error {
	fmt.Println("Building scans executable...")
	return goCommand("build", "-o", "./bin/scans", "./scans").Run()
}

// Test runs every package test with the race detector.
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "-race", "./...").Run()
}
