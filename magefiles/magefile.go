//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the ull project using Mage.
//
// Usage:
//
//	mage build           Compile the ull binary to bin/
//	mage test            Run all tests, including container-backed ones
//	mage testUnit        Run tests in short mode (no containers)
//	mage testIntegration Run the PostgreSQL integration tests
//	mage lint            Run golangci-lint
//	mage clean           Remove build artifacts
//	mage install         Install ull to GOPATH/bin
//	mage stats           Print Go lines of code per top-level directory
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "ull"
	binaryDir  = "bin"
	cmdDir     = "./cmd/ull"
)

// Build compiles the ull binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests. The PostgreSQL tests need a Docker daemon.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestUnit runs all tests in short mode, skipping container-backed tests.
func TestUnit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// TestIntegration runs only the container-backed integration tests.
func TestIntegration() error {
	return sh.RunV(binGo, "test", "-run", "Integration", "./internal/meaning/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Stats prints Go lines of code, split into production and test code, for
// each top-level directory.
func Stats() error {
	type counts struct{ prod, test int }
	byDir := map[string]*counts{}

	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			switch path {
			case "vendor", ".git", binaryDir, "magefiles", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		top := strings.SplitN(filepath.ToSlash(path), "/", 2)[0]
		c, ok := byDir[top]
		if !ok {
			c = &counts{}
			byDir[top] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var total counts
	fmt.Printf("%-12s %8s %8s\n", "dir", "prod", "test")
	for _, d := range dirs {
		c := byDir[d]
		fmt.Printf("%-12s %8d %8d\n", d, c.prod, c.test)
		total.prod += c.prod
		total.test += c.test
	}
	fmt.Printf("%-12s %8d %8d\n", "total", total.prod, total.test)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
