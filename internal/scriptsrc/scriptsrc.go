// Package scriptsrc acquires script text: the bootstrap (environment)
// script that wraps the raw host bindings, and user scripts, which may be
// written in TypeScript and are transpiled with esbuild.
package scriptsrc

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/cryguy/scripthost/internal/core"
)

//go:embed obs-script.js
var defaultBootstrap string

// DefaultBootstrap returns the embedded environment script.
func DefaultBootstrap() string {
	return defaultBootstrap
}

// ReadBootstrap reads the environment script byte for byte. An empty path
// selects the embedded script; a path that cannot be read is an error the
// caller must treat as fatal.
func ReadBootstrap(path string) (string, error) {
	if path == "" {
		return defaultBootstrap, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not find bootstrap script %q: %w", path, err)
	}
	return string(data), nil
}

// ReadScript reads a user script. TypeScript files (.ts) are transpiled to
// JavaScript.
func ReadScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	src := string(data)
	if strings.EqualFold(filepath.Ext(path), ".ts") {
		return Transpile(src, filepath.Base(path))
	}
	return src, nil
}

// Transpile converts TypeScript source to JavaScript that both engines run.
func Transpile(src, name string) (string, error) {
	result := esbuild.Transform(src, esbuild.TransformOptions{
		Loader:     esbuild.LoaderTS,
		Target:     esbuild.ES2020,
		Sourcefile: name,
	})
	if len(result.Errors) > 0 {
		return "", messageError(name, result.Errors)
	}
	return string(result.Code), nil
}

// Check parses src as JavaScript without running it. A syntax error is
// returned as a *core.ScriptError carrying the line number.
func Check(src, name string) error {
	result := esbuild.Transform(src, esbuild.TransformOptions{
		Loader:     esbuild.LoaderJS,
		Target:     esbuild.ES2020,
		Sourcefile: name,
	})
	if len(result.Errors) > 0 {
		return messageError(name, result.Errors)
	}
	return nil
}

// messageError converts the first esbuild message to a ScriptError and
// mentions how many more there were.
func messageError(name string, msgs []esbuild.Message) error {
	first := msgs[0]
	se := &core.ScriptError{Name: name, Message: first.Text}
	if first.Location != nil {
		se.Line = first.Location.Line
	}
	if len(msgs) > 1 {
		se.Message = fmt.Sprintf("%s (and %d more errors)", se.Message, len(msgs)-1)
	}
	return se
}
