package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags() {
	magicFiles = nil
	mimeOnly = true
	defaultMIME = ""
	debug = false
	list = false
}

func writeMagic(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "test.magic")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRequireFilesUnlessListing(t *testing.T) {
	resetFlags()
	defer resetFlags()

	list = false
	assert.Error(t, requireFilesUnlessListing(rootCmd, nil))
	assert.NoError(t, requireFilesUnlessListing(rootCmd, []string{"a"}))

	list = true
	assert.NoError(t, requireFilesUnlessListing(rootCmd, nil))
	assert.Error(t, requireFilesUnlessListing(rootCmd, []string{"unexpected"}))
}

func TestRunIdentifiesFileAndPrintsResult(t *testing.T) {
	resetFlags()
	defer resetFlags()

	dir := t.TempDir()
	magicPath := writeMagic(t, dir, "0 string %PDF application/pdf\n")
	filePath := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(filePath, []byte("%PDF-1.4"), 0o644))

	magicFiles = []string{magicPath}

	var out bytes.Buffer
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := run(rootCmd, []string{filePath})

	w.Close()
	os.Stdout = old
	_, _ = out.ReadFrom(r)

	require.NoError(t, runErr)
	assert.Contains(t, out.String(), "application/pdf")
}

func TestRunListsMagicPatterns(t *testing.T) {
	resetFlags()
	defer resetFlags()

	dir := t.TempDir()
	magicPath := writeMagic(t, dir, "0 string %PDF application/pdf\n")
	magicFiles = []string{magicPath}
	list = true

	var out bytes.Buffer
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := run(rootCmd, nil)

	w.Close()
	os.Stdout = old
	_, _ = out.ReadFrom(r)

	require.NoError(t, runErr)
	assert.Contains(t, out.String(), "application/pdf")
}

func TestRunReportsMissingMagicFiles(t *testing.T) {
	resetFlags()
	defer resetFlags()

	err := run(rootCmd, []string{"whatever"})
	assert.Error(t, err)
}
