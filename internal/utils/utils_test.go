//nolint:nolintlint,revive // utils is a common and acceptable package name for utility functions.
package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/songbook-offline/internal/constants"
)

// TestSafeUint64ToInt64 tests the SafeUint64ToInt64 function.
func TestSafeUint64ToInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    uint64
		expected int64
	}{
		{
			name:     "normal value",
			input:    100,
			expected: 100,
		},
		{
			name:     "zero value",
			input:    0,
			expected: 0,
		},
		{
			name:     "max int64 value",
			input:    9223372036854775807,
			expected: 9223372036854775807,
		},
		{
			name:     "value exceeding max int64",
			input:    9223372036854775808,
			expected: 9223372036854775807,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := SafeUint64ToInt64(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestSanitizeFilename tests the SanitizeFilename function.
func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "valid filename",
			input:    "song-42.mp3",
			expected: "song-42.mp3",
		},
		{
			name:     "invalid characters",
			input:    "song<42>.txt",
			expected: "song_42_.txt",
		},
		{
			name:     "path separators",
			input:    "../etc/passwd",
			expected: ".._etc_passwd",
		},
		{
			name:     "Windows reserved name",
			input:    "CON",
			expected: "_CON",
		},
		{
			name:     "trailing dots",
			input:    "song...",
			expected: "song",
		},
		{
			name:     "only dots",
			input:    "...",
			expected: "_",
		},
		{
			name:     "control characters",
			input:    "song\x00id",
			expected: "song_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestSetFileExtension tests the SetFileExtension function.
func TestSetFileExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		filename  string
		extension string
		replace   bool
		expected  string
	}{
		{
			name:      "add extension to file without extension",
			filename:  "lyrics",
			extension: ".txt",
			replace:   false,
			expected:  "lyrics.txt",
		},
		{
			name:      "add extension without dot",
			filename:  "lyrics",
			extension: "txt",
			replace:   false,
			expected:  "lyrics.txt",
		},
		{
			name:      "replace existing extension",
			filename:  "audio.bin",
			extension: constants.ExtensionMP3,
			replace:   true,
			expected:  "audio.mp3",
		},
		{
			name:      "keep existing extension when not replacing",
			filename:  "audio.mp3",
			extension: constants.ExtensionPart,
			replace:   false,
			expected:  "audio.mp3.part",
		},
		{
			name:      "same extension",
			filename:  "score.pdf",
			extension: constants.ExtensionPDF,
			replace:   true,
			expected:  "score.pdf",
		},
		{
			name:      "empty extension",
			filename:  "score",
			extension: "",
			replace:   true,
			expected:  "score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := SetFileExtension(tt.filename, tt.extension, tt.replace)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestExtensionFromURL tests the ExtensionFromURL function.
func TestExtensionFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rawURL   string
		expected string
	}{
		{
			name:     "mp3 file",
			rawURL:   "https://cdn.example.com/songs/42/a.mp3",
			expected: ".mp3",
		},
		{
			name:     "uppercase extension with query",
			rawURL:   "https://cdn.example.com/score.PDF?token=abc",
			expected: ".pdf",
		},
		{
			name:     "no extension",
			rawURL:   "https://cdn.example.com/lyrics",
			expected: "",
		},
		{
			name:     "too long extension",
			rawURL:   "https://cdn.example.com/file.verylongextension",
			expected: "",
		},
		{
			name:     "unsafe extension",
			rawURL:   "https://cdn.example.com/file.m%20p3",
			expected: "",
		},
		{
			name:     "malformed url",
			rawURL:   "://bad",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ExtensionFromURL(tt.rawURL))
		})
	}
}

// TestIsFileExist tests the IsFileExist function.
func TestIsFileExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	filePath := filepath.Join(dir, "audio.mp3")

	require.NoError(t, os.WriteFile(filePath, []byte("data"), constants.DefaultFilePermissions))

	// Test existing file.
	exists, err := IsFileExist(filePath)
	require.NoError(t, err)
	assert.True(t, exists)

	// Directories are not files.
	exists, err = IsFileExist(dir)
	require.NoError(t, err)
	assert.False(t, exists)

	// Test non-existing file.
	exists, err = IsFileExist(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestReadUniqueLinesFromFile tests the ReadUniqueLinesFromFile function.
func TestReadUniqueLinesFromFile(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "ids.txt")

	content := "song-1\nsong-2\n\nsong-1\n  song-3  \nsong-2\n"
	require.NoError(t, os.WriteFile(filePath, []byte(content), constants.DefaultFilePermissions))

	lines, err := ReadUniqueLinesFromFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"song-1", "song-2", "song-3"}, lines)

	// Test non-existing file.
	_, err = ReadUniqueLinesFromFile("/non/existing/file")
	require.Error(t, err)
}

// TestUniqueNonEmpty tests the UniqueNonEmpty function.
func TestUniqueNonEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, UniqueNonEmpty([]string{"a", " ", "b", "a ", ""}))
	assert.Empty(t, UniqueNonEmpty(nil))
}

// TestIsTextContentType tests the IsTextContentType function.
func TestIsTextContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		expected    bool
	}{
		{
			name:        "text/plain",
			contentType: "text/plain",
			expected:    true,
		},
		{
			name:        "text/html with charset",
			contentType: "text/html; charset=utf-8",
			expected:    true,
		},
		{
			name:        "application/json",
			contentType: "application/json",
			expected:    true,
		},
		{
			name:        "application/yaml",
			contentType: "application/yaml",
			expected:    true,
		},
		{
			name:        "audio/mpeg",
			contentType: "audio/mpeg",
			expected:    false,
		},
		{
			name:        "text with invalid charset",
			contentType: "text/plain; charset=invalid",
			expected:    false,
		},
		{
			name:        "invalid content type",
			contentType: "invalid",
			expected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := IsTextContentType(tt.contentType)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestMap tests the Map function.
func TestMap(t *testing.T) {
	t.Parallel()

	// Test with string slice.
	input := []string{"hello", "world"}
	result := Map(input, strings.ToUpper)
	expected := []string{"HELLO", "WORLD"}
	assert.Equal(t, expected, result)

	// Test with empty slice.
	empty := []string{}
	result = Map(empty, strings.ToUpper)
	assert.Empty(t, result)
}
