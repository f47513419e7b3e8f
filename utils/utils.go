package utils

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Filters elements of a slice by comparing them to the elements of a reference slice.
// formatMsg is an optional format string with a single format argument that can be used
// to add context on why the element may be missing from the reference slice
func FilterSlice[T comparable](slice, reference []T, formatMsg string) []T {
	if slice == nil {
		return reference
	}

	if formatMsg == "" {
		formatMsg = "User input '%v' not present in reference, skipping"
	}

	out := make([]T, 0, len(slice))
	for _, s := range slice {
		if !slices.Contains(reference, s) {
			slog.Warn(fmt.Sprintf(formatMsg, s))
			continue
		}
		out = append(out, s)
	}
	return out
}

// SplitList splits a comma separated flag value, an empty string gives nil
func SplitList(input string) []string {
	if input == "" {
		return nil
	}

	var out []string
	for _, s := range strings.Split(input, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SetLogFile redirects the default logger to '<dir>/<name>_<procedure>_log.txt'.
// The returned file should be closed once the procedure is done.
func SetLogFile(dir, name, procedure string) (*os.File, error) {
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s_log.txt", name, procedure))
	fh, err := os.Create(filename)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not create log '%s': %s", filename, err))
		return nil, err
	}
	log.SetOutput(fh)
	return fh, nil
}

// ResetLogOutput sends the default logger back to stderr
func ResetLogOutput() {
	log.SetOutput(os.Stderr)
}
