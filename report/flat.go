package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// RenderFlat joins flat entries with newlines.
func RenderFlat(entries []string) string {
	return strings.Join(entries, "\n")
}

// WriteFlat writes one entry per line.
func WriteFlat(w io.Writer, entries []string) error {
	bw := bufio.NewWriter(w)
	for _, entry := range entries {
		if _, err := bw.WriteString(entry); err != nil {
			return fmt.Errorf("failed to write flat index: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write flat index: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write flat index: %w", err)
	}
	return nil
}

// ReadFlat reads a file written by WriteFlat back into entries.
func ReadFlat(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		entries = append(entries, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flat index: %w", err)
	}
	return entries, nil
}

// SaveFlat writes the flat index to path.
func SaveFlat(path string, entries []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteFlat(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
