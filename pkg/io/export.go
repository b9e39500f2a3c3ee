package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// indent is the indentation used by the ETF reporting tool's own exports.
const indent = "    "

// WriteJSON encodes v as indented JSON and writes it to w.
// HTML characters are not escaped so that labels such as "<1%" stay
// readable.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes v to the file at path; "-" writes stdout.
//
// The file is written to a temporary sibling first and renamed into place,
// so a failed export never leaves a half-written file behind.
func ExportJSON(path string, v any) error {
	if path == "" || path == StdStream {
		bw := bufio.NewWriter(os.Stdout)
		if err := WriteJSON(bw, v); err != nil {
			return err
		}
		return bw.Flush()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := WriteJSON(bw, v); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
