// Package io provides the JSON boundary of the etf toolkit.
//
// # Overview
//
// Both inputs of the toolkit are JSON documents: the ETF reference metadata
// (the taxonomy) and CRT data exchange files submitted by a party. This
// package decodes and encodes them and hides transport details:
//
//   - gzip and zstd compressed input is detected by its magic bytes
//   - a leading UTF-8 byte order mark is skipped
//   - numbers are decoded as [encoding/json.Number] so that reported values
//     survive a decode/encode round trip unchanged
//   - "-" as a path means stdin or stdout
//
// # Import
//
// Use [ImportJSON] to read from a path, or [ReadJSON] to read from any
// io.Reader:
//
//	var doc map[string]any
//	if err := io.ImportJSON("report.json", &doc); err != nil {
//	    log.Fatal(err)
//	}
//
// Decoding errors are wrapped with the MALFORMED_DATA code; a missing file
// gets FILE_NOT_FOUND.
//
// # Export
//
// Use [ExportJSON] to write to a path, or [WriteJSON] to write to any
// io.Writer. Output is indented with four spaces, matching the files
// produced by the ETF reporting tool.
package io
