// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"iter"
	"log"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader decodes a newline-delimited JSON generate stream into text
// increments. It is single-pass and not safe for concurrent use.
type StreamReader struct {
	reader *bufio.Reader
	err    error

	lines int
	noise int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Next returns the next text increment. It returns io.EOF once the
// underlying stream is exhausted, or the read error that ended it.
//
// Lines that are JSON objects yield their "response" field, else their
// "text" field; objects with neither are skipped. Lines that are not JSON
// objects are returned verbatim with Raw set.
func (s *StreamReader) Next() (Fragment, error) {
	for {
		if s.err != nil {
			return Fragment{}, s.err
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			// The last line may arrive without a terminator.
			s.err = err
		}

		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		s.lines++

		if frag, ok := s.decodeLine(line); ok {
			return frag, nil
		}
	}
}

// decodeLine turns one non-empty line into a fragment. ok is false when the
// line carries no text.
func (s *StreamReader) decodeLine(line []byte) (Fragment, bool) {
	var chunk generateChunk
	if err := json.Unmarshal(line, &chunk); err != nil || chunk == nil {
		s.noise++
		log.Printf("DECODE_NOISE | line=%d bytes=%d", s.lines, len(line))
		return Fragment{Text: string(line), Raw: true}, true
	}

	if msg := chunk.stringField("error"); msg != "" {
		log.Printf("STREAM_ERROR | line=%d error=%q", s.lines, msg)
	}

	text := chunk.text()
	if text == "" {
		return Fragment{}, false
	}
	return Fragment{Text: text}, true
}

// Fragments returns the remaining increments as an iterator. A read error
// other than io.EOF is yielded once as the final element.
func (s *StreamReader) Fragments() iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for {
			frag, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Fragment{}, err)
				return
			}
			if !yield(frag, nil) {
				return
			}
		}
	}
}

// LineCount returns the number of non-empty lines read so far.
func (s *StreamReader) LineCount() int {
	return s.lines
}

// NoiseCount returns how many lines were surfaced verbatim.
func (s *StreamReader) NoiseCount() int {
	return s.noise
}
