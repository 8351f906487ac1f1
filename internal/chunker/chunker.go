// Package chunker packs transcript lines into windows small enough for one
// summarization prompt.
package chunker

import (
	"strings"
)

const (
	DefaultTargetSize = 4000
	DefaultMaxSize    = 6000
)

// Options configures windowing.
type Options struct {
	// TargetSize is the size, in bytes, a window grows to before a new one
	// starts.
	TargetSize int
	// MaxSize caps a single line; longer lines are split on word boundaries.
	MaxSize int
}

// DefaultOptions returns default windowing options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Window is a run of consecutive transcript lines. StartLine and EndLine are
// 1-based and inclusive.
type Window struct {
	Text      string
	StartLine int
	EndLine   int
}

// Windows groups lines into windows of roughly opts.TargetSize bytes without
// reordering them. Blank lines are skipped. A transcript that fits in one
// window returns a single window.
func Windows(lines []string, opts Options) []Window {
	if opts.TargetSize <= 0 {
		opts = DefaultOptions()
	}
	if opts.MaxSize < opts.TargetSize {
		opts.MaxSize = opts.TargetSize
	}

	var results []Window
	var current []string
	curStart, curLen := 0, 0

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		results = append(results, Window{
			Text:      strings.Join(current, "\n"),
			StartLine: curStart,
			EndLine:   endLine,
		})
		current = nil
		curLen = 0
	}

	for i, line := range lines {
		lineNum := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Oversized lines become windows of their own
		if len(line) > opts.MaxSize {
			flush(lineNum - 1)
			for _, part := range hardSplit(line, opts.TargetSize) {
				results = append(results, Window{Text: part, StartLine: lineNum, EndLine: lineNum})
			}
			continue
		}

		if curLen+len(line) > opts.TargetSize && len(current) > 0 {
			flush(lineNum - 1)
		}
		if len(current) == 0 {
			curStart = lineNum
		}
		current = append(current, line)
		curLen += len(line) + 1 // +1 for newline
	}
	flush(len(lines))

	return results
}

// hardSplit breaks text longer than size on whitespace. A single word longer
// than size is kept whole.
func hardSplit(text string, size int) []string {
	var parts []string
	var b strings.Builder
	for _, word := range strings.Fields(text) {
		if b.Len() > 0 && b.Len()+1+len(word) > size {
			parts = append(parts, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}
