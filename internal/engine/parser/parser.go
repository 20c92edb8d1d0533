// Package parser extracts structural signals from raw HDFS/Hadoop log text.
// All functions are pure: no I/O, no failure modes — unknown fields default
// safely.
package parser

import (
	"regexp"
	"strings"

	"github.com/ashmont/kestrel/internal/model"
)

// componentRe captures the dotted class path of a Hadoop logger name,
// e.g. "org.apache.hadoop.hdfs.server.datanode.DataNode:" →
// "hdfs.server.datanode.DataNode".
var componentRe = regexp.MustCompile(`org\.apache\.hadoop\.([\w.$]+):`)

// entryStartRe recognizes the first line of a new logical entry: an
// ISO-style date prefix, optionally followed by anything, or a line that
// leads with a bare severity token.
var entryStartRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]|FATAL |ERROR |WARN |INFO )`)

// defaultExceptionType is reported when a stack-trace entry's first line
// carries no ": "-delimited message.
const defaultExceptionType = "Unknown Exception"

// Split breaks a raw multi-line blob into logical entries. A logical entry
// may span multiple physical lines: continuation lines (tab-indented,
// stack-trace "at ..." frames, or any line that does not look like a new
// entry) attach to the previous entry, so stack traces are never split
// mid-trace. Blank lines are skipped.
func Split(blob string) []string {
	var entries []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			entries = append(entries, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(blob, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if entryStartRe.MatchString(line) {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return entries
}

// Parse extracts severity level, source component, and stack-trace signals
// from one logical entry.
func Parse(entry string) model.ParsedSignals {
	sig := model.ParsedSignals{
		Level:     detectLevel(entry),
		Component: "unknown",
	}

	if m := componentRe.FindStringSubmatch(entry); m != nil {
		sig.Component = m[1]
	}

	lines := strings.Split(entry, "\n")
	if len(lines) > 1 && hasTraceContinuation(lines[1:]) {
		sig.HasStackTrace = true
		sig.StackTrace = strings.Join(lines[1:], "\n")
		sig.ExceptionType = exceptionType(lines[0])
	}
	return sig
}

// detectLevel checks for severity tokens in fixed precedence: FATAL beats
// ERROR beats WARN beats INFO. Absence of all four yields UNKNOWN.
func detectLevel(entry string) model.Level {
	switch {
	case strings.Contains(entry, "FATAL"):
		return model.LevelFatal
	case strings.Contains(entry, "ERROR"):
		return model.LevelError
	case strings.Contains(entry, "WARN"):
		return model.LevelWarn
	case strings.Contains(entry, "INFO"):
		return model.LevelInfo
	default:
		return model.LevelUnknown
	}
}

// hasTraceContinuation reports whether any continuation line is a stack
// frame: tab-indented, or an "at " frame under optional leading whitespace.
func hasTraceContinuation(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, "\t") {
			return true
		}
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "at ") {
			return true
		}
	}
	return false
}

// exceptionType extracts the text after the last ": " on a stack-trace
// entry's first line.
func exceptionType(firstLine string) string {
	if i := strings.LastIndex(firstLine, ": "); i >= 0 {
		if t := strings.TrimSpace(firstLine[i+2:]); t != "" {
			return t
		}
	}
	return defaultExceptionType
}
