package parser

import (
	"strings"
	"testing"

	"github.com/ashmont/kestrel/internal/model"
)

const pauseEntry = "2024-01-01 10:00:00,123 WARN org.apache.hadoop.util.JvmPauseMonitor: Detected pause in JVM or host machine (eg GC): pause of approximately 8000ms\nNo GCs detected"

const npeEntry = "2024-01-01 10:00:01,456 ERROR org.apache.hadoop.yarn.YarnUncaughtExceptionHandler: Thread Thread[Timer-0,5,main] threw an Exception.\njava.lang.NullPointerException\n    at org.apache.hadoop.yarn.server.resourcemanager.security.RMContainerTokenSecretManager.activateNextMasterKey(RMContainerTokenSecretManager.java:146)\n    at java.util.TimerThread.mainLoop(Timer.java:555)"

func TestDetectLevelPrecedence(t *testing.T) {
	tests := []struct {
		entry string
		want  model.Level
	}{
		{"FATAL something ERROR WARN INFO", model.LevelFatal},
		{"ERROR with a WARN and INFO inside", model.LevelError},
		{"WARN but also INFO", model.LevelWarn},
		{"INFO only", model.LevelInfo},
		{"nothing notable here", model.LevelUnknown},
		{"", model.LevelUnknown},
	}

	for _, tt := range tests {
		got := Parse(tt.entry).Level
		if got != tt.want {
			t.Errorf("Parse(%q).Level = %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestParseComponent(t *testing.T) {
	sig := Parse("2024-01-01 FATAL org.apache.hadoop.hdfs.server.datanode.DataNode: DataNode is shutting down")
	if sig.Component != "hdfs.server.datanode.DataNode" {
		t.Errorf("expected DataNode component, got %q", sig.Component)
	}

	sig = Parse("ERROR no hadoop logger name here")
	if sig.Component != "unknown" {
		t.Errorf("expected unknown component, got %q", sig.Component)
	}
}

func TestParseStackTrace(t *testing.T) {
	sig := Parse(npeEntry)
	if !sig.HasStackTrace {
		t.Fatal("expected stack trace detection")
	}
	if !strings.Contains(sig.StackTrace, "NullPointerException") {
		t.Errorf("stack trace missing exception line: %q", sig.StackTrace)
	}
	if !strings.Contains(sig.StackTrace, "TimerThread.mainLoop") {
		t.Errorf("stack trace missing frames: %q", sig.StackTrace)
	}
}

func TestParseTabIndentedTrace(t *testing.T) {
	entry := "ERROR: connection refused\n\tat com.example.Main.connect(Main.java:42)"
	sig := Parse(entry)
	if !sig.HasStackTrace {
		t.Error("expected tab-indented continuation to count as a stack trace")
	}
}

func TestParseNoStackTrace(t *testing.T) {
	sig := Parse(pauseEntry)
	// "No GCs detected" is a continuation, but not a stack frame.
	if sig.HasStackTrace {
		t.Error("expected no stack trace for JVM pause entry")
	}
	if sig.StackTrace != "" {
		t.Errorf("expected empty stack trace text, got %q", sig.StackTrace)
	}
}

func TestExceptionType(t *testing.T) {
	sig := Parse(npeEntry)
	if sig.ExceptionType != "Thread Thread[Timer-0,5,main] threw an Exception." {
		t.Errorf("unexpected exception type %q", sig.ExceptionType)
	}

	sig = Parse("ERROR bare line with no colon delimiter\n\tat com.example.Main.run(Main.java:10)")
	if sig.ExceptionType != "Unknown Exception" {
		t.Errorf("expected default exception type, got %q", sig.ExceptionType)
	}
}

func TestSplitKeepsTracesTogether(t *testing.T) {
	blob := pauseEntry + "\n" + npeEntry + "\n2024-01-01 10:00:02,000 INFO org.apache.hadoop.hdfs.server.namenode.FSNamesystem: Roll Edit Log from 172.18.0.2"

	entries := Split(blob)
	if len(entries) != 3 {
		t.Fatalf("expected 3 logical entries, got %d: %#v", len(entries), entries)
	}
	if entries[0] != pauseEntry {
		t.Errorf("first entry split incorrectly: %q", entries[0])
	}
	if entries[1] != npeEntry {
		t.Errorf("stack trace split mid-trace: %q", entries[1])
	}
}

func TestSplitBareSeverityStart(t *testing.T) {
	blob := "ERROR org.apache.hadoop.hdfs.server.datanode.DataNode: one\nINFO org.apache.hadoop.hdfs.server.namenode.FSNamesystem: two"
	entries := Split(blob)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split(""); len(got) != 0 {
		t.Errorf("expected no entries for empty input, got %v", got)
	}
	if got := Split("\n\n  \n"); len(got) != 0 {
		t.Errorf("expected no entries for blank input, got %v", got)
	}
}

func TestSplitLeadingContinuation(t *testing.T) {
	// A continuation with no preceding entry still forms its own entry
	// rather than being dropped.
	entries := Split("\tat com.example.Orphan.run(Orphan.java:1)")
	if len(entries) != 1 {
		t.Fatalf("expected orphan continuation kept, got %d entries", len(entries))
	}
}
