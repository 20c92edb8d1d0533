package model

// ParsedSignals holds the structural signals extracted from one logical
// log entry. Derived purely from the entry text; never fails — unknown
// fields default safely.
type ParsedSignals struct {
	Level          Level
	Component      string // dotted path under org.apache.hadoop, or "unknown"
	HasStackTrace  bool
	StackTrace     string // continuation lines, empty when absent
	ExceptionType  string // from the first line of a stack-trace entry
}

// PatternMatch is the outcome of the ordered rule table applied to one
// entry. The zero value is not meaningful; the classifier always returns
// at least the UNKNOWN/GENERAL fallback.
type PatternMatch struct {
	Category        Category
	SubType         string
	DurationMS      int     // 0 when the rule carries no duration
	SourceComponent string  // rule-specific component, empty when unset
	ScoreFloor      float64 // minimum final score imposed by the rule, 0 when none
}
