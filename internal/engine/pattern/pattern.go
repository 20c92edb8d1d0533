// Package pattern maps log entry text to a deterministic anomaly category
// via an ordered rule table. Rules are evaluated in declaration order and
// the first match wins, so ambiguous lines (e.g. a DataNode line that also
// mentions ERROR) resolve the same way every time.
package pattern

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ashmont/kestrel/internal/model"
)

// Severity floors imposed by specific rules regardless of the weighted
// scoring formula.
const (
	longPauseFloor     = 0.9
	moderatePauseFloor = 0.7
	longPauseMS        = 15000
	moderatePauseMS    = 5000
)

var pauseDurationRe = regexp.MustCompile(`approximately (\d+)ms`)

// Rule pairs a predicate with a builder producing the match metadata.
// Keeping these as data, not nested conditionals, keeps the ordering
// auditable and lets each rule be tested in isolation.
type Rule struct {
	Name  string
	Match func(entry string) bool
	Build func(entry string) model.PatternMatch
}

// rules is the ordered table. Order matters: first match wins.
var rules = []Rule{
	{
		Name: "jvm_pause",
		Match: func(e string) bool {
			return strings.Contains(e, "JvmPauseMonitor") && pauseDurationRe.MatchString(e)
		},
		Build: func(e string) model.PatternMatch {
			ms := parsePauseMS(e)
			m := model.PatternMatch{
				Category:        model.CategoryPerformance,
				SubType:         "JVM_PAUSE",
				DurationMS:      ms,
				SourceComponent: "JvmPauseMonitor",
			}
			switch {
			case ms > longPauseMS:
				m.ScoreFloor = longPauseFloor
			case ms > moderatePauseMS:
				m.ScoreFloor = moderatePauseFloor
			}
			return m
		},
	},
	{
		Name: "slow_io",
		Match: func(e string) bool {
			return strings.Contains(e, "Slow BlockReceiver") ||
				strings.Contains(strings.ToLower(e), "slow io")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{
				Category:        model.CategoryPerformance,
				SubType:         "SLOW_IO",
				SourceComponent: "BlockReceiver",
			}
		},
	},
	{
		Name: "namenode_startup_failure",
		Match: func(e string) bool {
			return strings.Contains(e, "NameNode") && strings.Contains(e, "Failed to start active state service")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{
				Category:        model.CategoryAvailability,
				SubType:         "STARTUP_FAILURE",
				SourceComponent: "NameNode",
			}
		},
	},
	{
		Name: "namenode_leadership_loss",
		Match: func(e string) bool {
			return strings.Contains(e, "NameNode") && strings.Contains(e, "Lost leadership")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{
				Category:        model.CategoryAvailability,
				SubType:         "LEADERSHIP_LOSS",
				SourceComponent: "NameNode",
			}
		},
	},
	{
		Name: "block_corruption",
		Match: func(e string) bool {
			return strings.Contains(e, "BlockManager") && strings.Contains(e, "corrupted")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{
				Category:        model.CategoryData,
				SubType:         "CORRUPTION",
				SourceComponent: "BlockManager",
			}
		},
	},
	{
		Name: "replica_placement",
		Match: func(e string) bool {
			return strings.Contains(e, "BlockManager") && strings.Contains(e, "Unable to place replica")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{
				Category:        model.CategoryData,
				SubType:         "REPLICA_PLACEMENT",
				SourceComponent: "BlockManager",
			}
		},
	},
	{
		Name: "high_load",
		Match: func(e string) bool {
			return strings.Contains(e, "BlockManager") && strings.Contains(e, "Total load")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{
				Category:        model.CategoryResource,
				SubType:         "HIGH_LOAD",
				SourceComponent: "BlockManager",
			}
		},
	},
	{
		Name: "login_failure",
		Match: func(e string) bool {
			return strings.Contains(e, "Login failed") || strings.Contains(e, "authentication failed")
		},
		Build: func(e string) model.PatternMatch {
			sub := "LOGIN_FAILURE"
			if strings.Contains(e, "authentication failed") {
				sub = "AUTH_FAILURE"
			}
			return model.PatternMatch{Category: model.CategorySecurity, SubType: sub}
		},
	},
	{
		Name: "token_error",
		Match: func(e string) bool {
			return strings.Contains(e, "Token") && strings.Contains(e, "ERROR")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{Category: model.CategorySecurity, SubType: "TOKEN_ERROR"}
		},
	},
	{
		Name: "connection_timeout",
		Match: func(e string) bool {
			return strings.Contains(e, "Connection timed out")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{Category: model.CategoryNetwork, SubType: "TIMEOUT"}
		},
	},
	{
		Name: "connection_error",
		Match: func(e string) bool {
			return strings.Contains(e, "Network error") || strings.Contains(e, "Connection refused")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{Category: model.CategoryNetwork, SubType: "CONNECTION_ERROR"}
		},
	},
	{
		Name: "disk_space",
		Match: func(e string) bool {
			lower := strings.ToLower(e)
			return strings.Contains(lower, "disk space") || strings.Contains(lower, "capacity exceeded")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{Category: model.CategoryResource, SubType: "DISK_SPACE"}
		},
	},
	{
		Name: "memory",
		Match: func(e string) bool {
			return strings.Contains(e, "Memory usage") || strings.Contains(e, "OutOfMemoryError")
		},
		Build: func(e string) model.PatternMatch {
			return model.PatternMatch{Category: model.CategoryResource, SubType: "MEMORY"}
		},
	},
}

// Classify runs the ordered rule table against one logical entry. When no
// rule matches it returns the UNKNOWN/GENERAL fallback.
func Classify(entry string) model.PatternMatch {
	for _, r := range rules {
		if r.Match(entry) {
			return r.Build(entry)
		}
	}
	return model.PatternMatch{Category: model.CategoryUnknown, SubType: "GENERAL"}
}

// Rules exposes the ordered table for auditing and rule-level tests.
func Rules() []Rule {
	return rules
}

func parsePauseMS(entry string) int {
	m := pauseDurationRe.FindStringSubmatch(entry)
	if m == nil {
		return 0
	}
	ms, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return ms
}
