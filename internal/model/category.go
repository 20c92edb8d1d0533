package model

// Category is a deterministic, rule-based anomaly category.
type Category string

const (
	CategoryPerformance  Category = "PERFORMANCE"
	CategorySecurity     Category = "SECURITY"
	CategoryAvailability Category = "AVAILABILITY"
	CategoryData         Category = "DATA"
	CategoryNetwork      Category = "NETWORK"
	CategoryResource     Category = "RESOURCE"
	CategoryUnknown      Category = "UNKNOWN"
)

// Level is a normalized log severity level.
type Level string

const (
	LevelFatal   Level = "FATAL"
	LevelError   Level = "ERROR"
	LevelWarn    Level = "WARN"
	LevelInfo    Level = "INFO"
	LevelUnknown Level = "UNKNOWN"
)

// RoutableCategories is the fixed label set handed to the secondary
// classifier and used for notification routing. UNKNOWN is deliberately
// absent: it can never resolve to a recipient.
var RoutableCategories = []Category{
	CategoryPerformance,
	CategorySecurity,
	CategoryAvailability,
	CategoryData,
	CategoryNetwork,
	CategoryResource,
}
