package gmp

import (
	"math"
	"strconv"
)

// Severity class labels, ordered from most to least severe.
const (
	SeverityHigh          = "High"
	SeverityMedium        = "Medium"
	SeverityLow           = "Low"
	SeverityLog           = "Log"
	SeverityFalsePositive = "False Positive"
	SeverityError         = "Error"
	SeverityNA            = "N/A"
)

// SeverityClasses lists the class labels in display order.
var SeverityClasses = []string{
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityLog,
	SeverityFalsePositive,
	SeverityError,
	SeverityNA,
}

// SeverityClass maps a CVSS score onto its class label. Negative scores are
// the backend's markers for false positives (-1) and errors (-3).
func SeverityClass(severity *float64) string {
	if severity == nil || math.IsNaN(*severity) {
		return SeverityNA
	}
	s := *severity
	switch {
	case s >= 7.0:
		return SeverityHigh
	case s >= 4.0:
		return SeverityMedium
	case s > 0:
		return SeverityLow
	case s == 0:
		return SeverityLog
	case s == -1:
		return SeverityFalsePositive
	case s == -3:
		return SeverityError
	default:
		return SeverityNA
	}
}

// FormatSeverity renders a score with one decimal, or N/A when unset.
func FormatSeverity(severity *float64) string {
	if severity == nil {
		return SeverityNA
	}
	return strconv.FormatFloat(*severity, 'f', 1, 64)
}

// SeverityBucket is one row of a severity histogram: a score rounded to one
// decimal and the number of entities with that score. Score is nil for
// entities without a severity.
type SeverityBucket struct {
	Score *float64
	Count int
}

// ClassCount is the number of entities in one severity class.
type ClassCount struct {
	Class string
	Count int
}

// GroupSeverityClasses folds histogram buckets into per-class counts in
// SeverityClasses order. Classes without entities are included with 0.
func GroupSeverityClasses(buckets []SeverityBucket) []ClassCount {
	totals := make(map[string]int, len(SeverityClasses))
	for _, b := range buckets {
		totals[SeverityClass(b.Score)] += b.Count
	}
	out := make([]ClassCount, 0, len(SeverityClasses))
	for _, class := range SeverityClasses {
		out = append(out, ClassCount{Class: class, Count: totals[class]})
	}
	return out
}
