// Package risk scores sea conditions for small fishing boats.
//
// A weather snapshot is mapped to an integer score by independent bucketed rules
// (wind, sea state, visibility, temperature) and the score to a traffic-light level.
package risk

import "time"

// SeaCondition is a qualitative sea state derived from wind speed.
type SeaCondition string

const (
	SeaCalm      SeaCondition = "calm"
	SeaSlight    SeaCondition = "slight"
	SeaModerate  SeaCondition = "moderate"
	SeaRough     SeaCondition = "rough"
	SeaVeryRough SeaCondition = "very_rough"
	SeaHigh      SeaCondition = "high"
)

// Valid reports whether c is a known sea condition.
func (c SeaCondition) Valid() bool {
	switch c {
	case SeaCalm, SeaSlight, SeaModerate, SeaRough, SeaVeryRough, SeaHigh:
		return true
	default:
		return false
	}
}

// Level is the signal shown to fishermen.
type Level string

const (
	LevelGreen  Level = "green"
	LevelYellow Level = "yellow"
	LevelRed    Level = "red"
)

// Score thresholds for each level.
const (
	RedThreshold    = 150
	YellowThreshold = 100
)

// Color returns the display colour for the level.
func (l Level) Color() string {
	switch l {
	case LevelRed:
		return "#FF4444"
	case LevelYellow:
		return "#FFAA00"
	default:
		return "#44FF44"
	}
}

// Conditions is the subset of a weather snapshot the scorer looks at.
type Conditions struct {
	WindSpeed    float64 // km/h
	SeaCondition SeaCondition
	VisibilityKm float64
	Temperature  float64 // °C
}

// Assessment is the outcome of scoring one snapshot. It is replaced, never updated.
type Assessment struct {
	Level      Level
	Color      string
	Score      int
	Reasons    []string
	ComputedAt time.Time
}

// SeaConditionFor derives the sea state from wind speed alone.
func SeaConditionFor(windSpeed float64) SeaCondition {
	switch {
	case windSpeed < 5:
		return SeaCalm
	case windSpeed < 10:
		return SeaSlight
	case windSpeed < 20:
		return SeaModerate
	case windSpeed < 30:
		return SeaRough
	case windSpeed < 40:
		return SeaVeryRough
	default:
		return SeaHigh
	}
}

// LevelFor maps a score to a level.
func LevelFor(score int) Level {
	switch {
	case score >= RedThreshold:
		return LevelRed
	case score >= YellowThreshold:
		return LevelYellow
	default:
		return LevelGreen
	}
}

// Assess scores c. Reasons are listed in rule order: wind, sea, visibility, temperature.
func Assess(c Conditions, now time.Time) Assessment {
	score := 0
	reasons := make([]string, 0, 4)

	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	switch {
	case c.WindSpeed > 40:
		add(100, "Extreme wind conditions")
	case c.WindSpeed > 30:
		add(80, "High wind conditions")
	case c.WindSpeed > 20:
		add(60, "Moderate wind conditions")
	case c.WindSpeed > 10:
		add(30, "Light wind conditions")
	}

	switch c.SeaCondition {
	case SeaHigh:
		add(100, "Dangerous sea conditions")
	case SeaVeryRough:
		add(80, "Very rough sea conditions")
	case SeaRough:
		add(60, "Rough sea conditions")
	case SeaModerate:
		add(40, "Moderate sea conditions")
	}

	switch {
	case c.VisibilityKm < 1:
		add(70, "Poor visibility")
	case c.VisibilityKm < 5:
		add(40, "Reduced visibility")
	}

	if c.Temperature < 0 || c.Temperature > 45 {
		add(30, "Extreme temperature conditions")
	}

	level := LevelFor(score)
	return Assessment{
		Level:      level,
		Color:      level.Color(),
		Score:      score,
		Reasons:    reasons,
		ComputedAt: now,
	}
}
