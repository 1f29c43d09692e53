package services

import (
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
)

// AtRiskThreshold is how long a member may go without a visit before staff see them as at risk.
const AtRiskThreshold = 5 * 24 * time.Hour

// RiskAssessment is a risk band plus the display percentage shown to staff
type RiskAssessment struct {
	Level      models.RiskLevel `json:"level"`
	Percentage int              `json:"percentage"`
}

// DaysSince returns whole days elapsed between t and now, never negative.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// ClassifyRisk bands a member by visit recency. Boundaries are strict: exactly
// 10 days is medium and exactly 7 days is low.
func ClassifyRisk(lastVisit *time.Time, now time.Time) RiskAssessment {
	if lastVisit == nil {
		return RiskAssessment{Level: models.RiskHigh, Percentage: 95}
	}
	days := DaysSince(*lastVisit, now)
	switch {
	case days > 10:
		return RiskAssessment{Level: models.RiskHigh, Percentage: 89}
	case days > 7:
		return RiskAssessment{Level: models.RiskMedium, Percentage: 76}
	default:
		return RiskAssessment{Level: models.RiskLow, Percentage: 65}
	}
}

// IsAtRisk reports whether a member never visited or last visited more than AtRiskThreshold ago.
func IsAtRisk(lastVisit *time.Time, now time.Time) bool {
	if lastVisit == nil {
		return true
	}
	return now.Sub(*lastVisit) > AtRiskThreshold
}
