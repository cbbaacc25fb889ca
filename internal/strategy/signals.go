package strategy

import (
	"math"
	"strings"

	"FundPilot/internal/model"
)

// trigger is one detected buying opportunity.
type trigger struct {
	Label    string
	Strength float64 // 0..1
}

// opportunity aggregates triggers and records the thresholds used.
type opportunity struct {
	Triggers    []trigger
	MAThreshold float64
	DropNormal  float64
	DropSevere  float64
}

func (o opportunity) Found() bool { return len(o.Triggers) > 0 }

// Strength is the summed trigger strength, capped at 1.
func (o opportunity) Strength() float64 {
	total := 0.0
	for _, t := range o.Triggers {
		total += t.Strength
	}
	return math.Min(total, 1.0)
}

// Label joins trigger labels with " + ".
func (o opportunity) Label() string {
	labels := make([]string, len(o.Triggers))
	for i, t := range o.Triggers {
		labels[i] = t.Label
	}
	return strings.Join(labels, " + ")
}

// detectOpportunity checks the MA-break and single-day-drop triggers against
// the given thresholds (all negative percentages).
func detectOpportunity(m model.Metrics, maThreshold, dropNormal, dropSevere float64) opportunity {
	o := opportunity{MAThreshold: maThreshold, DropNormal: dropNormal, DropSevere: dropSevere}

	if m.MADeviation < maThreshold {
		o.Triggers = append(o.Triggers, trigger{
			Label:    "跌破均线",
			Strength: math.Min(math.Abs(m.MADeviation)/(math.Abs(maThreshold)*3), 1.0),
		})
	}

	if change, ok := m.Change(); ok && change < dropNormal {
		strength := 1.0
		if change >= dropSevere {
			span := math.Abs(dropSevere) - math.Abs(dropNormal)
			strength = math.Min((math.Abs(change)-math.Abs(dropNormal))/span*0.5+0.5, 1.0)
		}
		o.Triggers = append(o.Triggers, trigger{Label: "单日大跌", Strength: strength})
	}
	return o
}
