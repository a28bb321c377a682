// Package outcome grades a finished run.
package outcome

import (
	"fmt"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Classify maps a final state to exactly one outcome. The checks run from the
// most impressive result down; Bankrupt is the catch-all.
func Classify(rules config.OutcomeRules, s models.State) models.Outcome {
	bankrupt := s.TerminationReason == models.TerminationBudgetExhausted || s.Budget <= 0

	switch {
	case !bankrupt &&
		s.TotalCrashes == 0 &&
		s.TotalDowntime <= rules.UnicornMaxDowntime &&
		s.Satisfaction >= rules.UnicornSatisfaction &&
		s.Budget > rules.UnicornBudget:
		return models.Outcome{
			Grade:     models.GradeA,
			Label:     "Tech Unicorn",
			Narrative: fmt.Sprintf("Superb scaling and massive profits: $%d banked with %d happy users and no crashes.", s.Budget, s.ActiveUsers),
		}
	case !bankrupt &&
		s.TotalCrashes <= rules.SolidMaxCrashes &&
		s.TotalDowntime <= rules.SolidMaxDowntime &&
		s.Satisfaction >= rules.SolidSatisfaction &&
		s.Budget > rules.SolidBudget:
		return models.Outcome{
			Grade:     models.GradeB,
			Label:     "Solid Success",
			Narrative: fmt.Sprintf("Minimal downtime and satisfied users. You finished with $%d.", s.Budget),
		}
	case !bankrupt && s.ActiveUsers >= rules.SurvivorMinUsers:
		return models.Outcome{
			Grade:     models.GradeC,
			Label:     "Survivor",
			Narrative: fmt.Sprintf("You kept the lights on, but it was a rocky road: %d crashes and %d rounds of downtime.", s.TotalCrashes, s.TotalDowntime),
		}
	case !bankrupt:
		return models.Outcome{
			Grade:     models.GradeD,
			Label:     "Ghost Town",
			Narrative: fmt.Sprintf("The company is solvent, but only %d users are left.", s.ActiveUsers),
		}
	default:
		return models.Outcome{
			Grade:     models.GradeF,
			Label:     "Bankrupt",
			Narrative: "Operational costs exceeded your revenue.",
		}
	}
}
