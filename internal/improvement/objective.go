package improvement

import (
	"github.com/GoSim-25-26J-441/infra-scaler/internal/autopilot"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// ObjectiveFunction scores a batch of autopilot runs.
// Lower scores are better; maximizing objectives return the negated value.
type ObjectiveFunction interface {
	// Evaluate computes the objective value from a batch result.
	Evaluate(batch *autopilot.BatchResult) (float64, error)

	// Name returns the name of the objective function.
	Name() string

	// Direction returns whether we're minimizing (true) or maximizing (false).
	Direction() bool // true = minimize, false = maximize
}

// ObjectiveType represents the type of objective function
type ObjectiveType string

const (
	// ObjectiveMaximizeBudget maximizes the mean final budget
	ObjectiveMaximizeBudget ObjectiveType = "mean_budget"
	// ObjectiveMaximizeUsers maximizes the mean final user count
	ObjectiveMaximizeUsers ObjectiveType = "mean_users"
	// ObjectiveMaximizeGrade maximizes the mean grade (A=4 .. F=0)
	ObjectiveMaximizeGrade ObjectiveType = "grade_points"
	// ObjectiveMinimizeBankruptcy minimizes the share of runs graded F
	ObjectiveMinimizeBankruptcy ObjectiveType = "bankruptcy_rate"
)

// NewObjectiveFunction creates an objective function from a type string
func NewObjectiveFunction(objType string) (ObjectiveFunction, error) {
	switch ObjectiveType(objType) {
	case ObjectiveMaximizeBudget:
		return &BudgetObjective{}, nil
	case ObjectiveMaximizeUsers:
		return &UsersObjective{}, nil
	case ObjectiveMaximizeGrade:
		return &GradeObjective{}, nil
	case ObjectiveMinimizeBankruptcy:
		return &BankruptcyObjective{}, nil
	default:
		return nil, &UnknownObjectiveError{ObjectiveType: objType}
	}
}

func checkBatch(batch *autopilot.BatchResult) error {
	if batch == nil {
		return &InvalidResultError{Reason: "batch is nil"}
	}
	if len(batch.Runs) == 0 {
		return &InvalidResultError{Reason: "batch has no runs"}
	}
	return nil
}

// BudgetObjective maximizes the mean final budget
type BudgetObjective struct{}

func (o *BudgetObjective) Name() string {
	return string(ObjectiveMaximizeBudget)
}

func (o *BudgetObjective) Direction() bool {
	return false
}

func (o *BudgetObjective) Evaluate(batch *autopilot.BatchResult) (float64, error) {
	if err := checkBatch(batch); err != nil {
		return 0, err
	}
	return -batch.MeanBudget, nil
}

// UsersObjective maximizes the mean final user count
type UsersObjective struct{}

func (o *UsersObjective) Name() string {
	return string(ObjectiveMaximizeUsers)
}

func (o *UsersObjective) Direction() bool {
	return false
}

func (o *UsersObjective) Evaluate(batch *autopilot.BatchResult) (float64, error) {
	if err := checkBatch(batch); err != nil {
		return 0, err
	}
	return -batch.MeanUsers, nil
}

var gradePoints = map[models.Grade]float64{
	models.GradeA: 4,
	models.GradeB: 3,
	models.GradeC: 2,
	models.GradeD: 1,
	models.GradeF: 0,
}

// GradeObjective maximizes the mean grade point of the batch
type GradeObjective struct{}

func (o *GradeObjective) Name() string {
	return string(ObjectiveMaximizeGrade)
}

func (o *GradeObjective) Direction() bool {
	return false
}

func (o *GradeObjective) Evaluate(batch *autopilot.BatchResult) (float64, error) {
	if err := checkBatch(batch); err != nil {
		return 0, err
	}
	total := 0.0
	for _, r := range batch.Runs {
		total += gradePoints[r.Outcome.Grade]
	}
	return -total / float64(len(batch.Runs)), nil
}

// BankruptcyObjective minimizes the fraction of runs that end graded F
type BankruptcyObjective struct{}

func (o *BankruptcyObjective) Name() string {
	return string(ObjectiveMinimizeBankruptcy)
}

func (o *BankruptcyObjective) Direction() bool {
	return true
}

func (o *BankruptcyObjective) Evaluate(batch *autopilot.BatchResult) (float64, error) {
	if err := checkBatch(batch); err != nil {
		return 0, err
	}
	failed := 0
	for _, r := range batch.Runs {
		if r.Outcome.Grade == models.GradeF {
			failed++
		}
	}
	return float64(failed) / float64(len(batch.Runs)), nil
}

// NaturalScore converts an internal score back to the objective's own units
func NaturalScore(obj ObjectiveFunction, score float64) float64 {
	if obj.Direction() {
		return score
	}
	return -score
}

// UnknownObjectiveError indicates an unknown objective type
type UnknownObjectiveError struct {
	ObjectiveType string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown objective type: " + e.ObjectiveType
}

// InvalidResultError indicates a batch that cannot be scored
type InvalidResultError struct {
	Reason string
}

func (e *InvalidResultError) Error() string {
	return "invalid batch result: " + e.Reason
}
