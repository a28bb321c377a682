package models

import "time"

// TerminationReason explains why a run stopped accepting rounds
type TerminationReason string

const (
	TerminationNone            TerminationReason = "none"
	TerminationBudgetExhausted TerminationReason = "budget-exhausted"
	TerminationNoUsers         TerminationReason = "no-users"
	TerminationMaxRounds       TerminationReason = "max-rounds-reached"
)

// LogKind classifies a log entry for presentation
type LogKind string

const (
	LogNormal           LogKind = "normal"
	LogInfo             LogKind = "info"
	LogDowntime         LogKind = "downtime"
	LogCrash            LogKind = "crash"
	LogRecover          LogKind = "recover"
	LogWarnOverload     LogKind = "warn-overload"
	LogWarnSlow         LogKind = "warn-slow"
	LogWarnDissatisfied LogKind = "warn-dissatisfied"
	LogViral            LogKind = "viral"
	LogTerminal         LogKind = "terminal"
)

// LogEntry is one line of the run log. The log is append-only, newest last.
type LogEntry struct {
	Round int     `json:"round"`
	Kind  LogKind `json:"kind"`
	Text  string  `json:"text"`
}

// State is the full simulation state of one run.
// It is a value: engine operations return a new State and never mutate their input.
type State struct {
	Round                     int     `json:"round"`
	TierIndex                 int     `json:"tier_index"`
	ActiveUsers               int     `json:"active_users"`
	Budget                    int     `json:"budget"`
	Satisfaction              float64 `json:"satisfaction"` // [0,1]
	Stability                 float64 `json:"stability"`    // [0,100]
	DowntimeRoundsLeft        int     `json:"downtime_rounds_left"`
	Crashed                   bool    `json:"crashed"`
	CrashRebootRoundsLeft     int     `json:"crash_reboot_rounds_left"`
	ConsecutiveHighLoadRounds int     `json:"consecutive_high_load_rounds"`

	// Last observed response latency, for display and advice prompts
	LatencyMs int `json:"latency_ms"`

	TotalCrashes   int  `json:"total_crashes"`
	TotalDowntime  int  `json:"total_downtime"`
	Upgrades       int  `json:"upgrades"`
	ViralTriggered bool `json:"viral_triggered"`

	Log               []LogEntry        `json:"log"`
	TerminationReason TerminationReason `json:"termination_reason"`
}

// IsDown reports whether the system is offline (scaling or crashed)
func (s State) IsDown() bool {
	return s.DowntimeRoundsLeft > 0 || s.Crashed
}

// Scaling reports whether a scale-up is in progress
func (s State) Scaling() bool {
	return s.DowntimeRoundsLeft > 0
}

// AwaitingRestart reports whether the system crashed and nobody has started a reboot
func (s State) AwaitingRestart() bool {
	return s.Crashed && s.CrashRebootRoundsLeft == 0
}

// Rebooting reports whether a crash reboot is counting down
func (s State) Rebooting() bool {
	return s.Crashed && s.CrashRebootRoundsLeft > 0
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	out := s
	if s.Log != nil {
		out.Log = make([]LogEntry, len(s.Log))
		copy(out.Log, s.Log)
	}
	return out
}

// LastLog returns the newest log entry
func (s State) LastLog() (LogEntry, bool) {
	if len(s.Log) == 0 {
		return LogEntry{}, false
	}
	return s.Log[len(s.Log)-1], true
}

// Grade is the letter grade of a finished run
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Outcome is the classification of a terminal state
type Outcome struct {
	Grade     Grade  `json:"grade"`
	Label     string `json:"label"`
	Narrative string `json:"narrative"`
}

// SessionStatus represents the lifecycle of a hosted run
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusFinished SessionStatus = "finished"
)

// MetricPoint represents a single per-round metric sample
type MetricPoint struct {
	Round     int               `json:"round"`
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Aggregation contains aggregated statistics for a metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Last  float64 `json:"last"`
}

// RunSummary aggregates the per-round series of one run
type RunSummary struct {
	Rounds       int                     `json:"rounds"`
	Aggregations map[string]*Aggregation `json:"aggregations"`
}
