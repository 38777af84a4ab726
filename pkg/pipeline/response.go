package pipeline

import (
	"fmt"
	"time"

	"github.com/sqlmend/sqlmend/pkg/adapters/datasource"
	"github.com/sqlmend/sqlmend/pkg/candidates"
	"github.com/sqlmend/sqlmend/pkg/dberr"
)

// AttemptRecord is the trace of one loop iteration.
type AttemptRecord struct {
	Attempt int    `json:"attempt"`
	Source  string `json:"source"` // "generation" or "repair"
	SQL     string `json:"sql,omitempty"`
	// Issues are validator/lint findings or rejection reasons.
	Issues []string                `json:"issues,omitempty"`
	Check  candidates.CheckOutcome `json:"check"`
	// DBError and SQLState describe the database failure, when one occurred.
	DBError  string      `json:"db_error,omitempty"`
	SQLState string      `json:"sqlstate,omitempty"`
	Class    dberr.Class `json:"class,omitempty"`
	// Corrected marks a deterministic column rewrite applied in this attempt.
	Corrected  bool    `json:"corrected,omitempty"`
	Confidence float64 `json:"confidence"`
	// SpentBudget is false for infrastructure failures: they are not the
	// generator's fault and do not count against the attempt budget.
	SpentBudget bool `json:"spent_budget"`
}

// QueryResponse is the successful outcome of Answer.
type QueryResponse struct {
	QueryID    string                  `json:"query_id"`
	Question   string                  `json:"question"`
	SQL        string                  `json:"sql"`
	Result     *datasource.QueryResult `json:"result,omitempty"`
	Tables     []string                `json:"tables,omitempty"`
	Confidence float64                 `json:"confidence"`
	Attempts   []AttemptRecord         `json:"attempts"`
	Elapsed    time.Duration           `json:"elapsed"`
}

// Failure is the structured terminal error of Answer: what was tried last,
// why it stopped, and how much budget was spent.
type Failure struct {
	QueryID  string
	Class    dberr.Class
	LastSQL  string
	Issues   []string
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("query %s failed (%s) after %d attempts: %v",
		f.QueryID, f.Class, f.Attempts, f.Err)
}

// Unwrap exposes the cause for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}
