package plan

import (
	"context"
	"errors"
	"fmt"
)

// Steps of Apply reported by StorageError.
const (
	StepDeleteEvents = "delete_events"
	StepDeleteYears  = "delete_years"
	StepInsertYear   = "insert_year"
	StepInsertEvent  = "insert_event"
	StepTransaction  = "transaction"
)

// ErrStorage matches every StorageError via errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError identifies the step and row at which Apply failed.
type StorageError struct {
	Step string
	ID   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage error at %s (%s): %v", e.Step, e.ID, e.Err)
	}
	return fmt.Sprintf("storage error at %s: %v", e.Step, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports ErrStorage as a match.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// TxWriter is the set of row operations Apply performs inside a transaction.
type TxWriter interface {
	DeleteAllEvents(ctx context.Context) error
	DeleteAllYears(ctx context.Context) error
	InsertYear(ctx context.Context, y YearPlan) error
	InsertEvent(ctx context.Context, yearID string, e EventPlan) error
}

// Writer runs fn in a single storage transaction, committing only when fn
// returns nil.
type Writer interface {
	InTx(ctx context.Context, fn func(TxWriter) error) error
}

// Apply replaces the stored schedule with p. Events are deleted before years
// so the event to year reference never dangles, then each year is inserted
// followed by its events. Everything happens in one transaction: on failure
// the previous schedule is left untouched. Scores stored for the old
// schedule are always discarded.
func Apply(ctx context.Context, w Writer, p Plan) error {
	err := w.InTx(ctx, func(tx TxWriter) error {
		if err := tx.DeleteAllEvents(ctx); err != nil {
			return &StorageError{Step: StepDeleteEvents, Err: err}
		}
		if err := tx.DeleteAllYears(ctx); err != nil {
			return &StorageError{Step: StepDeleteYears, Err: err}
		}
		for _, y := range p.Years {
			if err := tx.InsertYear(ctx, y); err != nil {
				return &StorageError{Step: StepInsertYear, ID: y.ID, Err: err}
			}
			for _, e := range y.Events {
				if err := tx.InsertEvent(ctx, y.ID, e); err != nil {
					return &StorageError{Step: StepInsertEvent, ID: e.ID, Err: err}
				}
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Step: StepTransaction, Err: err}
}
