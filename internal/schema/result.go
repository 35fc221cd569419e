package schema

import (
	"time"

	"go.uber.org/multierr"

	"event-validation-service/internal/models"
)

// Result is the outcome of validating one event.
type Result struct {
	Success         bool          `json:"success"`
	Errors          []*FieldError `json:"errors"`
	EncryptedFields []string      `json:"encryptedFields"`

	seen map[string]struct{}
}

func newResult() *Result {
	return &Result{
		Errors:          []*FieldError{},
		EncryptedFields: []string{},
		seen:            make(map[string]struct{}),
	}
}

func (r *Result) addError(err *FieldError) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// addEncrypted records path once, keeping first-seen order.
func (r *Result) addEncrypted(path string) {
	if _, ok := r.seen[path]; ok {
		return
	}
	r.seen[path] = struct{}{}
	r.EncryptedFields = append(r.EncryptedFields, path)
}

// Messages returns the error messages in order.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// Err folds all validation errors into a single error, or nil on success.
func (r *Result) Err() error {
	var err error
	for _, fe := range r.Errors {
		err = multierr.Append(err, fe)
	}
	return err
}

// Report converts the result to its wire form for ev.
func (r *Result) Report(ev *models.Event, now time.Time) *models.ValidationReport {
	rep := models.NewReport(ev, now)
	rep.Success = r.Success
	for _, fe := range r.Errors {
		rep.Errors = append(rep.Errors, models.ValidationError{
			Code:    string(fe.Code),
			Path:    fe.Path,
			Message: fe.Message,
		})
	}
	rep.EncryptedFields = append(rep.EncryptedFields, r.EncryptedFields...)
	return rep
}
