package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"event-validation-service/internal/models"
	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/observability/metrics"
	"event-validation-service/internal/schema"
)

// Report codes for events that never reach field validation.
const (
	CodeMalformedEvent = "malformed-event"
	CodeSchemaNotFound = "schema-not-found"
	CodeLookupFailed   = "lookup-failed"
)

// Routing outcomes recorded per consumed message.
const (
	OutcomeValid     = "valid"
	OutcomeInvalid   = "invalid"
	OutcomeMalformed = "malformed"
	OutcomeNoSchema  = "no-schema"
)

// Validator checks one event.
type Validator interface {
	Validate(ctx context.Context, ev *models.Event) (*schema.Result, error)
}

// Sink receives validation outcomes. *Publisher implements it.
type Sink interface {
	PublishValid(ctx context.Context, key string, event any) error
	PublishInvalid(ctx context.Context, key string, report any) error
}

// Handler validates one consumed message and routes the outcome.
type Handler struct {
	validator Validator
	sink      Sink
	timeout   time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
}

// NewHandler creates a handler. A zero timeout means no per-event deadline.
func NewHandler(v Validator, sink Sink, timeout time.Duration) *Handler {
	return &Handler{
		validator: v,
		sink:      sink,
		timeout:   timeout,
		now:       time.Now,
		metrics:   metrics.DefaultMetrics,
	}
}

// Handle validates msg. Every message ends up on one of the two topics; the
// returned error is a publish failure, after which msg must not be committed.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev models.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		report := &models.ValidationReport{
			Errors: []models.ValidationError{{
				Code:    CodeMalformedEvent,
				Message: "The event is not valid JSON: " + err.Error(),
			}},
			EncryptedFields: []string{},
			ValidatedAt:     h.now().UnixMilli(),
		}
		h.metrics.RecordConsumed(OutcomeMalformed)
		return h.sink.PublishInvalid(ctx, string(msg.Key), report)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	logger := logging.WithEvent(ev.Name, ev.Version, ev.ID)

	vctx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.validator.Validate(vctx, &ev)
	if err != nil {
		code, msg := lookupFailure(err)
		logger.Warn().Err(err).Str("code", code).Msg(msg)
		report := models.NewReport(&ev, h.now())
		report.Errors = append(report.Errors, models.ValidationError{Code: code, Message: err.Error()})
		h.metrics.RecordConsumed(OutcomeNoSchema)
		return h.sink.PublishInvalid(ctx, ev.ID, report)
	}

	if res.Success {
		h.metrics.RecordConsumed(OutcomeValid)
		return h.sink.PublishValid(ctx, ev.ID, &models.ValidatedEvent{
			Event:           &ev,
			EncryptedFields: res.EncryptedFields,
			ValidatedAt:     h.now().UnixMilli(),
		})
	}

	logger.Debug().Strs("errors", res.Messages()).Msg("event rejected")
	h.metrics.RecordConsumed(OutcomeInvalid)
	return h.sink.PublishInvalid(ctx, ev.ID, res.Report(&ev, h.now()))
}

// lookupFailure classifies a failed schema lookup for the report and the log.
func lookupFailure(err error) (code, msg string) {
	if errors.Is(err, schema.ErrSchemaNotFound) {
		return CodeSchemaNotFound, "no schema for event"
	}
	return CodeLookupFailed, "schema lookup failed"
}
