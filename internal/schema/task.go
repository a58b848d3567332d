// Package schema converts raw request input into validated task values.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/go-playground/validator/v10"
)

// Fields is an undecoded JSON object keyed by field name.
type Fields map[string]json.RawMessage

// ParseBody reads a single JSON object from r. Anything but whitespace after
// the object is rejected.
func ParseBody(r io.Reader) (Fields, error) {
	var fields Fields
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrMalformedBody)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrMalformedBody)
	}
	return fields, nil
}

// TaskPatch holds the fields present in a payload. Nil pointers are absent
// fields. A non-nil zero DueOn clears the due date.
type TaskPatch struct {
	Name     *string
	Priority *entity.Priority
	Status   *entity.Status
	DueOn    *entity.Date
}

// Apply merges the present fields into t.
func (p TaskPatch) Apply(t *entity.Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueOn != nil {
		t.DueOn = *p.DueOn
	}
}

// NewTask builds an unsaved task from p, filling defaults for absent fields.
func (p TaskPatch) NewTask() entity.Task {
	t := entity.Task{
		Priority: entity.PriorityMedium,
		Status:   entity.StatusPending,
	}
	p.Apply(&t)
	return t
}

// taskRules carries the struct-level constraints checked by the validator.
type taskRules struct {
	Name     *string `json:"name" validate:"omitnil,min=2,max=50"`
	Priority *string `json:"priority" validate:"omitnil,oneof=Low Medium High"`
	Status   *string `json:"status" validate:"omitnil,oneof=Pending 'In Progress' Completed"`
}

// Decoder validates task payloads against the current date.
type Decoder struct {
	validate *validator.Validate
	now      func() time.Time
}

func NewDecoder(now func() time.Time) *Decoder {
	if now == nil {
		now = time.Now
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Decoder{validate: v, now: now}
}

// DecodeCreate validates a complete payload. name is required.
func (d *Decoder) DecodeCreate(fields Fields) (TaskPatch, error) {
	return d.decode(fields, true)
}

// DecodePatch validates only the fields present in the payload.
func (d *Decoder) DecodePatch(fields Fields) (TaskPatch, error) {
	return d.decode(fields, false)
}

func (d *Decoder) decode(fields Fields, requireName bool) (TaskPatch, error) {
	verr := newValidationError()
	today := entity.DateOf(d.now())

	var (
		rules taskRules
		patch TaskPatch
	)
	for key, raw := range fields {
		switch key {
		case "name":
			rules.Name = decodeString(verr, key, raw)
		case "priority":
			rules.Priority = decodeString(verr, key, raw)
		case "status":
			rules.Status = decodeString(verr, key, raw)
		case "due_on", "due_date":
			if _, dup := fields["due_on"]; dup && key == "due_date" {
				continue
			}
			if due, ok := decodeDate(verr, key, raw); ok {
				if !due.IsZero() && due.Before(today) {
					verr.add(key, msgPastDate)
					continue
				}
				patch.DueOn = &due
			}
		case "id":
			// Read-only; type-checked and dropped.
			var id int64
			if !isNull(raw) && json.Unmarshal(raw, &id) != nil {
				verr.add(key, msgNotInteger)
			}
		case "created_on":
			// Read-only; type-checked and dropped.
			decodeDate(verr, key, raw)
		default:
			verr.add(key, msgUnknown)
		}
	}

	if _, ok := fields["name"]; requireName && !ok {
		verr.add("name", msgRequired)
	}

	if err := d.validate.Struct(rules); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return TaskPatch{}, fmt.Errorf("failed to validate task: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(fe.Field(), ruleMessage(fe))
		}
	}

	if verr.HasErrors() {
		return TaskPatch{}, verr
	}

	patch.Name = rules.Name
	if rules.Priority != nil {
		p := entity.Priority(*rules.Priority)
		patch.Priority = &p
	}
	if rules.Status != nil {
		s := entity.Status(*rules.Status)
		patch.Status = &s
	}
	return patch, nil
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		return fmt.Sprintf(msgLength, entity.NameMinLength, entity.NameMaxLength)
	case "oneof":
		if fe.Field() == "priority" {
			return fmt.Sprintf(msgInvalidEnum, joinValues(entity.Priorities))
		}
		return fmt.Sprintf(msgInvalidEnum, joinValues(entity.Statuses))
	default:
		return "Invalid value."
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func decodeString(verr *ValidationError, key string, raw json.RawMessage) *string {
	if isNull(raw) {
		verr.add(key, msgNotNull)
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		verr.add(key, msgNotString)
		return nil
	}
	return &s
}

// decodeDate accepts null (the zero date) or a YYYY-MM-DD string.
func decodeDate(verr *ValidationError, key string, raw json.RawMessage) (entity.Date, bool) {
	if isNull(raw) {
		return entity.Date{}, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		verr.add(key, msgNotDate)
		return entity.Date{}, false
	}
	d, err := entity.ParseDate(s)
	if err != nil {
		verr.add(key, msgNotDate)
		return entity.Date{}, false
	}
	return d, true
}
