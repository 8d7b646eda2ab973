package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// Validate checks struct tags and the cross-field rules. All problems are
// reported together.
func (c Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, formatValidationErrors(err)...)
	}

	v := NewValidator("config")
	v.Custom("cables", c.Cables.check).
		When(c.Scheduler.Executor == ExecutorPool, func(v *Validator) {
			v.Positive("scheduler.workers", c.Scheduler.Workers).
				Positive("scheduler.queue_size", c.Scheduler.QueueSize)
		}).
		Custom("sim", func() error {
			if c.Sim.Poles+c.Sim.Walls < 2 {
				return errors.New("at least two nodes are needed")
			}
			return nil
		})
	errs = append(errs, v.Errors()...)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Validate checks a CableOptions value on its own.
func (o CableOptions) Validate() error {
	var errs []error
	if err := validate.Struct(o); err != nil {
		errs = append(errs, formatValidationErrors(err)...)
	}
	if err := o.check(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (o CableOptions) check() error {
	if o.MaxLinkDistance > 0 && o.SegmentsPerUnitDistance > 0 &&
		o.MaxLinkDistance*o.SegmentsPerUnitDistance < 1 {
		return fmt.Errorf("max_link_distance %g at %g segments/unit yields less than one segment",
			o.MaxLinkDistance, o.SegmentsPerUnitDistance)
	}
	if o.CableThickness >= o.MaxLinkDistance && o.MaxLinkDistance > 0 {
		return fmt.Errorf("cable_thickness %g must be below max_link_distance %g",
			o.CableThickness, o.MaxLinkDistance)
	}
	return nil
}

// formatValidationErrors converts validator errors to readable messages
func formatValidationErrors(err error) []error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []error{err}
	}

	out := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			out = append(out, fmt.Errorf("%s: field is required", field))
		case "gt", "gte", "min":
			out = append(out, fmt.Errorf("%s: must be %s %s", field, opWord(e.Tag()), e.Param()))
		case "lt", "lte", "max":
			out = append(out, fmt.Errorf("%s: must be %s %s", field, opWord(e.Tag()), e.Param()))
		case "oneof":
			out = append(out, fmt.Errorf("%s: %v must be one of [%s]", field, e.Value(), e.Param()))
		default:
			out = append(out, fmt.Errorf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return out
}

func opWord(tag string) string {
	switch tag {
	case "gt":
		return "greater than"
	case "gte", "min":
		return "at least"
	case "lt":
		return "less than"
	default:
		return "at most"
	}
}

// Validator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type Validator struct {
	errors []error
	name   string
}

// NewValidator creates a validator that prefixes errors with name.
func NewValidator(name string) *Validator {
	return &Validator{name: name}
}

// Positive validates that an int field is positive (> 0).
func (v *Validator) Positive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: value %d must be positive", v.name, field, value))
	}
	return v
}

// PositiveFloat validates that a float field is positive (> 0).
func (v *Validator) PositiveFloat(field string, value float64) *Validator {
	if !(value > 0) {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: value %g must be positive", v.name, field, value))
	}
	return v
}

// RangeFloat validates that a float field is within [min, max].
func (v *Validator) RangeFloat(field string, value, min, max float64) *Validator {
	if !(value >= min && value <= max) {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: value %g is outside range [%g, %g]", v.name, field, value, min, max))
	}
	return v
}

// Custom applies a custom validation function.
func (v *Validator) Custom(field string, fn func() error) *Validator {
	if err := fn(); err != nil {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: %w", v.name, field, err))
	}
	return v
}

// When conditionally applies validations if the condition is true.
func (v *Validator) When(condition bool, validations func(*Validator)) *Validator {
	if condition {
		validations(v)
	}
	return v
}

// HasErrors returns true if any validation errors occurred.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []error {
	return v.errors
}

// Validate returns the joined errors, or nil.
func (v *Validator) Validate() error {
	return errors.Join(v.errors...)
}
