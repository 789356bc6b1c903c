package model

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Offer is the value proposition leads are scored against.
type Offer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ValueProps    []string  `json:"value_props"`
	IdealUseCases []string  `json:"ideal_use_cases"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OfferInput is the writable part of an offer, as received from the API or
// an offer definition file.
type OfferInput struct {
	Name          string   `json:"name" yaml:"name" validate:"required"`
	ValueProps    []string `json:"value_props" yaml:"value_props" validate:"required,min=1,dive,required"`
	IdealUseCases []string `json:"ideal_use_cases" yaml:"ideal_use_cases" validate:"required,min=1,dive,required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Normalize trims whitespace and drops blank list entries.
func (in OfferInput) Normalize() OfferInput {
	return OfferInput{
		Name:          strings.TrimSpace(in.Name),
		ValueProps:    trimAll(in.ValueProps),
		IdealUseCases: trimAll(in.IdealUseCases),
	}
}

// Validate checks the input and returns a validation error listing every
// offending field.
func (in OfferInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation("invalid offer", err.Error())
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return Validation("invalid offer", details...)
}

// Snapshot copies the offer by value for use by concurrent scoring tasks.
func (o *Offer) Snapshot() OfferSnapshot {
	return OfferSnapshot{
		ID:            o.ID,
		Name:          o.Name,
		ValueProps:    slices.Clone(o.ValueProps),
		IdealUseCases: slices.Clone(o.IdealUseCases),
	}
}

// OfferSnapshot is an immutable copy of an offer taken at batch start. Worker
// tasks only ever see a snapshot, never the stored offer.
type OfferSnapshot struct {
	ID            string
	Name          string
	ValueProps    []string
	IdealUseCases []string
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
