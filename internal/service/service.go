package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/validator"
)

// Options carries the storage and inventory policy knobs shared by the services.
type Options struct {
	QueryTimeout       time.Duration
	BarcodePolicy      config.BarcodePolicy
	AllowNegativeStock bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		QueryTimeout:       cfg.Database.QueryTimeout,
		BarcodePolicy:      cfg.Inventory.BarcodePolicy,
		AllowNegativeStock: cfg.Inventory.AllowNegativeStock,
	}
}

func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.QueryTimeout)
}

// validate runs struct validation and converts failures into a validation error that names
// every offending field.
func validate(input interface{}) error {
	errs := validator.ValidateStruct(input)
	if len(errs) == 0 {
		return nil
	}

	fields := make(map[string]string, len(errs))
	var missing, invalid []string
	for _, e := range errs {
		fields[e.FailedField] = e.Tag
		if e.Tag == "required" {
			missing = append(missing, e.FailedField)
		} else {
			invalid = append(invalid, e.FailedField)
		}
	}
	if len(invalid) == 0 {
		return apperror.MissingFields(missing...)
	}

	sort.Strings(invalid)
	parts := make([]string, 0, len(invalid))
	for _, f := range invalid {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, fields[f]))
	}
	msg := "invalid " + strings.Join(parts, ", ")
	if len(missing) > 0 {
		sort.Strings(missing)
		msg += "; missing " + strings.Join(missing, ", ")
	}
	return apperror.Validation(msg, fields)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ws.Event) {}

func publisherOrNop(p ws.Publisher) ws.Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
