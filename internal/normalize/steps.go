package normalize

import (
	"fmt"
	"strings"

	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/model"
)

// TrimSpace strips surrounding whitespace from a field.
func TrimSpace(field string) Step {
	return Step{
		Name:  "trim_" + field,
		Field: field,
		Apply: func(v string) (string, error) {
			return strings.TrimSpace(v), nil
		},
	}
}

// CanonicalAuthor replaces any case-insensitive alias with the canonical name.
func CanonicalAuthor(field string, aliases []string, canonical string) Step {
	set := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return Step{
		Name:  "canonical_" + field,
		Field: field,
		Apply: func(v string) (string, error) {
			if _, ok := set[strings.ToLower(strings.TrimSpace(v))]; ok {
				return canonical, nil
			}
			return v, nil
		},
	}
}

// ReformatDate parses the field with the strftime input format and renders it
// with the output format. Values already in the output format are kept.
func ReformatDate(field, inputFormat, outputFormat string) Step {
	return Step{
		Name:  "reformat_" + field,
		Field: field,
		Apply: func(v string) (string, error) {
			if _, err := strftime.Parse(outputFormat, v); err == nil {
				return v, nil
			}
			t, err := strftime.Parse(inputFormat, v)
			if err != nil {
				return "", fmt.Errorf("parse %q with %q: %w", v, inputFormat, err)
			}
			return strftime.Format(outputFormat, t), nil
		},
	}
}

// PasteOptions configures the paste pipeline.
type PasteOptions struct {
	DateInputFormat  string
	DateOutputFormat string
	AuthorAliases    []string
	UnknownAuthor    string
}

// ForPaste builds the pipeline applied to every new paste.
func ForPaste(opts PasteOptions, logger *zap.Logger) *Pipeline {
	return New(logger).With(
		TrimSpace(model.FieldDate),
		ReformatDate(model.FieldDate, opts.DateInputFormat, opts.DateOutputFormat),
		CanonicalAuthor(model.FieldAuthor, opts.AuthorAliases, opts.UnknownAuthor),
		TrimSpace(model.FieldAuthor),
		TrimSpace(model.FieldTitle),
		TrimSpace(model.FieldContent),
	)
}
