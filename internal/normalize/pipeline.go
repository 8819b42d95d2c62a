// Package normalize runs ordered per-field cleanup steps over records before
// they are first persisted.
package normalize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/model"
)

// Step rewrites a single field value.
type Step struct {
	Name  string
	Field string
	Apply func(value string) (string, error)
}

// Pipeline is an ordered list of steps for one record type.
type Pipeline struct {
	steps  []Step
	logger *zap.Logger
}

// New creates an empty Pipeline. A nil logger discards step failures.
func New(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger}
}

// With appends steps and returns the pipeline for chaining.
func (p *Pipeline) With(steps ...Step) *Pipeline {
	p.steps = append(p.steps, steps...)
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.Name)
	}
	return names
}

// Normalize runs the pipeline once per record. Records that already have a
// storage identity or were normalized before are left untouched.
func (p *Pipeline) Normalize(rec model.Record) {
	if _, ok := rec.ID(); ok || rec.Normalized() {
		return
	}
	p.Apply(rec)
	rec.MarkNormalized()
}

// Apply runs every step unconditionally. A failing step is logged and leaves
// its field as it was; later steps still run.
func (p *Pipeline) Apply(rec model.Record) {
	typeName := rec.Manifest().TypeName
	for _, step := range p.steps {
		if err := p.applyStep(rec, step); err != nil {
			p.logger.Error("normalization step failed",
				zap.String("type", typeName),
				zap.String("step", step.Name),
				zap.String("field", step.Field),
				zap.Error(err),
			)
		}
	}
}

func (p *Pipeline) applyStep(rec model.Record, step Step) error {
	current, err := rec.Field(step.Field)
	if err != nil {
		return err
	}
	next, err := step.Apply(current)
	if err != nil {
		return fmt.Errorf("apply %s: %w", step.Name, err)
	}
	return rec.SetField(step.Field, next)
}
