// Package pipeline runs the generation stages end to end: model and rules to
// module definition, module definition or view configuration to markup, and
// rule documents to a gap report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/busm"
	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/layout"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/module"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// ModuleOptions configures GenerateModule.
type ModuleOptions struct {
	ModelPath string
	RulesPath string
	OutDir    string
	Entity    string
	Phase     int
	GapsPath  string
	Force     bool
	Logger    *zap.Logger
}

// GenerateModule builds the module definition of one entity and writes it to
// OutDir. It returns the path written.
func GenerateModule(ctx context.Context, opts ModuleOptions) (string, error) {
	logger := logging.OrNop(opts.Logger)
	if opts.Entity == "" {
		return "", errors.New("entity is required")
	}
	if opts.Phase <= 0 {
		opts.Phase = busm.DefaultPhase
	}

	model, err := busm.Load(opts.ModelPath)
	if err != nil {
		return "", err
	}
	var rs *rules.RuleSet
	if opts.RulesPath != "" {
		if rs, err = rules.Load(opts.RulesPath); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	gaps := gaplog.New(logger)
	def, err := module.Build(model, rs, opts.Entity, opts.Phase, gaps)
	if err != nil {
		return "", err
	}
	path := filepath.Join(opts.OutDir, module.FileName(opts.Entity, opts.Phase))
	if err := module.Write(path, def, opts.Force); err != nil {
		return "", err
	}
	logger.Info("module definition written",
		zap.String("path", path),
		zap.String("entity", opts.Entity),
		zap.Int("phase", opts.Phase),
		zap.Int("fields", len(def.Entity.Fields)),
		zap.Int("gaps", gaps.Len()),
	)
	return path, writeGaps(gaps, opts.GapsPath, logger)
}

// ViewOptions configures GenerateView.
type ViewOptions struct {
	// InputPath is a view configuration (.json) or a module definition (.yaml).
	InputPath string
	OutPath   string
	// ViewID selects the view of a module definition; empty selects the first.
	ViewID   string
	Rows     int
	GapsPath string
	Now      func() time.Time
	Logger   *zap.Logger
}

// RenderOptions configures Render.
type RenderOptions struct {
	Rows int
	Now  func() time.Time
	Gaps gaplog.Recorder
}

// Render checks, parses and renders a raw view configuration. It returns a
// *viewconfig.ConfigurationError when the configuration is malformed.
func Render(ctx context.Context, raw []byte, opts RenderOptions) (string, *viewconfig.Config, error) {
	gaps := opts.Gaps
	if gaps == nil {
		gaps = gaplog.Discard
	}
	if err := viewconfig.Check(raw); err != nil {
		return "", nil, err
	}
	cfg, err := viewconfig.Parse(raw, gaps)
	if err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	var genOpts []layout.Option
	if opts.Rows > 0 {
		genOpts = append(genOpts, layout.WithRows(opts.Rows))
	}
	if opts.Now != nil {
		genOpts = append(genOpts, layout.WithClock(opts.Now))
	}
	gen, err := layout.For(cfg.Layout.Type, genOpts...)
	if err != nil {
		return "", nil, err
	}
	markup, err := gen.Generate(cfg)
	if err != nil {
		return "", nil, err
	}
	return markup, cfg, nil
}

// GenerateView renders one view to OutPath.
func GenerateView(ctx context.Context, opts ViewOptions) error {
	logger := logging.OrNop(opts.Logger)

	raw, err := readViewInput(opts.InputPath, opts.ViewID)
	if err != nil {
		return err
	}
	gaps := gaplog.New(logger)
	markup, cfg, err := Render(ctx, raw, RenderOptions{Rows: opts.Rows, Now: opts.Now, Gaps: gaps})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(opts.OutPath, []byte(markup), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.OutPath, err)
	}
	logger.Info("view generated",
		zap.String("path", opts.OutPath),
		zap.String("entity", cfg.Entity.Primary),
		zap.String("layout", string(cfg.Layout.Type)),
		zap.Int("fields", len(cfg.Fields)),
		zap.Int("gaps", gaps.Len()),
	)
	return writeGaps(gaps, opts.GapsPath, logger)
}

func readViewInput(path, viewID string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err := module.Load(path)
		if err != nil {
			return nil, err
		}
		return module.ToViewConfig(def, viewID)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading view configuration: %w", err)
		}
		return data, nil
	}
}

// RuleCheckOptions configures CheckRules.
type RuleCheckOptions struct {
	RulesPath string
	ModelPath string
	GapsPath  string
	Logger    *zap.Logger
}

// CheckRules validates a rule document and, when a model is given, checks it
// against the model. It returns the gap log.
func CheckRules(ctx context.Context, opts RuleCheckOptions) (*gaplog.Log, error) {
	logger := logging.OrNop(opts.Logger)
	rs, err := rules.Load(opts.RulesPath)
	if err != nil {
		return nil, err
	}
	gaps := gaplog.New(logger)
	if opts.ModelPath != "" {
		model, err := busm.Load(opts.ModelPath)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		checkAgainstModel(rs, model, gaps)
	}
	logger.Info("business rules checked",
		zap.String("module", rs.Module),
		zap.Int("entities", len(rs.Entities)),
		zap.Int("gaps", gaps.Len()),
	)
	return gaps, writeGaps(gaps, opts.GapsPath, logger)
}

func checkAgainstModel(rs *rules.RuleSet, model *busm.Model, gaps gaplog.Recorder) {
	for _, entity := range rs.EntityNames() {
		fields, err := model.Fields(entity)
		if err != nil {
			gaps.Append(gaplog.Record{
				Category:     gaplog.CategoryUnknownEntity,
				Entity:       entity,
				Expected:     "entity declared in the model",
				Assumption:   "rules for this entity are never applied",
				SuggestedFix: "add the entity to the model or remove its rules",
				Impact:       gaplog.ImpactHigh,
			})
			continue
		}
		byName := make(map[string]busm.Field, len(fields))
		for _, f := range fields {
			byName[f.Name] = f
		}
		er := rs.ValidationRules(entity)
		for _, req := range er.Required {
			if _, ok := byName[req]; !ok {
				gaps.Append(gaplog.Record{
					Category:     gaplog.CategoryRequired,
					Entity:       entity,
					Field:        req,
					Expected:     "field declared in the model",
					Assumption:   "required rule ignored",
					SuggestedFix: "add the field to the model",
					Impact:       gaplog.ImpactHigh,
				})
			}
		}
		for _, field := range rs.StateFields(entity) {
			for _, r := range rs.CheckEnumDomain(entity, field, model.FieldValues(byName[field])) {
				gaps.Append(r)
			}
		}
	}
}

func writeGaps(gaps *gaplog.Log, path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	if err := gaps.WriteJSON(path); err != nil {
		return err
	}
	logger.Info("gap log written",
		zap.String("path", path),
		zap.Int("records", gaps.Len()),
		zap.Int("high", gaps.Count(gaplog.ImpactHigh)),
	)
	return nil
}
