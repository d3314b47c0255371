// Package pipeline runs the fetch, align, model and report stages of one run
// in order, handing each stage's output to the next.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
	"macrovecm/internal/config"
	"macrovecm/internal/fetch"
	"macrovecm/internal/logger"
	"macrovecm/internal/panel"
	"macrovecm/internal/regress"
	"macrovecm/internal/series"
	"macrovecm/internal/tsa"
)

// Stage names as they appear in logs and errors
const (
	StageFetch       = "fetch"
	StageNormalize   = "normalize"
	StageDerive      = "derive"
	StageMerge       = "merge"
	StageStationary  = "stationary"
	StageRegression  = "regression"
	StageADF         = "adf"
	StageLagSelect   = "lag_selection"
	StageJohansen    = "johansen"
	StageVECM        = "vecm"
	StagePortmanteau = "portmanteau"
	StageIRF         = "irf_bootstrap"
	StageForecast    = "forecast"
	StageReport      = "report"
)

// PanelSource serves dimensioned datasets (Eurostat).
type PanelSource interface {
	FetchPanel(ctx context.Context, req fetch.PanelRequest) (*fetch.PanelResponse, error)
}

// SeriesSource serves single series (FRED).
type SeriesSource interface {
	FetchSeries(ctx context.Context, req fetch.SeriesRequest) (*fetch.SeriesResponse, error)
}

// ModelArtifacts is everything a run produces.
type ModelArtifacts struct {
	RunID string

	Merged     *panel.Panel
	Stationary *panel.Panel

	Regression  *regress.Result
	ADF         []*tsa.ADFResult
	LagOrder    *tsa.LagSelection
	Johansen    *tsa.JohansenResult
	VECM        *tsa.VECM
	VAR         *tsa.ReducedFormVAR
	Portmanteau *tsa.PortmanteauResult
	IRF         *tsa.IRFBootstrapResult

	// Forecast rows continue monthly after the last merged date; columns follow VECM.VarNames.
	Forecast *mat.Dense
}

// Pipeline holds the configuration and collaborators of a run.
type Pipeline struct {
	cfg     *config.Config
	log     zerolog.Logger
	runID   string
	panels  PanelSource
	series  SeriesSource
	console io.Writer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSources replaces the HTTP clients.
func WithSources(panels PanelSource, series SeriesSource) Option {
	return func(p *Pipeline) {
		p.panels = panels
		p.series = series
	}
}

// WithConsole sets where the printed summaries go; os.Stdout by default.
func WithConsole(w io.Writer) Option {
	return func(p *Pipeline) { p.console = w }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New creates a pipeline for a validated configuration.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		log:     log,
		runID:   uuid.NewString(),
		panels:  fetch.NewEurostatClient(cfg.Eurostat.APIBaseURL, cfg.Eurostat.Timeout),
		series:  fetch.NewFREDClient(cfg.FRED.APIBaseURL, cfg.FRED.APIKey, cfg.FRED.Timeout),
		console: os.Stdout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunID returns the id attached to every log line of this run.
func (p *Pipeline) RunID() string { return p.runID }

// Run executes every stage. The first failing stage stops the run and is
// returned as an *apperr.StageError.
func (p *Pipeline) Run(ctx context.Context) (*ModelArtifacts, error) {
	start := time.Now()
	p.log.Info().Str("run_id", p.runID).Str("region", p.cfg.Region).Msg("run started")

	art := &ModelArtifacts{RunID: p.runID}

	var raw rawInputs
	if err := p.stage(StageFetch, apperr.KindFetch, func(l zerolog.Logger) (err error) {
		raw, err = p.fetchAll(ctx, l)
		return err
	}); err != nil {
		return nil, err
	}

	var normalized normalizedInputs
	if err := p.stage(StageNormalize, apperr.KindAlignment, func(l zerolog.Logger) (err error) {
		normalized, err = normalize(raw, p.cfg)
		return err
	}); err != nil {
		return nil, err
	}

	var inputs []series.Series
	if err := p.stage(StageDerive, apperr.KindAlignment, func(l zerolog.Logger) (err error) {
		inputs, err = derive(normalized)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(StageMerge, apperr.KindAlignment, func(l zerolog.Logger) (err error) {
		art.Merged, err = p.merge(inputs, l)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(StageStationary, apperr.KindAlignment, func(l zerolog.Logger) (err error) {
		art.Stationary, err = panel.Stationary(art.Merged)
		if err == nil {
			l.Debug().Int("rows", art.Stationary.Len()).Msg("differenced panel")
		}
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(StageRegression, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		art.Regression, err = regress.Fit(art.Stationary, regress.Model{
			Dependent:  p.cfg.Regression.Dependent,
			Regressors: p.cfg.Regression.Regressors,
		})
		if err == nil {
			l.Info().Int("n", art.Regression.N).Float64("r2", art.Regression.RSquared).Msg("regression fitted")
		}
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(StageADF, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		art.ADF, err = p.unitRootTests(art.Merged, l)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.model(art); err != nil {
		return nil, err
	}

	if err := p.stage(StageReport, apperr.KindOutput, func(l zerolog.Logger) error {
		return p.report(art, l)
	}); err != nil {
		return nil, err
	}

	p.log.Info().Str("run_id", p.runID).Dur("elapsed", time.Since(start)).Msg("run completed")
	return art, nil
}

// stage runs fn with a stage-scoped logger and wraps its error. Errors carrying
// a modelling sentinel are reclassified; others keep kind.
func (p *Pipeline) stage(name string, kind apperr.Kind, fn func(l zerolog.Logger) error) error {
	l := logger.Stage(p.log, p.runID, name)
	start := time.Now()
	l.Debug().Msg("stage started")

	if err := fn(l); err != nil {
		k := apperr.Classify(err, kind)
		l.Error().Err(err).Str("kind", string(k)).Msg("stage failed")
		return apperr.Wrap(k, name, err)
	}
	l.Debug().Dur("elapsed", time.Since(start)).Msg("stage completed")
	return nil
}
