package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"macrovecm/internal/apperr"
	"macrovecm/internal/config"
	"macrovecm/internal/fetch"
	"macrovecm/internal/panel"
	"macrovecm/internal/report"
	"macrovecm/internal/series"
	"macrovecm/internal/tsa"
)

// Raw series names before derivation
const (
	rawHICP = "HICP"
	rawGDP  = "GDP"
)

// The policy-rate series is published daily.
const policyRateFrequency = series.Daily

type rawInputs struct {
	hicp, unemployment, gdp, rate series.RawSeries
}

type normalizedInputs struct {
	hicp, unemployment, gdp, rate series.Series
}

func (p *Pipeline) fetchAll(ctx context.Context, l zerolog.Logger) (rawInputs, error) {
	var out rawInputs
	es := p.cfg.Eurostat

	for _, d := range []struct {
		name string
		ds   config.DatasetConfig
		dst  *series.RawSeries
	}{
		{rawHICP, es.Inflation, &out.hicp},
		{panel.Unemployment, es.Unemployment, &out.unemployment},
		{rawGDP, es.GDP, &out.gdp},
	} {
		resp, err := p.panels.FetchPanel(ctx, fetch.PanelRequest{
			Dataset: d.ds.Dataset,
			Geo:     p.cfg.Region,
			Filters: d.ds.Filters,
		})
		if err != nil {
			return out, err
		}
		if *d.dst, err = fetch.Normalize(resp, d.name); err != nil {
			return out, err
		}
		l.Info().Str("series", d.name).Str("dataset", d.ds.Dataset).
			Int("observations", len(d.dst.Obs)).Msg("fetched")
	}

	resp, err := p.series.FetchSeries(ctx, fetch.SeriesRequest{
		SeriesID:  p.cfg.FRED.SeriesID,
		Source:    p.cfg.FRED.Source,
		Start:     p.cfg.StartDate(),
		Frequency: policyRateFrequency,
	})
	if err != nil {
		return out, err
	}
	if out.rate, err = fetch.Normalize(resp, panel.InterestRate); err != nil {
		return out, err
	}
	l.Info().Str("series", panel.InterestRate).Str("series_id", p.cfg.FRED.SeriesID).
		Int("observations", len(out.rate.Obs)).Msg("fetched")
	return out, nil
}

func parseAggregation(s string) (series.Aggregation, error) {
	switch s {
	case "mean":
		return series.AggMean, nil
	case "last":
		return series.AggLast, nil
	}
	return 0, fmt.Errorf("unknown aggregation %q", s)
}

func normalize(raw rawInputs, cfg *config.Config) (normalizedInputs, error) {
	var out normalizedInputs
	for _, n := range []struct {
		in   series.RawSeries
		freq series.Frequency
		agg  string
		dst  *series.Series
	}{
		{raw.hicp, series.Monthly, cfg.Eurostat.Inflation.Aggregation, &out.hicp},
		{raw.unemployment, series.Monthly, cfg.Eurostat.Unemployment.Aggregation, &out.unemployment},
		{raw.gdp, series.Quarterly, cfg.Eurostat.GDP.Aggregation, &out.gdp},
		{raw.rate, series.Monthly, cfg.FRED.Aggregation, &out.rate},
	} {
		agg, err := parseAggregation(n.agg)
		if err != nil {
			return out, fmt.Errorf("%s: %w", n.in.Name, err)
		}
		if *n.dst, err = series.Normalize(n.in, n.freq, agg); err != nil {
			return out, err
		}
	}
	return out, nil
}

// derive returns the panel inputs: Y/Y inflation and GDP growth plus the
// interest and unemployment rates as levels.
func derive(in normalizedInputs) ([]series.Series, error) {
	inflation, err := series.YoY(in.hicp)
	if err != nil {
		return nil, err
	}
	growth, err := series.YoY(in.gdp)
	if err != nil {
		return nil, err
	}
	return []series.Series{
		inflation.Rename(panel.Inflation),
		in.rate.Rename(panel.InterestRate),
		in.unemployment.Rename(panel.Unemployment),
		growth.Rename(panel.GDPGrowth),
	}, nil
}

func (p *Pipeline) merge(inputs []series.Series, l zerolog.Logger) (*panel.Panel, error) {
	dir, err := panel.ParseFillDirection(p.cfg.Panel.Fill)
	if err != nil {
		return nil, err
	}
	merged, err := panel.Build(inputs, panel.BuildOptions{
		Floor:       p.cfg.FloorDate(),
		FillColumns: []string{panel.GDPGrowth},
		Direction:   dir,
	})
	if err != nil {
		return nil, err
	}

	if merged.Len() == 0 {
		l.Warn().Str("kind", string(apperr.KindAlignment)).Msg("aligned panel is empty")
		return merged, nil
	}
	d := merged.Dates()
	l.Info().Int("rows", merged.Len()).Time("from", d[0]).Time("to", d[len(d)-1]).
		Str("fill", dir.String()).Msg("panel merged")
	return merged, nil
}

// unitRootTests runs the ADF test on every level column and its first
// difference. The first test that cannot run fails the stage.
func (p *Pipeline) unitRootTests(merged *panel.Panel, l zerolog.Logger) ([]*tsa.ADFResult, error) {
	lags := p.cfg.Model.ADFLags
	if lags == 0 {
		lags = tsa.AutoLag
	}

	levels, err := tsa.FromPanel(merged, merged.Columns()...)
	if err != nil {
		return nil, err
	}
	diffs, err := levels.Diff()
	if err != nil {
		return nil, err
	}

	var out []*tsa.ADFResult
	run := func(name string, x []float64) error {
		res, err := tsa.ADF(name, x, lags)
		if err != nil {
			return err
		}
		l.Info().Str("series", name).Float64("statistic", res.Statistic).
			Float64("p_value", res.PValue).Int("lags", res.Lags).Msg("adf")
		out = append(out, res)
		return nil
	}
	for j, c := range levels.VarNames {
		if err := run(c, levels.Column(j)); err != nil {
			return nil, err
		}
		if err := run("D_"+c, diffs.Column(j)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Pipeline) model(art *ModelArtifacts) error {
	m := p.cfg.Model
	var levels *tsa.TimeSeries

	if err := p.stage(StageLagSelect, apperr.KindNumerical, func(l zerolog.Logger) error {
		ts, err := tsa.FromPanel(art.Merged, m.Variables...)
		if err != nil {
			return err
		}
		levels = ts
		diffs, err := ts.Diff()
		if err != nil {
			return err
		}
		crit, err := tsa.ParseCriterion(m.Criterion)
		if err != nil {
			return err
		}
		if art.LagOrder, err = tsa.SelectLagOrder(&tsa.OLSEstimator{}, diffs, m.MaxLag, crit); err != nil {
			return err
		}
		ev := l.Info().Str("policy", crit.String()).Int("order", art.LagOrder.Order())
		for c, lag := range art.LagOrder.Selected {
			ev = ev.Int(c.String(), lag)
		}
		ev.Msg("lag order selected")
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(StageJohansen, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		if art.Johansen, err = tsa.Johansen(levels, art.LagOrder.Order()); err != nil {
			return err
		}
		l.Info().Int("k", art.Johansen.K).Floats64("trace", art.Johansen.Trace).
			Int("suggested_rank", art.Johansen.SuggestedRank).Int("rank", m.Rank).Msg("trace test")
		if art.Johansen.SuggestedRank != m.Rank {
			l.Warn().Int("suggested_rank", art.Johansen.SuggestedRank).Int("rank", m.Rank).
				Msg("configured rank differs from trace test")
		}
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(StageVECM, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		if art.VECM, err = art.Johansen.VECM(m.Rank); err != nil {
			return err
		}
		if art.VAR, err = art.VECM.ToVAR(); err != nil {
			return err
		}
		l.Info().Int("rank", art.VECM.Rank).Int("lags", art.VAR.Model.Lags).Msg("level VAR derived")
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(StagePortmanteau, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		if art.Portmanteau, err = tsa.Portmanteau(art.VAR, m.SerialLags, m.Rank); err != nil {
			return err
		}
		ev := l.Info()
		if art.Portmanteau.PValue < 0.05 {
			ev = l.Warn()
		}
		ev.Float64("statistic", art.Portmanteau.Statistic).Int("df", art.Portmanteau.DF).
			Float64("p_value", art.Portmanteau.PValue).Msg("residual autocorrelation")
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(StageIRF, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		step := max(m.IRF.Runs/10, 1)
		art.IRF, err = tsa.BootstrapIRF(art.VECM, m.IRF.Impulse, tsa.BootstrapOptions{
			Runs:       m.IRF.Runs,
			Horizon:    m.IRF.Horizon,
			Confidence: m.IRF.Confidence,
			Seed:       m.IRF.Seed,
			OnDraw: func(done, total int) {
				if done%step == 0 || done == total {
					l.Debug().Int("done", done).Int("total", total).Msg("bootstrap progress")
				}
			},
		})
		if err != nil {
			return err
		}
		l.Info().Str("impulse", m.IRF.Impulse).Int("runs", m.IRF.Runs).Msg("bootstrap finished")
		return nil
	}); err != nil {
		return err
	}

	if m.ForecastSteps == 0 {
		return nil
	}
	return p.stage(StageForecast, apperr.KindNumerical, func(l zerolog.Logger) (err error) {
		if art.Forecast, err = art.VAR.Forecast(levels.Y, m.ForecastSteps); err != nil {
			return err
		}
		l.Info().Int("steps", m.ForecastSteps).Msg("forecast computed")
		return nil
	})
}

func (p *Pipeline) report(art *ModelArtifacts, l zerolog.Logger) error {
	out := p.cfg.Output
	path := func(name string) string { return filepath.Join(out.Dir, name) }
	written := func(kind, file string) {
		l.Info().Str("artifact", kind).Str("path", file).Msg("written")
	}

	if err := report.WritePanelCSV(path(out.PanelCSV), art.Merged); err != nil {
		return err
	}
	written("panel_csv", path(out.PanelCSV))

	if err := report.PanelChart(path(out.PanelChart), art.Merged); err != nil {
		return err
	}
	written("panel_chart", path(out.PanelChart))

	if out.IRFCSV != "" {
		if err := report.WriteIRFCSV(path(out.IRFCSV), art.IRF); err != nil {
			return err
		}
		written("irf_csv", path(out.IRFCSV))
	}
	if out.IRFChart != "" {
		if err := report.IRFChart(path(out.IRFChart), art.IRF); err != nil {
			return err
		}
		written("irf_chart", path(out.IRFChart))
	}

	dates := art.Merged.Dates()
	last := dates[len(dates)-1]
	if out.ForecastCSV != "" && art.Forecast != nil {
		if err := report.WriteForecastCSV(path(out.ForecastCSV), last, art.VECM.VarNames, art.Forecast); err != nil {
			return err
		}
		written("forecast_csv", path(out.ForecastCSV))
	}
	if out.Workbook != "" {
		if err := report.WriteWorkbook(path(out.Workbook), art.Merged, art.Regression, art.IRF); err != nil {
			return err
		}
		written("workbook", path(out.Workbook))
	}
	if out.Summary != "" {
		s := report.Summarize(art.RunID, p.cfg.Region, report.Inputs{
			Panel:       art.Merged,
			Regression:  art.Regression,
			ADF:         art.ADF,
			LagOrder:    art.LagOrder,
			Johansen:    art.Johansen,
			VECM:        art.VECM,
			Portmanteau: art.Portmanteau,
			IRF:         art.IRF,
		})
		if err := report.WriteSummary(path(out.Summary), s); err != nil {
			return err
		}
		written("summary", path(out.Summary))
	}

	w := p.console
	report.PrintRegression(w, art.Regression)
	report.PrintADF(w, art.ADF)
	report.PrintLagSelection(w, art.LagOrder)
	report.PrintJohansen(w, art.Johansen)
	report.PrintCoefficients(w, art.VAR)
	report.PrintPortmanteau(w, art.Portmanteau)
	if err := report.PrintIRF(w, art.IRF, p.cfg.Model.IRF.Response); err != nil {
		return err
	}
	if art.Forecast != nil {
		report.PrintForecast(w, last, art.VECM.VarNames, art.Forecast)
	}
	return nil
}
