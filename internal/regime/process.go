// Package regime implements the quarterly macro regime Markov process and
// the noisy daily sentiment reading derived from it.
package regime

import (
	"fmt"
	"math"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
)

// QuarterRecord is one entry of the regime history.
type QuarterRecord struct {
	Quarter int           `json:"quarter"`
	Regime  domain.Regime `json:"regime"`
}

// State is the persisted value object of the process.
type State struct {
	CurrentRegime  domain.Regime   `json:"current_regime"`
	CurrentQuarter int             `json:"current_quarter"`
	History        []QuarterRecord `json:"history"`
}

// DailyCondition is the sentiment reading shown to the player for one day.
// DisplaySentiment equals ActualSentiment only when IsAccurate.
type DailyCondition struct {
	DisplaySentiment domain.Regime `json:"display_sentiment"`
	ActualSentiment  domain.Regime `json:"actual_sentiment"`
	ActualStrength   float64       `json:"actual_strength"`
	IsAccurate       bool          `json:"is_accurate"`
}

// Process owns the regime state. Not safe for concurrent use; the session
// driver is its only caller.
type Process struct {
	cfg     Config
	rng     *quant.RNG
	preview *quant.RNG
	state   State
}

// NewProcess creates a process. preview is used only by the preview
// operations so they never shift the draws of the real transitions.
func NewProcess(cfg Config, rng, preview *quant.RNG) *Process {
	return &Process{
		cfg:     cfg,
		rng:     rng,
		preview: preview,
		state:   State{CurrentRegime: domain.RegimeRange},
	}
}

// InitFirstQuarter samples the opening regime and resets history.
func (p *Process) InitFirstQuarter() domain.Regime {
	r := domain.Regimes[p.rng.Pick(p.cfg.Initial[:])]
	p.state = State{
		CurrentRegime:  r,
		CurrentQuarter: 1,
		History:        []QuarterRecord{{Quarter: 1, Regime: r}},
	}
	return r
}

// AdvanceQuarter moves to the next quarter by one Markov step.
func (p *Process) AdvanceQuarter() domain.Regime {
	if p.state.CurrentQuarter == 0 {
		return p.InitFirstQuarter()
	}
	next := p.step(p.rng, p.state.CurrentRegime)
	p.state.CurrentQuarter++
	p.state.CurrentRegime = next
	p.state.History = append(p.state.History, QuarterRecord{Quarter: p.state.CurrentQuarter, Regime: next})
	return next
}

func (p *Process) step(rng *quant.RNG, from domain.Regime) domain.Regime {
	row := p.cfg.Transition[from]
	return domain.Regimes[rng.Pick(row[:])]
}

// Current returns the active regime.
func (p *Process) Current() domain.Regime {
	return p.state.CurrentRegime
}

// Quarter returns the 1-based quarter counter, 0 before initialisation.
func (p *Process) Quarter() int {
	return p.state.CurrentQuarter
}

// Params returns the drift and volatility bias of r.
func (p *Process) Params(r domain.Regime) Params {
	if !r.Valid() {
		return p.cfg.Params[domain.RegimeRange]
	}
	return p.cfg.Params[r]
}

// Accuracy returns the probability that the displayed sentiment is correct
// for a player level. Levels are clamped to [1,5].
func (p *Process) Accuracy(level int) float64 {
	level = min(max(level, 1), len(p.cfg.AccuracyByLevel))
	return p.cfg.AccuracyByLevel[level-1]
}

// GenerateDailyCondition draws today's reading. With probability
// 1-Accuracy(level) the displayed regime is one of the five wrong ones,
// chosen uniformly.
func (p *Process) GenerateDailyCondition(level int) DailyCondition {
	actual := p.state.CurrentRegime
	strength := p.cfg.BaseStrength[actual] + p.rng.Normal(0, p.cfg.StrengthNoise)
	strength = math.Min(math.Max(strength, 0), 1)

	cond := DailyCondition{
		DisplaySentiment: actual,
		ActualSentiment:  actual,
		ActualStrength:   strength,
		IsAccurate:       true,
	}
	if p.rng.Chance(p.Accuracy(level)) {
		return cond
	}

	wrong := make([]domain.Regime, 0, domain.RegimeCount-1)
	for _, r := range domain.Regimes {
		if r != actual {
			wrong = append(wrong, r)
		}
	}
	cond.DisplaySentiment = wrong[p.rng.IntN(len(wrong))]
	cond.IsAccurate = false
	return cond
}

// MonthlyAnomaly looks up the calendar bias for month (1-12). Visible is
// set only once the player level reaches the configured threshold.
func (p *Process) MonthlyAnomaly(month, level int) Anomaly {
	if month < 1 || month > 12 {
		return Anomaly{Month: month, VolBias: 1}
	}
	a := p.cfg.Anomalies[month-1]
	if a.VolBias == 0 {
		a.VolBias = 1
	}
	a.Visible = a.Tag != "" && level >= p.cfg.AnomalyVisibleLevel
	return a
}

// PreviewQuarters simulates n future quarters from the current regime
// without touching state or the main RNG.
func (p *Process) PreviewQuarters(n int) []domain.Regime {
	out := make([]domain.Regime, 0, max(n, 0))
	cur := p.state.CurrentRegime
	for i := 0; i < n; i++ {
		cur = p.step(p.preview, cur)
		out = append(out, cur)
	}
	return out
}

// PreviewYear is PreviewQuarters(4).
func (p *Process) PreviewYear() []domain.Regime {
	return p.PreviewQuarters(4)
}

// Snapshot returns a deep copy of the state.
func (p *Process) Snapshot() State {
	s := p.state
	s.History = append([]QuarterRecord(nil), p.state.History...)
	return s
}

// Restore replaces the state with a previously taken snapshot.
func (p *Process) Restore(s State) error {
	if !s.CurrentRegime.Valid() {
		return fmt.Errorf("restore regime state: unknown regime %d", s.CurrentRegime)
	}
	if s.CurrentQuarter < 0 {
		return fmt.Errorf("restore regime state: negative quarter %d", s.CurrentQuarter)
	}
	for _, h := range s.History {
		if !h.Regime.Valid() {
			return fmt.Errorf("restore regime state: unknown regime %d in quarter %d", h.Regime, h.Quarter)
		}
	}
	p.state = s
	p.state.History = append([]QuarterRecord(nil), s.History...)
	return nil
}
