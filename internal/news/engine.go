// Package news schedules intraday news into a session and converts news
// impact into an external price force for the market engine. The force is
// the total impulse of the event: the market engine spreads it over the
// following ticks as it decays, so the summed price push approaches it.
package news

import (
	"fmt"
	"math"
	"sort"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"

	"github.com/google/uuid"
)

// Kind distinguishes news drawn for the day from news announced the day before.
type Kind uint8

const (
	KindImmediate Kind = iota
	KindScheduled
)

func (k Kind) String() string {
	if k == KindScheduled {
		return "scheduled"
	}
	return "immediate"
}

// Event is one news item placed on the session timeline.
type Event struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	Headline    string  `json:"headline"`
	TriggerTime float64 `json:"trigger_time"` // minutes of day
	Impact      float64 `json:"impact"`       // [-1, 1]
	IsFollowUp  bool    `json:"is_follow_up"`
}

// PreviewEvent is announced today and lands at a random time tomorrow.
type PreviewEvent struct {
	Headline string  `json:"headline"`
	Impact   float64 `json:"impact"`
}

// WeeklyModifier biases one week of scheduling after weekend news.
type WeeklyModifier struct {
	Headlines       []string `json:"headlines"`
	DriftBias       float64  `json:"drift_bias"`        // shifts impact mean
	VolBias         float64  `json:"vol_bias"`          // scales impact sd
	TriggerProbBias float64  `json:"trigger_prob_bias"` // shifts trigger probability
}

// Snapshot is the state carried between sessions.
type Snapshot struct {
	Preview *PreviewEvent   `json:"preview,omitempty"`
	Pending *WeeklyModifier `json:"pending,omitempty"`
	Active  *WeeklyModifier `json:"active,omitempty"`
}

// Engine owns the session schedule. Not safe for concurrent use.
type Engine struct {
	cfg Config
	rng *quant.RNG

	schedule  []Event
	triggered map[string]struct{}
	preview   *PreviewEvent
	pending   *WeeklyModifier
	active    *WeeklyModifier
}

// NewEngine creates a news engine.
func NewEngine(cfg Config, rng *quant.RNG) *Engine {
	return &Engine{
		cfg:       cfg,
		rng:       rng,
		triggered: make(map[string]struct{}),
	}
}

// ScheduleSession builds the day's timeline. sessionKey seeds the event ids
// so the same session always yields the same ids.
func (n *Engine) ScheduleSession(regime domain.Regime, sessionKey string) []Event {
	n.schedule = n.schedule[:0]
	clear(n.triggered)

	previewAt := -1.0
	if n.preview != nil {
		previewAt = n.rng.Uniform(domain.SessionOpen+n.cfg.FirstDelayMin, n.cfg.LatestMinute)
		n.schedule = append(n.schedule, Event{
			ID:          eventID(sessionKey, "preview"),
			Kind:        KindScheduled,
			Headline:    n.preview.Headline,
			TriggerTime: previewAt,
			Impact:      n.preview.Impact,
		})
		n.preview = nil
	}

	prob := n.cfg.TriggerProb[regime]
	dist := n.cfg.Impact[regime]
	if m := n.active; m != nil {
		prob += m.TriggerProbBias
		dist.Mean += m.DriftBias
		dist.SD *= m.VolBias
	}
	prob = math.Min(math.Max(prob, 0), 1)

	t := domain.SessionOpen
	for k := 0; k < n.cfg.MaxEvents[regime]; k++ {
		if !n.rng.Chance(prob) {
			break
		}
		if k == 0 {
			t += n.rng.Uniform(n.cfg.FirstDelayMin, n.cfg.FirstDelayMax)
		} else {
			t += n.cfg.MinGapMinutes + n.rng.Uniform(0, n.cfg.ExtraGapMax)
		}
		// Keep clear of the carried preview as well.
		if previewAt >= 0 && math.Abs(t-previewAt) < n.cfg.MinGapMinutes {
			t = previewAt + n.cfg.MinGapMinutes
		}
		if t > n.cfg.LatestMinute {
			break
		}
		impact := clampImpact(n.rng.Normal(dist.Mean, dist.SD))
		headline := pickHeadline(impact, n.rng.IntN(16))
		if k > 0 {
			headline = followUpPrefix + headline
		}
		n.schedule = append(n.schedule, Event{
			ID:          eventID(sessionKey, fmt.Sprintf("immediate-%d", k)),
			Kind:        KindImmediate,
			Headline:    headline,
			TriggerTime: t,
			Impact:      impact,
			IsFollowUp:  k > 0,
		})
	}

	sort.SliceStable(n.schedule, func(i, j int) bool {
		return n.schedule[i].TriggerTime < n.schedule[j].TriggerTime
	})
	return n.Schedule()
}

func eventID(sessionKey, slot string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionKey+"/"+slot)).String()
}

func clampImpact(v float64) float64 {
	return math.Min(math.Max(v, -1), 1)
}

// Schedule returns a copy of the session timeline.
func (n *Engine) Schedule() []Event {
	return append([]Event(nil), n.schedule...)
}

// CheckTriggers returns every scheduled event with TriggerTime <= now that
// has not fired yet, in time order. Each id fires at most once per session,
// and several events may fire on one call.
func (n *Engine) CheckTriggers(now float64) []Event {
	var fired []Event
	for _, ev := range n.schedule {
		if ev.TriggerTime > now {
			break
		}
		if _, done := n.triggered[ev.ID]; done {
			continue
		}
		n.triggered[ev.ID] = struct{}{}
		fired = append(fired, ev)
	}
	return fired
}

// ExternalForce maps an event's impact to the total impulse in price units.
func (n *Engine) ExternalForce(ev Event, price float64) float64 {
	return ev.Impact * n.cfg.BaseShockSD * n.cfg.ForceMult * price
}

// GeneratePreview may announce an event for the next session. The returned
// preview is carried into the next ScheduleSession.
func (n *Engine) GeneratePreview(regime domain.Regime) *PreviewEvent {
	if !n.rng.Chance(n.cfg.PreviewProb) {
		return nil
	}
	dist := n.cfg.Impact[regime]
	impact := clampImpact(n.rng.Normal(dist.Mean, dist.SD))
	n.preview = &PreviewEvent{
		Headline: "Scheduled: " + pickHeadline(impact, n.rng.IntN(16)),
		Impact:   impact,
	}
	p := *n.preview
	return &p
}

// GenerateWeekendNews draws 1-3 weekend items and stores their combined
// bias as the pending modifier for the following week.
func (n *Engine) GenerateWeekendNews() WeeklyModifier {
	count := n.rng.IntRange(n.cfg.WeekendMin, n.cfg.WeekendMax)
	m := WeeklyModifier{VolBias: 1}
	for i := 0; i < count; i++ {
		sentiment := n.rng.Normal(0, 1)
		m.Headlines = append(m.Headlines, weekendHeadlines[n.rng.IntN(len(weekendHeadlines))])
		m.DriftBias += n.cfg.WeekendDrift * math.Max(-1, math.Min(1, sentiment))
		m.VolBias += n.cfg.WeekendVol
		m.TriggerProbBias += n.cfg.WeekendTriggerBias
	}
	n.pending = &m
	out := m
	out.Headlines = append([]string(nil), m.Headlines...)
	return out
}

// StartWeek activates the pending weekend modifier for this week only and
// clears the pending slot.
func (n *Engine) StartWeek() {
	n.active = n.pending
	n.pending = nil
}

// ActiveModifier returns the modifier in force this week, if any.
func (n *Engine) ActiveModifier() *WeeklyModifier {
	if n.active == nil {
		return nil
	}
	m := *n.active
	return &m
}

// EndSession discards the session timeline.
func (n *Engine) EndSession() {
	n.schedule = n.schedule[:0]
	clear(n.triggered)
}

// Snapshot returns the state carried across sessions.
func (n *Engine) Snapshot() Snapshot {
	var s Snapshot
	if n.preview != nil {
		p := *n.preview
		s.Preview = &p
	}
	if n.pending != nil {
		m := *n.pending
		s.Pending = &m
	}
	if n.active != nil {
		m := *n.active
		s.Active = &m
	}
	return s
}

// Restore loads a snapshot taken by Snapshot.
func (n *Engine) Restore(s Snapshot) {
	n.preview, n.pending, n.active = s.Preview, s.Pending, s.Active
	n.EndSession()
}
