package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Adjustment is a single promotion percentage with its compounding behaviour.
// Only Progressive and Additive implement it.
type Adjustment interface {
	Percent() decimal.Decimal
	Mode() CompoundMode

	apply(running, bar decimal.Decimal) decimal.Decimal
	undo(running, bar decimal.Decimal) decimal.Decimal
	coefficient(a decimal.Decimal) decimal.Decimal
	describe(before, after, bar decimal.Decimal) string
	describeUndo(before, after, bar decimal.Decimal) string
}

// Progressive multiplies the running price by (1 - Pct).
type Progressive struct{ Pct decimal.Decimal }

// Additive subtracts Pct of the original BAR from the running price.
type Additive struct{ Pct decimal.Decimal }

// NewAdjustment builds the variant for mode. Unset modes compound progressively.
func NewAdjustment(mode CompoundMode, pct decimal.Decimal) Adjustment {
	if mode == CompoundAdditive {
		return Additive{Pct: pct}
	}
	return Progressive{Pct: pct}
}

func (p Progressive) Percent() decimal.Decimal { return p.Pct }
func (p Progressive) Mode() CompoundMode        { return CompoundProgressive }

func (p Progressive) apply(running, _ decimal.Decimal) decimal.Decimal {
	return running.Mul(one.Sub(fraction(p.Pct)))
}

func (p Progressive) undo(running, _ decimal.Decimal) decimal.Decimal {
	return running.Div(one.Sub(fraction(p.Pct)))
}

func (p Progressive) coefficient(a decimal.Decimal) decimal.Decimal {
	return a.Mul(one.Sub(fraction(p.Pct)))
}

func (p Progressive) describe(before, after, _ decimal.Decimal) string {
	return fmt.Sprintf("%s × (1 - %s) = %s", formatMoney(before), formatPct(p.Pct), formatMoney(after))
}

func (p Progressive) describeUndo(before, after, _ decimal.Decimal) string {
	return fmt.Sprintf("%s / (1 - %s) = %s", formatMoney(before), formatPct(p.Pct), formatMoney(after))
}

func (a Additive) Percent() decimal.Decimal { return a.Pct }
func (a Additive) Mode() CompoundMode        { return CompoundAdditive }

func (a Additive) apply(running, bar decimal.Decimal) decimal.Decimal {
	return running.Sub(bar.Mul(fraction(a.Pct)))
}

func (a Additive) undo(running, bar decimal.Decimal) decimal.Decimal {
	return running.Add(bar.Mul(fraction(a.Pct)))
}

func (a Additive) coefficient(c decimal.Decimal) decimal.Decimal {
	return c.Sub(fraction(a.Pct))
}

func (a Additive) describe(before, after, bar decimal.Decimal) string {
	return fmt.Sprintf("%s - %s × %s = %s", formatMoney(before), formatPct(a.Pct), formatMoney(bar), formatMoney(after))
}

func (a Additive) describeUndo(before, after, bar decimal.Decimal) string {
	return fmt.Sprintf("%s + %s × %s = %s", formatMoney(before), formatPct(a.Pct), formatMoney(bar), formatMoney(after))
}

// Commission is a channel's commission model. Percent already includes Boost.
type Commission struct {
	Percent decimal.Decimal
	Mode    CompoundMode
	Boost   decimal.Decimal
}

func (c Commission) validate() error {
	if c.Boost.IsNegative() {
		return fmt.Errorf("%w: negative commission boost %s%%", ErrInvalidCommission, c.Boost)
	}
	if !validPercent(c.Percent) {
		return fmt.Errorf("%w: commission %s%% outside [0, 100)", ErrInvalidCommission, c.Percent)
	}
	if c.Mode != CompoundProgressive && c.Mode != CompoundAdditive {
		return fmt.Errorf("%w: unknown commission mode %q", ErrInvalidCommission, c.Mode)
	}
	return nil
}

func (c Commission) apply(net decimal.Decimal) decimal.Decimal {
	if c.Mode == CompoundAdditive {
		return net.Mul(one.Add(fraction(c.Percent)))
	}
	return net.Div(one.Sub(fraction(c.Percent)))
}

func (c Commission) invert(bar decimal.Decimal) decimal.Decimal {
	if c.Mode == CompoundAdditive {
		return bar.Div(one.Add(fraction(c.Percent)))
	}
	return bar.Mul(one.Sub(fraction(c.Percent)))
}

func (c Commission) describe(net, bar decimal.Decimal) string {
	var s string
	if c.Mode == CompoundAdditive {
		s = fmt.Sprintf("NET %s × (1 + %s) = %s", formatMoney(net), formatPct(c.Percent), formatMoney(bar))
	} else {
		s = fmt.Sprintf("NET %s / (1 - %s) = %s", formatMoney(net), formatPct(c.Percent), formatMoney(bar))
	}
	if c.Boost.IsPositive() {
		s += fmt.Sprintf(" (base %s + boosters %s)", formatPct(c.Percent.Sub(c.Boost)), formatPct(c.Boost))
	}
	return s
}

func (c Commission) describeInverse(bar, net decimal.Decimal) string {
	if c.Mode == CompoundAdditive {
		return fmt.Sprintf("BAR %s / (1 + %s) = %s", formatMoney(bar), formatPct(c.Percent), formatMoney(net))
	}
	return fmt.Sprintf("BAR %s × (1 - %s) = %s", formatMoney(bar), formatPct(c.Percent), formatMoney(net))
}

// PromotionStep is one winning promotion in application order.
type PromotionStep struct {
	InstanceID string
	Name       string
	Group      Group
	Adjustment Adjustment
}

// Plan is the ordered list of steps between NET and the display price. Forward,
// FromBar and Reverse all replay the same steps.
type Plan struct {
	Commission Commission
	// Multiplier scales NET before commission. Zero means no adjustment.
	Multiplier  decimal.Decimal
	Promotions  []PromotionStep
	Rounding    Rounding
	MaxDiscount decimal.Decimal
	// MinRate and MaxRate bound BAR in forward mode. Zero leaves a side open.
	MinRate Money
	MaxRate Money
}

// Quote is the result of running a plan for one price.
type Quote struct {
	Net                  Money
	Bar                  Money
	Display              Money
	CommissionAmount     Money
	TotalDiscountPercent decimal.Decimal
	Trace                []TraceStep
	// Guardrail is MIN_RATE or MAX_RATE when BAR was clamped.
	Guardrail string
}

// NewPlan builds the plan for channel from the resolver winners.
func NewPlan(channel Channel, policy Policy, winners []Instance, settings Settings) Plan {
	steps := make([]PromotionStep, 0, len(winners))
	for _, w := range winners {
		mode := w.Mode
		if mode == "" && w.Definition != nil {
			mode = w.Definition.Mode
		}
		if mode == "" {
			mode = channel.CommissionMode
		}
		step := PromotionStep{InstanceID: w.ID, Name: w.name(), Adjustment: NewAdjustment(mode, w.Percent)}
		if w.Definition != nil {
			step.Group = w.Definition.Group
		}
		steps = append(steps, step)
	}
	return Plan{
		Commission: Commission{
			Percent: channel.EffectiveCommission(),
			Mode:    channel.CommissionMode,
			Boost:   channel.Boost(),
		},
		Multiplier:  settings.OccupancyMultiplier,
		Promotions:  steps,
		Rounding:    settings.rounding(),
		MaxDiscount: policy.MaxDiscountPercent,
		MinRate:     settings.MinRate,
		MaxRate:     settings.MaxRate,
	}
}

// Coefficient is display/BAR for this plan's promotions.
func (p Plan) Coefficient() decimal.Decimal {
	a := one
	for _, step := range p.Promotions {
		a = step.Adjustment.coefficient(a)
	}
	return a
}

// DiscountSum is the plain sum of promotion percentages.
func (p Plan) DiscountSum() decimal.Decimal {
	sum := decimal.Zero
	for _, step := range p.Promotions {
		sum = sum.Add(step.Adjustment.Percent())
	}
	return sum
}

// Validate reports the first reason the plan cannot price anything.
func (p Plan) Validate() error {
	if err := p.Commission.validate(); err != nil {
		return err
	}
	for _, step := range p.Promotions {
		if !validPercent(step.Adjustment.Percent()) {
			return fmt.Errorf("%w: %s at %s%% outside [0, 100)", ErrInvalidDiscount, step.Name, step.Adjustment.Percent())
		}
	}
	if p.MaxDiscount.IsPositive() && p.DiscountSum().GreaterThan(p.MaxDiscount) {
		return fmt.Errorf("%w: total discount %s%% exceeds channel cap %s%%", ErrInvalidDiscount, p.DiscountSum(), p.MaxDiscount)
	}
	if !p.Coefficient().IsPositive() {
		return fmt.Errorf("%w: cumulative discount reaches 100%%", ErrInvalidDiscount)
	}
	if p.Multiplier.IsNegative() {
		return fmt.Errorf("%w: occupancy multiplier %s", ErrInvalidSettings, p.Multiplier)
	}
	return nil
}

// Warnings lists non-fatal advisories for the plan.
func (p Plan) Warnings() []string {
	var warnings []string
	total := p.DiscountSum()
	if p.MaxDiscount.IsPositive() && total.GreaterThan(p.MaxDiscount.Sub(decimal.NewFromInt(10))) && !total.GreaterThan(p.MaxDiscount) {
		warnings = append(warnings, fmt.Sprintf("total discount near limit (%s / %s)", formatPct(total), formatPct(p.MaxDiscount)))
	}
	if reduction := p.Commission.Percent.Add(total); reduction.GreaterThan(decimal.NewFromInt(90)) {
		warnings = append(warnings, fmt.Sprintf("commission + discount = %s (recommended < 90%%)", formatPct(reduction)))
	}
	return warnings
}

// clamp keeps BAR inside the rate bounds and names the bound it hit.
func (p Plan) clamp(bar decimal.Decimal) (decimal.Decimal, string) {
	if p.MinRate > 0 && bar.LessThan(decimal.NewFromInt(p.MinRate)) {
		return decimal.NewFromInt(p.MinRate), GuardrailMinRate
	}
	if p.MaxRate > 0 && bar.GreaterThan(decimal.NewFromInt(p.MaxRate)) {
		return decimal.NewFromInt(p.MaxRate), GuardrailMaxRate
	}
	return bar, ""
}

func (p Plan) scaled() bool {
	return !p.Multiplier.IsZero() && !p.Multiplier.Equal(one)
}

// Forward prices net into BAR and display.
func (p Plan) Forward(net Money) (Quote, error) {
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}
	if net < 0 {
		return Quote{}, fmt.Errorf("%w: net %d", ErrInvalidPrice, net)
	}

	trace := make([]TraceStep, 0, len(p.Promotions)+3)
	base := decimal.NewFromInt(net)
	if p.scaled() {
		scaled := base.Mul(p.Multiplier)
		trace = append(trace, TraceStep{
			Step:        "Occupancy",
			Description: fmt.Sprintf("NET %s × %s = %s", formatMoney(base), p.Multiplier, formatMoney(scaled)),
			PriceAfter:  roundMoney(scaled),
		})
		base = scaled
	}

	gross := p.Commission.apply(base)
	trace = append(trace, TraceStep{Step: "Commission", Description: p.Commission.describe(base, gross), PriceAfter: roundMoney(gross)})

	bar := p.Rounding.apply(gross)
	if !bar.Equal(gross) {
		trace = append(trace, TraceStep{
			Step:        "Rounding",
			Description: fmt.Sprintf("%s → %s (%s)", formatMoney(gross), formatMoney(bar), p.Rounding),
			PriceAfter:  roundMoney(bar),
		})
	}
	clamped, guardrail := p.clamp(bar)
	if guardrail != "" {
		trace = append(trace, TraceStep{
			Step:        "Guardrail",
			Description: fmt.Sprintf("BAR %s → %s (%s)", formatMoney(bar), formatMoney(clamped), guardrail),
			PriceAfter:  roundMoney(clamped),
		})
		bar = clamped
		base = p.Commission.invert(bar)
	}

	running := bar
	for _, step := range p.Promotions {
		before := running
		running = step.Adjustment.apply(running, bar)
		trace = append(trace, TraceStep{Step: step.Name, Description: step.Adjustment.describe(before, running, bar), PriceAfter: roundMoney(running)})
	}

	q := newQuote(net, base, bar, running, trace)
	q.Guardrail = guardrail
	return q, nil
}

// FromBar applies promotions to a known BAR and inverts commission for NET.
func (p Plan) FromBar(bar Money) (Quote, error) {
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}
	if bar < 0 {
		return Quote{}, fmt.Errorf("%w: bar %d", ErrInvalidPrice, bar)
	}

	barD := decimal.NewFromInt(bar)
	trace := make([]TraceStep, 0, len(p.Promotions)+3)
	trace = append(trace, TraceStep{Step: "BAR", Description: "BAR " + formatMoney(barD), PriceAfter: bar})

	running := barD
	for _, step := range p.Promotions {
		before := running
		running = step.Adjustment.apply(running, barD)
		trace = append(trace, TraceStep{Step: step.Name, Description: step.Adjustment.describe(before, running, barD), PriceAfter: roundMoney(running)})
	}

	base, net, trace := p.inverseCommission(barD, trace)
	return newQuote(roundMoney(net), base, barD, running, trace), nil
}

// Reverse solves BAR and NET from a target display price by replaying the
// promotion steps backwards.
func (p Plan) Reverse(display Money) (Quote, error) {
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}
	if display < 0 {
		return Quote{}, fmt.Errorf("%w: display %d", ErrInvalidPrice, display)
	}

	displayD := decimal.NewFromInt(display)
	bar := displayD.Div(p.Coefficient())

	trace := make([]TraceStep, 0, len(p.Promotions)+3)
	trace = append(trace, TraceStep{Step: "Display", Description: "Display " + formatMoney(displayD), PriceAfter: display})

	running := displayD
	for i := len(p.Promotions) - 1; i >= 0; i-- {
		step := p.Promotions[i]
		before := running
		running = step.Adjustment.undo(running, bar)
		trace = append(trace, TraceStep{
			Step:        "Undo " + step.Name,
			Description: step.Adjustment.describeUndo(before, running, bar),
			PriceAfter:  roundMoney(running),
		})
	}

	base, net, trace := p.inverseCommission(bar, trace)
	return newQuote(roundMoney(net), base, bar, displayD, trace), nil
}

func (p Plan) inverseCommission(bar decimal.Decimal, trace []TraceStep) (decimal.Decimal, decimal.Decimal, []TraceStep) {
	base := p.Commission.invert(bar)
	trace = append(trace, TraceStep{Step: "Commission", Description: p.Commission.describeInverse(bar, base), PriceAfter: roundMoney(base)})
	net := base
	if p.scaled() {
		net = base.Div(p.Multiplier)
		trace = append(trace, TraceStep{
			Step:        "Occupancy",
			Description: fmt.Sprintf("%s / %s = %s", formatMoney(base), p.Multiplier, formatMoney(net)),
			PriceAfter:  roundMoney(net),
		})
	}
	return base, net, trace
}

func newQuote(net Money, base, bar, display decimal.Decimal, trace []TraceStep) Quote {
	q := Quote{
		Net:              net,
		Bar:              roundMoney(bar),
		Display:          roundMoney(display),
		CommissionAmount: roundMoney(bar) - roundMoney(base),
		Trace:            trace,
	}
	if bar.IsPositive() {
		q.TotalDiscountPercent = bar.Sub(display).Div(bar).Mul(hundred).Round(2)
	}
	return q
}
