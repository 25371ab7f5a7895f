// Package swapper implements the local search engine: independent workers
// that repeatedly improve seed solutions by exchanging jobs between
// machines, restart from the repository or from scratch, and feed what they
// find back into the shared repository and bounds.
package swapper

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/me/makespan/pkg/model"
)

// TacticKind selects how a worker looks for its next move.
type TacticKind int

const (
	// BestSwap scans the heaviest and lightest machine for the exchange that
	// closes their gap the most.
	BestSwap TacticKind = iota
	// RandomSwap samples random exchanges until one is accepted.
	RandomSwap
)

// Tactic is a move-finding strategy. FailsUntilStop only applies to
// RandomSwap.
type Tactic struct {
	Kind           TacticKind
	FailsUntilStop int
}

func (t Tactic) String() string {
	if t.Kind == RandomSwap {
		return fmt.Sprintf("random-swap-%d", t.FailsUntilStop)
	}
	return "best-swap"
}

// RuleKind selects when a candidate move is accepted.
type RuleKind int

const (
	// Improvement accepts strictly improving moves.
	Improvement RuleKind = iota
	// DeclineByChance accepts improvements and otherwise Percent% of moves.
	DeclineByChance
	// ImprovementOrRandomRestartByChance is a pre-check for BestSwap: with
	// probability Percent/100 one random swap is applied instead of
	// computing the best one, otherwise the best swap must improve. It is
	// only valid together with BestSwap.
	ImprovementOrRandomRestartByChance
	// AcceptAll accepts every move.
	AcceptAll
)

// Rule is an acceptance rule. Percent is in [0,100].
type Rule struct {
	Kind    RuleKind
	Percent int
}

func (r Rule) String() string {
	switch r.Kind {
	case DeclineByChance:
		return fmt.Sprintf("decline-by-%d%%-chance", r.Percent)
	case ImprovementOrRandomRestartByChance:
		return fmt.Sprintf("improvement-or-rr-by-%d%%-chance", r.Percent)
	case AcceptAll:
		return "all"
	}
	return "improvement"
}

// RestartMode decides when a worker abandons its current walk.
type RestartMode int

const (
	// RestartSteps restarts after a number of accepted moves; the number
	// grows by ScalingFactor after each restart.
	RestartSteps RestartMode = iota
	// RestartPossibility restarts after each move with a probability that
	// shrinks by ScalingFactor after each restart.
	RestartPossibility
)

func (m RestartMode) String() string {
	if m == RestartPossibility {
		return "possibility"
	}
	return "steps"
}

// Config is one local search configuration. Every worker of an engine uses
// the same Config.
type Config struct {
	Tactic                   Tactic
	Rule                     Rule
	Solutions                int
	RestartMode              RestartMode
	RestartAfterSteps        int
	RestartPossibility       float64
	ScalingFactor            float64
	RandomRestartPossibility float64
	Lambda                   float64
}

const (
	defaultFailsUntilStop     = 50
	defaultRestartAfterSteps  = 1000
	defaultRestartPossibility = 0.01
)

// DefaultConfig returns the configuration used for empty fields.
func DefaultConfig() Config {
	return Config{
		Tactic:                   Tactic{Kind: BestSwap},
		Rule:                     Rule{Kind: Improvement},
		Solutions:                1,
		RestartMode:              RestartSteps,
		RestartAfterSteps:        defaultRestartAfterSteps,
		RestartPossibility:       defaultRestartPossibility,
		ScalingFactor:            1.1,
		RandomRestartPossibility: 0.1,
		Lambda:                   0.5,
	}
}

var fieldNames = []string{
	"tactic", "rule", "solutions", "restart_mode", "threshold",
	"scaling", "random_restart", "lambda",
}

// ParseConfig parses
//
//	<tactic>,<rule>,<solutions>,<restart-mode>,<threshold>,<scaling>,<random-restart>,<lambda>
//
// Trailing fields may be omitted and empty fields take their default.
func ParseConfig(s string) (Config, error) {
	cfg := DefaultConfig()
	var fields []string
	if strings.TrimSpace(s) != "" {
		fields = strings.Split(s, ",")
	}
	if len(fields) > len(fieldNames) {
		return Config{}, configError("config", s, fmt.Sprintf("expected at most %d fields, got %d", len(fieldNames), len(fields)))
	}
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	var err error
	if v := get(0); v != "" {
		if cfg.Tactic, err = parseTactic(v); err != nil {
			return Config{}, err
		}
	}
	if v := get(1); v != "" {
		if cfg.Rule, err = parseRule(v); err != nil {
			return Config{}, err
		}
	}
	if v := get(2); v != "" {
		if cfg.Solutions, err = parseSolutions(v); err != nil {
			return Config{}, err
		}
	}
	switch v := get(3); v {
	case "", "steps":
	case "possibility":
		cfg.RestartMode = RestartPossibility
	default:
		return Config{}, configError(fieldNames[3], v, "must be steps or possibility")
	}
	if v := get(4); v != "" {
		if cfg.RestartMode == RestartSteps {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, configError(fieldNames[4], v, "must be an integer in steps mode")
			}
			cfg.RestartAfterSteps = n
		} else if cfg.RestartPossibility, err = parseFloat(4, v); err != nil {
			return Config{}, err
		}
	}
	if v := get(5); v != "" {
		if cfg.ScalingFactor, err = parseFloat(5, v); err != nil {
			return Config{}, err
		}
	}
	if v := get(6); v != "" {
		if cfg.RandomRestartPossibility, err = parseFloat(6, v); err != nil {
			return Config{}, err
		}
	}
	if v := get(7); v != "" {
		if cfg.Lambda, err = parseFloat(7, v); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the value ranges of every field.
func (c Config) Validate() error {
	switch {
	case c.Tactic.Kind == RandomSwap && c.Tactic.FailsUntilStop < 1:
		return configError(fieldNames[0], c.Tactic.String(), "fails until stop must be >= 1")
	case c.Rule.Percent < 0 || c.Rule.Percent > 100:
		return configError(fieldNames[1], c.Rule.String(), "percentage must be in [0,100]")
	case c.Rule.Kind == ImprovementOrRandomRestartByChance && c.Tactic.Kind != BestSwap:
		return configError(fieldNames[1], c.Rule.String(), "only applies to best-swap")
	case c.Solutions < 1:
		return configError(fieldNames[2], strconv.Itoa(c.Solutions), "must be >= 1")
	case c.RestartMode == RestartSteps && c.RestartAfterSteps < 1:
		return configError(fieldNames[4], strconv.Itoa(c.RestartAfterSteps), "must be >= 1")
	case c.RestartMode == RestartPossibility && (c.RestartPossibility <= 0 || c.RestartPossibility > 1):
		return configError(fieldNames[4], formatFloat(c.RestartPossibility), "must be in (0,1]")
	case c.ScalingFactor <= 0:
		return configError(fieldNames[5], formatFloat(c.ScalingFactor), "must be > 0")
	case c.RandomRestartPossibility < 0 || c.RandomRestartPossibility > 1:
		return configError(fieldNames[6], formatFloat(c.RandomRestartPossibility), "must be in [0,1]")
	case c.Lambda <= 0:
		return configError(fieldNames[7], formatFloat(c.Lambda), "must be > 0")
	}
	return nil
}

// String returns the canonical descriptor, which ParseConfig accepts.
func (c Config) String() string {
	threshold := strconv.Itoa(c.RestartAfterSteps)
	if c.RestartMode == RestartPossibility {
		threshold = formatFloat(c.RestartPossibility)
	}
	return strings.Join([]string{
		c.Tactic.String(),
		c.Rule.String(),
		strconv.Itoa(c.Solutions),
		c.RestartMode.String(),
		threshold,
		formatFloat(c.ScalingFactor),
		formatFloat(c.RandomRestartPossibility),
		formatFloat(c.Lambda),
	}, ",")
}

func parseTactic(v string) (Tactic, error) {
	switch v {
	case "best-swap":
		return Tactic{Kind: BestSwap}, nil
	case "random-swap":
		return Tactic{Kind: RandomSwap, FailsUntilStop: defaultFailsUntilStop}, nil
	}
	if rest, ok := strings.CutPrefix(v, "random-swap-"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Tactic{}, configError(fieldNames[0], v, "fails until stop must be an integer")
		}
		return Tactic{Kind: RandomSwap, FailsUntilStop: n}, nil
	}
	return Tactic{}, configError(fieldNames[0], v, "must be best-swap, random-swap or random-swap-<fails>")
}

func parseRule(v string) (Rule, error) {
	switch v {
	case "improvement":
		return Rule{Kind: Improvement}, nil
	case "all":
		return Rule{Kind: AcceptAll}, nil
	}
	for _, r := range []struct {
		prefix string
		kind   RuleKind
	}{
		{"decline-by-", DeclineByChance},
		{"improvement-or-rr-by-", ImprovementOrRandomRestartByChance},
	} {
		rest, ok := strings.CutPrefix(v, r.prefix)
		if !ok {
			continue
		}
		p, ok := strings.CutSuffix(rest, "%-chance")
		if !ok {
			break
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Rule{}, configError(fieldNames[1], v, "percentage must be an integer")
		}
		return Rule{Kind: r.kind, Percent: n}, nil
	}
	return Rule{}, configError(fieldNames[1], v,
		"must be improvement, decline-by-<p>%-chance, improvement-or-rr-by-<p>%-chance or all")
}

func parseSolutions(v string) (int, error) {
	if v == "max" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, configError(fieldNames[2], v, "must be an integer or max")
	}
	return n, nil
}

func parseFloat(field int, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, configError(fieldNames[field], v, "must be a number")
	}
	return f, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func configError(field, value, reason string) error {
	return &model.ConfigError{Algorithm: model.AlgorithmSwap, Field: field, Value: value, Reason: reason}
}
