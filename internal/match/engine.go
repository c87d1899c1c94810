package match

import (
	"log/slog"
	"sort"

	"github.com/magikind/gofile/internal/magic"
)

// Mode selects between spec.md §6's two "Configuration" outcomes.
type Mode int

const (
	// ModeMostSpecific returns the single best match.
	ModeMostSpecific Mode = iota
	// ModeCollectAll returns every matching MIME type, for callers that
	// aggregate across multiple detectors.
	ModeCollectAll
)

// Config is the engine's configuration surface (spec.md §6).
type Config struct {
	// DefaultUnknownMIME is returned when no rule matches. Defaults to
	// "application/octet-stream" if empty.
	DefaultUnknownMIME string
	Mode               Mode
}

func (c Config) defaultMIME() string {
	if c.DefaultUnknownMIME == "" {
		return "application/octet-stream"
	}
	return c.DefaultUnknownMIME
}

// Result is what one Match call produces.
type Result struct {
	// MIME is the selected MIME type (or the configured default/unknown
	// MIME when nothing matched).
	MIME string
	// Matched reports whether any rule actually matched.
	Matched bool
	// All holds every distinct matching MIME type, sorted, when
	// Config.Mode is ModeCollectAll.
	All []string
}

// candidate is one rule that matched and carried a MIME type, along with
// the data needed to rank it.
type candidate struct {
	rule *magic.Rule
}

// Engine walks a compiled magic.Forest against a Source and selects the
// most specific match, per spec.md §4.2. A *Engine is immutable after
// construction and safe for concurrent use by multiple callers, each
// against its own Source (spec.md §5).
type Engine struct {
	forest *magic.Forest
	cfg    Config
	maxLen int
	logger *slog.Logger
}

// NewEngine compiles no state of its own beyond precomputing the
// forest's max read length once, so every Match call skips that work.
func NewEngine(forest *magic.Forest, cfg Config) *Engine {
	return NewEngineWithLogger(forest, cfg, nil)
}

// NewEngineWithLogger is NewEngine with an explicit *slog.Logger for
// Debug-level tracing; a nil logger falls back to slog.Default(),
// mirroring the teacher's detector.New construction.
func NewEngineWithLogger(forest *magic.Forest, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		forest: forest,
		cfg:    cfg,
		maxLen: forest.MaxReadLength(),
		logger: logger,
	}
}

// Match evaluates src against the compiled forest. If src additionally
// implements Marker (a StreamSource does; FileSource/BufferSource don't
// need to), Match marks it with the forest's precomputed max read length
// exactly once before evaluating, per spec.md §4.2 "Stream
// precomputation". A src implementing neither Marker nor
// RandomAccessSource is rejected as a *UsageError: the engine would
// otherwise have no bound on how far ahead it reads.
func (e *Engine) Match(src Source) (Result, error) {
	if m, ok := src.(Marker); ok {
		if err := m.Mark(e.maxLen); err != nil {
			e.logger.Debug("match: failed to mark stream source", "error", err)
			return Result{}, err
		}
	} else if _, ok := src.(RandomAccessSource); !ok {
		err := newUsageError("match: source implements neither Marker nor RandomAccessSource", nil)
		e.logger.Debug("match: rejecting unrecognized source", "error", err)
		return Result{}, err
	}

	var candidates []candidate
	for _, root := range e.forest.Roots {
		found, err := e.walk(root, src)
		if err != nil {
			return Result{}, err
		}
		candidates = append(candidates, found...)
	}

	if len(candidates) == 0 {
		return Result{MIME: e.cfg.defaultMIME(), Matched: false}, nil
	}

	if e.cfg.Mode == ModeCollectAll {
		return Result{MIME: selectBest(candidates).rule.MimeType, Matched: true, All: collectAllMIMEs(candidates)}, nil
	}

	return Result{MIME: selectBest(candidates).rule.MimeType, Matched: true}, nil
}

// walk evaluates rule against src and, if it matches, recurses into its
// children in source order, per spec.md §4.2 "Evaluation — per root
// rule". It returns every descendant (or rule itself) that contributed a
// MIME type.
func (e *Engine) walk(rule *magic.Rule, src Source) ([]candidate, error) {
	matched, err := e.testRule(rule, src)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, nil
	}

	var contributed []candidate
	for _, child := range rule.Children {
		found, err := e.walk(child, src)
		if err != nil {
			return nil, err
		}
		contributed = append(contributed, found...)
	}

	if len(contributed) == 0 && rule.MimeType != "" {
		contributed = append(contributed, candidate{rule: rule})
	}
	return contributed, nil
}

// testRule implements match_one (spec.md §4.2): read the rule's test
// region and compare. A short read or unknown kind is "no match", not an
// error; a genuine source failure is returned as a *SourceError.
func (e *Engine) testRule(rule *magic.Rule, src Source) (bool, error) {
	width := rule.Width()
	data, err := src.ReadAt(rule.Offset, width)
	if err != nil {
		if _, ok := err.(*SourceError); ok {
			return false, err
		}
		if _, ok := err.(*UsageError); ok {
			return false, err
		}
		return false, newSourceError("read rule test region", err)
	}
	if len(data) < width {
		return false, nil // short read: no match, not an error
	}

	switch rule.Kind {
	case magic.KindString:
		return matchString(rule, data), nil
	case magic.KindByte, magic.KindShort, magic.KindBEShort, magic.KindLEShort,
		magic.KindBELong, magic.KindLELong:
		v := readNumeric(rule.Kind, data)
		return compareNumeric(rule.Operator, v, rule.Numeric, rule.EffectiveMask()), nil
	default:
		return false, nil // unknown kind never matches
	}
}

// selectBest picks the highest-specificity candidate, with ties broken
// by the earliest SourceIndex (spec.md §4.2 "Specificity and selection").
func selectBest(candidates []candidate) candidate {
	best := candidates[0]
	bestSpec := best.rule.Specificity()
	for _, c := range candidates[1:] {
		spec := c.rule.Specificity()
		if spec > bestSpec || (spec == bestSpec && c.rule.SourceIndex < best.rule.SourceIndex) {
			best = c
			bestSpec = spec
		}
	}
	return best
}

// collectAllMIMEs returns every distinct matching MIME type, sorted so
// "collect_all" output is deterministic for reporting/logging —
// selection itself never depends on this order.
func collectAllMIMEs(candidates []candidate) []string {
	seen := make(map[string]bool, len(candidates))
	var all []string
	for _, c := range candidates {
		if !seen[c.rule.MimeType] {
			seen[c.rule.MimeType] = true
			all = append(all, c.rule.MimeType)
		}
	}
	sort.Strings(all)
	return all
}
