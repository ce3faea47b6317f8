package scoring

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/confiabar/confiabar/internal/domain"
)

// RuleEngine evaluates operator-defined CEL alert rules against scoring
// input. Rules only ever append alert signals; the numeric score is
// untouched.
type RuleEngine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.AlertRuleConfig
	Program cel.Program
}

// NewRuleEngine creates a rule engine with the scoring input variables
// bound into the CEL environment.
func NewRuleEngine() (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("status_active", cel.BoolType),
		cel.Variable("years_operating", cel.IntType),
		cel.Variable("equity", cel.DoubleType),
		cel.Variable("activity_code", cel.StringType),
		cel.Variable("report_total", cel.IntType),
		cel.Variable("avg_cleanliness", cel.DoubleType),
		cel.Variable("pct_sealed_bottles", cel.IntType),
		cel.Variable("pct_invoice_issued", cel.IntType),
		cel.Variable("pct_normal_prices", cel.IntType),
		cel.Variable("penalty_count", cel.IntType),
		cel.Variable("score", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &RuleEngine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles a rule without mutating the loaded set.
func (e *RuleEngine) ValidateRule(cfg *domain.AlertRuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *RuleEngine) LoadRule(cfg *domain.AlertRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled
	return nil
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *RuleEngine) ReloadRules(configs []*domain.AlertRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules
	return nil
}

// Apply evaluates every loaded rule against the scoring input and
// appends the message of each firing rule to the result's alert
// signals. A rule whose evaluation errors is skipped.
func (e *RuleEngine) Apply(in Input, result *domain.ScoreResult) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return
	}

	activation := map[string]any{
		"status_active":      in.Record.ActiveStatus(),
		"years_operating":    int64(in.Record.YearsOperating(in.Now)),
		"equity":             in.Record.Equity,
		"activity_code":      in.Record.Activity.Code,
		"report_total":       int64(result.ReportStats.Total),
		"avg_cleanliness":    result.ReportStats.AvgCleanliness,
		"pct_sealed_bottles": int64(result.ReportStats.PctSealedBottles),
		"pct_invoice_issued": int64(result.ReportStats.PctInvoiceIssued),
		"pct_normal_prices":  int64(result.ReportStats.PctNormalPrices),
		"penalty_count":      int64(in.PenaltyCount),
		"score":              int64(result.Score),
	}

	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			continue
		}
		if fired, ok := out.(types.Bool); ok && bool(fired) {
			result.AlertSignals = append(result.AlertSignals, rule.Config.Message)
		}
	}
}

// RulesCount returns the number of loaded rules.
func (e *RuleEngine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *RuleEngine) GetLoadedRules() []*domain.AlertRuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.AlertRuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *RuleEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *RuleEngine) compileRule(cfg *domain.AlertRuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
