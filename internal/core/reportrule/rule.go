package reportrule

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"gopkg.in/yaml.v3"
)

// Metrics a threshold rule may watch. Each resolves to one field of a
// computed daily report.
const (
	MetricTotalLoginAttempts = "total_login_attempts"
	MetricFailedLogins       = "failed_logins"
	MetricBlockedAttempts    = "blocked_attempts"
	MetricDistinctIPsBlocked = "distinct_ips_blocked"
	MetricHighRiskEvents     = "high_risk_events"
	MetricCriticalRiskEvents = "critical_risk_events"
)

// ValidMetric reports whether m is a watchable report metric.
func ValidMetric(m string) bool {
	switch m {
	case MetricTotalLoginAttempts, MetricFailedLogins, MetricBlockedAttempts,
		MetricDistinctIPsBlocked, MetricHighRiskEvents, MetricCriticalRiskEvents:
		return true
	}
	return false
}

// ThresholdRule flags a notable pattern on a daily report when a metric
// reaches its minimum value. Rules are loaded at startup from YAML files,
// one rule per file. No hot reload.
type ThresholdRule struct {
	Name           string `yaml:"name"`
	Metric         string `yaml:"metric"`
	Min            int    `yaml:"min"` // fires when metric >= min
	Pattern        string `yaml:"pattern"`
	Recommendation string `yaml:"recommendation"`
}

// FileSystemRuleRepository loads threshold rules from *.yaml files in a
// directory. A missing directory is valid and yields zero rules.
type FileSystemRuleRepository struct {
	dir   string
	rules []ThresholdRule
}

// NewFileSystemRuleRepository creates a repository and eagerly loads all
// rules from dir. Returns an error if any rule file is malformed.
func NewFileSystemRuleRepository(dir string) (*FileSystemRuleRepository, error) {
	repo := &FileSystemRuleRepository{dir: dir}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRuleRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no rules directory — valid (zero rules configured)
	}
	if err != nil {
		return fmt.Errorf("threshold rule dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("threshold rule path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading threshold rule dir: %w", err)
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading rule file %s: %w", path, err)
		}

		var rule ThresholdRule
		if err := yaml.Unmarshal(data, &rule); err != nil {
			return fmt.Errorf("parsing rule file %s: %w", path, err)
		}
		if rule.Name == "" {
			continue // skip empty / comment-only files
		}

		if !ValidMetric(rule.Metric) {
			return fmt.Errorf("rule %q: unknown metric %q", rule.Name, rule.Metric)
		}
		if rule.Min <= 0 {
			return fmt.Errorf("rule %q: min must be > 0", rule.Name)
		}
		if rule.Pattern == "" {
			return fmt.Errorf("rule %q: pattern must not be empty", rule.Name)
		}
		if seen[rule.Name] {
			return fmt.Errorf("rule %q: duplicate rule name (check multiple YAML files)", rule.Name)
		}
		seen[rule.Name] = true

		r.rules = append(r.rules, rule)
	}
	return nil
}

// Rules returns all loaded rules.
func (r *FileSystemRuleRepository) Rules() []ThresholdRule {
	out := make([]ThresholdRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Evaluate applies every rule to a computed report and returns the notable
// patterns and recommendations of the rules that fired, in rule order.
func Evaluate(rules []ThresholdRule, rep *model.DailyReport) (patterns, recommendations []string) {
	for _, rule := range rules {
		if metricValue(rule.Metric, rep) < rule.Min {
			continue
		}
		patterns = append(patterns, rule.Pattern)
		if rule.Recommendation != "" {
			recommendations = append(recommendations, rule.Recommendation)
		}
	}
	return patterns, recommendations
}

func metricValue(metric string, rep *model.DailyReport) int {
	switch metric {
	case MetricTotalLoginAttempts:
		return rep.TotalLoginAttempts
	case MetricFailedLogins:
		return rep.TotalLoginAttempts - rep.SuccessfulLogins
	case MetricBlockedAttempts:
		return rep.BlockedAttempts
	case MetricDistinctIPsBlocked:
		return rep.DistinctIPsBlocked
	case MetricHighRiskEvents:
		return rep.HighRiskEvents
	case MetricCriticalRiskEvents:
		return rep.CriticalRiskEvents
	default:
		return 0
	}
}
