package store

import (
	"errors"
	"fmt"
)

// RuleStats aggregates how often each catalog rule fired across stored
// reports, most frequent first. AI findings carry no rule id and are skipped.
func (d *Database) RuleStats(limit int) ([]RuleStat, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	var results []RuleStat
	query := d.gorm.Table("finding_records").
		Select("rule_id, MAX(title) AS title, MAX(severity) AS severity, COUNT(*) AS total").
		Where("rule_id <> ''").
		Group("rule_id").
		Order("total DESC, rule_id ASC").
		Limit(limit)

	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("rule stats: %w", err)
	}
	return results, nil
}

// GradeCounts returns the number of stored reports per grade, in grade order.
func (d *Database) GradeCounts() ([]GradeCount, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	var results []GradeCount
	err := d.gorm.Model(&ReportRecord{}).
		Select("grade, COUNT(*) AS total").
		Group("grade").
		Order("grade ASC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("grade counts: %w", err)
	}
	return results, nil
}
