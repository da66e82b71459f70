package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"contract-risk-eval/internal/analysis"
)

// ErrNotFound is returned when a report id is unknown.
var ErrNotFound = errors.New("report not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&ReportRecord{}, &FindingRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if path != ":memory:" {
		if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
			logrus.WithError(err).Warn("enable WAL mode")
		}
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveReport inserts or replaces a report together with its findings.
func (d *Database) SaveReport(report *analysis.Report) error {
	if d == nil {
		return errors.New("database is nil")
	}
	rec, findings, err := NewReportRecord(report)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("report id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"contract_type",
				"score_total",
				"grade",
				"risk_count",
				"ai_enabled",
				"summary",
				"report_json",
				"processing_time_ms",
			}),
		}).Create(rec).Error
		if err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", rec.ID).Delete(&FindingRecord{}).Error; err != nil {
			return err
		}
		if len(findings) == 0 {
			return nil
		}
		// SQLite caps bound variables per statement.
		return tx.CreateInBatches(findings, 100).Error
	})
}

// GetReport fetches a stored report row by id.
func (d *Database) GetReport(id string) (*ReportRecord, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	var rec ReportRecord
	err := d.gorm.Where("id = ?", strings.TrimSpace(id)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteReport removes a report and its findings.
func (d *Database) DeleteReport(id string) error {
	if d == nil {
		return errors.New("database is nil")
	}
	id = strings.TrimSpace(id)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&ReportRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("report_id = ?", id).Delete(&FindingRecord{}).Error
	})
}

// ReportQuery encapsulates filters and pagination for listing reports.
type ReportQuery struct {
	Grade        string
	ContractType string
	MinScore     int
	Sort         string
	Offset       int
	Limit        int
}

// ListReports returns paginated report rows applying optional filters, plus
// the total number of matching rows.
func (d *Database) ListReports(opts ReportQuery) ([]ReportRecord, int64, error) {
	if d == nil {
		return nil, 0, errors.New("database is nil")
	}
	filtered := func() *gorm.DB {
		q := d.gorm.Model(&ReportRecord{})
		if grade := strings.TrimSpace(opts.Grade); grade != "" {
			q = q.Where("grade = ?", strings.ToUpper(grade))
		}
		if ct := strings.TrimSpace(opts.ContractType); ct != "" {
			q = q.Where("contract_type = ?", strings.ToLower(ct))
		}
		if opts.MinScore > 0 {
			q = q.Where("score_total >= ?", opts.MinScore)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := filtered().Order(orderForSort(opts.Sort))
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []ReportRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "created_asc":
		return "report_records.created_at ASC, report_records.id ASC"
	case "score_asc":
		return "report_records.score_total ASC, report_records.created_at DESC"
	case "score_desc":
		return "report_records.score_total DESC, report_records.created_at DESC"
	default:
		return "report_records.created_at DESC, report_records.id DESC"
	}
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_report_records_grade_created ON report_records(grade, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_finding_records_report_position ON finding_records(report_id, position)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
