// Package transfer copies the CRM tables from one database to another,
// typically from a SQLite file into PostgreSQL.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// DefaultBatchSize is used when Copier.BatchSize is not positive.
const DefaultBatchSize = 500

// ErrMismatch is returned by Verify when row counts differ.
var ErrMismatch = errors.New("row counts differ")

// Step copies one table.
type Step struct {
	Table string
	copy  func(ctx context.Context, c *Copier, skipExisting bool) (int64, error)
}

// Plan lists the tables parents first, so foreign keys resolve as rows arrive.
var Plan = []Step{
	step[models.Client]("clients"),
	step[models.Service]("services"),
	step[models.User]("users"),
	step[models.Quote]("quotes"),
	step[models.QuoteItem]("quote_items"),
	step[models.Invoice]("invoices"),
	step[models.InvoiceItem]("invoice_items"),
	step[models.Payment]("payments"),
	step[models.EmailLog]("email_logs"),
}

// step copies rows as explicit column maps. Creating from the model would let
// gorm replace NULLs in columns that carry a database default with DEFAULT.
func step[T any](table string) Step {
	return Step{Table: table, copy: func(ctx context.Context, c *Copier, skipExisting bool) (int64, error) {
		sch, err := schema.Parse(new(T), &sync.Map{}, c.Target.NamingStrategy)
		if err != nil {
			return 0, fmt.Errorf("parse %s schema: %w", table, err)
		}
		var (
			batch  []T
			copied int64
		)
		res := c.Source.WithContext(ctx).FindInBatches(&batch, c.batchSize(), func(_ *gorm.DB, n int) error {
			rows := columnValues(ctx, sch, batch)
			return c.Target.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				q := tx.Table(table)
				if skipExisting {
					q = q.Clauses(clause.OnConflict{DoNothing: true})
				}
				res := q.Create(rows)
				if res.Error != nil {
					return fmt.Errorf("batch %d: %w", n, res.Error)
				}
				copied += res.RowsAffected
				return nil
			})
		})
		return copied, res.Error
	}}
}

// columnValues flattens rows into column → value maps, keeping NULLs.
func columnValues[T any](ctx context.Context, sch *schema.Schema, batch []T) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(batch))
	for i := range batch {
		rv := reflect.ValueOf(&batch[i]).Elem()
		row := make(map[string]interface{}, len(sch.DBNames))
		for _, name := range sch.DBNames {
			row[name], _ = sch.FieldsByDBName[name].ValueOf(ctx, rv)
		}
		rows = append(rows, row)
	}
	return rows
}

// Options controls Run.
type Options struct {
	// Migrate creates the target schema first.
	Migrate bool
	// Truncate empties the target tables before copying.
	Truncate bool
	// SkipExisting leaves rows whose id is already present in the target.
	SkipExisting bool
}

// TableReport is the outcome for one table.
type TableReport struct {
	Table  string `json:"table"`
	Source int64  `json:"source"`
	Copied int64  `json:"copied"`
	Target int64  `json:"target"`
}

// Report summarizes a Run or a Verify.
type Report struct {
	Tables   []TableReport `json:"tables"`
	Duration time.Duration `json:"duration"`
}

// Mismatched returns the tables whose source and target counts differ.
func (r Report) Mismatched() []string {
	var out []string
	for _, t := range r.Tables {
		if t.Source != t.Target {
			out = append(out, t.Table)
		}
	}
	return out
}

// Copier moves rows between two open databases.
type Copier struct {
	Source    *gorm.DB
	Target    *gorm.DB
	BatchSize int
	Logger    *slog.Logger
}

func (c *Copier) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

func (c *Copier) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Run copies every table of Plan. Ids are kept; on PostgreSQL the id
// sequences are moved past the copied rows afterwards.
func (c *Copier) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	if opts.Migrate {
		for _, m := range models.All() {
			if err := c.Target.WithContext(ctx).AutoMigrate(m); err != nil {
				return nil, fmt.Errorf("migrate target %T: %w", m, err)
			}
		}
	}
	if err := db.CheckTables(c.Source); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := db.CheckTables(c.Target); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if opts.Truncate {
		if err := c.truncate(ctx); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	for _, s := range Plan {
		src, err := count(ctx, c.Source, s.Table)
		if err != nil {
			return report, fmt.Errorf("count source %s: %w", s.Table, err)
		}
		copied, err := s.copy(ctx, c, opts.SkipExisting)
		if err != nil {
			return report, fmt.Errorf("copy %s: %w", s.Table, err)
		}
		dst, err := count(ctx, c.Target, s.Table)
		if err != nil {
			return report, fmt.Errorf("count target %s: %w", s.Table, err)
		}
		report.Tables = append(report.Tables, TableReport{Table: s.Table, Source: src, Copied: copied, Target: dst})
		c.log().Info("table copied", "table", s.Table, "source", src, "copied", copied, "target", dst)
	}

	if err := c.FixSequences(ctx); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

func (c *Copier) truncate(ctx context.Context) error {
	for i := len(Plan) - 1; i >= 0; i-- {
		table := Plan[i].Table
		if err := c.Target.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
		c.log().Info("table truncated", "table", table)
	}
	return nil
}

// FixSequences sets every PostgreSQL id sequence to the table's max id, so
// new rows do not collide with copied ones. SQLite needs nothing.
func (c *Copier) FixSequences(ctx context.Context) error {
	if db.DialectOf(c.Target) != db.Postgres {
		return nil
	}
	for _, s := range Plan {
		if err := c.Target.WithContext(ctx).Exec(setvalSQL(s.Table)).Error; err != nil {
			return fmt.Errorf("reset sequence of %s: %w", s.Table, err)
		}
	}
	c.log().Info("sequences reset", "tables", len(Plan))
	return nil
}

// setvalSQL leaves an empty table's sequence at 1 with is_called false,
// so the next id is 1.
func setvalSQL(table string) string {
	return strings.NewReplacer("{t}", table).Replace(
		"SELECT setval(pg_get_serial_sequence('{t}', 'id'), " +
			"COALESCE((SELECT MAX(id) FROM {t}), 1), " +
			"(SELECT MAX(id) FROM {t}) IS NOT NULL)")
}

// Verify compares the row count of every table.
func (c *Copier) Verify(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	for _, s := range Plan {
		src, err := count(ctx, c.Source, s.Table)
		if err != nil {
			return nil, fmt.Errorf("count source %s: %w", s.Table, err)
		}
		dst, err := count(ctx, c.Target, s.Table)
		if err != nil {
			return nil, fmt.Errorf("count target %s: %w", s.Table, err)
		}
		report.Tables = append(report.Tables, TableReport{Table: s.Table, Source: src, Target: dst})
	}
	report.Duration = time.Since(start)
	if bad := report.Mismatched(); len(bad) > 0 {
		return report, fmt.Errorf("%w: %s", ErrMismatch, strings.Join(bad, ", "))
	}
	return report, nil
}

func count(ctx context.Context, gdb *gorm.DB, table string) (int64, error) {
	var n int64
	err := gdb.WithContext(ctx).Table(table).Count(&n).Error
	return n, err
}
