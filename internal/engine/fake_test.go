package engine_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"db-automigrate/internal/dialect"
	"db-automigrate/internal/engine"
	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// fakeTable is the live state the fake driver reports.
type fakeTable struct {
	rows    bool
	columns []*schema.LiveColumn
	indexes []*schema.LiveIndex
}

// fakeDriver answers catalog calls from memory and renders short, readable
// statements so tests can assert the exact statement stream through sqlmock.
type fakeDriver struct {
	tables       map[string]*fakeTable
	fingerprints []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{tables: map[string]*fakeTable{}}
}

var _ dialect.Driver = (*fakeDriver)(nil)

func (d *fakeDriver) Name() string { return "fake" }
func (d *fakeDriver) Placeholder(int) string { return "?" }
func (d *fakeDriver) DefaultSchema() string { return "main" }
func (d *fakeDriver) EscapeIdentifier(name string) string { return name }

func (d *fakeDriver) RenderColumnType(c *schema.TargetColumn) string { return c.Column.String() }

func (d *fakeDriver) ClassifyType(name string) schema.TypeClass {
	n := strings.ToLower(name)
	return schema.TypeClass{IsText: n == "varchar", IsDecimal: n == "decimal"}
}

func (d *fakeDriver) NormalizeType(name string) string { return strings.ToLower(name) }

func (d *fakeDriver) NormalizeDefault(expr string) string { return schema.NormalizeExpr(expr) }

func (d *fakeDriver) TableExists(_ context.Context, _ dialect.Querier, name, _ string) (bool, error) {
	_, ok := d.tables[name]
	return ok, nil
}

func (d *fakeDriver) HasAnyRows(_ context.Context, _ dialect.Querier, t *schema.TargetTable) (bool, error) {
	return d.tables[t.Name].rows, nil
}

func (d *fakeDriver) LoadColumns(_ context.Context, _ dialect.Querier, t *schema.TargetTable) ([]*schema.LiveColumn, error) {
	return d.tables[t.Name].columns, nil
}

func (d *fakeDriver) LoadIndexes(_ context.Context, _ dialect.Querier, t *schema.TargetTable) ([]*schema.LiveIndex, error) {
	return d.tables[t.Name].indexes, nil
}

func (d *fakeDriver) CreateTableStatement(t *schema.TargetTable, columns []*schema.TargetColumn) sqlfrag.Query {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return sqlfrag.Literal(fmt.Sprintf("CREATE TABLE %s (%s)", t.EscapedName, strings.Join(names, ", ")))
}

func (d *fakeDriver) AddColumnStatement(c *schema.TargetColumn) sqlfrag.Query {
	return sqlfrag.Literal("ADD COLUMN " + c.Table.EscapedName + "." + c.Name)
}

func (d *fakeDriver) RenameColumnStatement(t *schema.TargetTable, from, to string) sqlfrag.Query {
	return sqlfrag.Literal("RENAME COLUMN " + t.EscapedName + "." + from + " TO " + to)
}

func (d *fakeDriver) CreateIndexStatement(idx *schema.TargetIndex) sqlfrag.Query {
	return sqlfrag.Literal("CREATE INDEX " + idx.Name)
}

func (d *fakeDriver) DropIndexStatement(_ *schema.TargetTable, name string) sqlfrag.Query {
	return sqlfrag.Literal("DROP INDEX " + name)
}

func (d *fakeDriver) ModelFingerprintExists(_ context.Context, _ dialect.Querier, _ string, fingerprint string) (bool, error) {
	if n := len(d.fingerprints); n > 0 && d.fingerprints[n-1] == fingerprint {
		return true, nil
	}
	d.fingerprints = append(d.fingerprints, fingerprint)
	return false, nil
}

func live(name, typ string, length int, nullable bool) *schema.LiveColumn {
	c := &schema.LiveColumn{Column: schema.Column{Name: name, Type: typ, Nullable: nullable}}
	if length != 0 {
		c.Length = &length
	}
	return c
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mk
}

func expectExec(mk sqlmock.Sqlmock, stmt string) {
	mk.ExpectExec("^" + regexp.QuoteMeta(stmt) + "$").WillReturnResult(sqlmock.NewResult(0, 0))
}

// recorder keeps every observer event as a line of text.
type recorder struct {
	events []string
}

var _ engine.Observer = (*recorder)(nil)

func (r *recorder) TableCreated(t *schema.TargetTable) {
	r.events = append(r.events, "table created "+t.Name)
}

func (r *recorder) ColumnAdded(c *schema.TargetColumn) {
	r.events = append(r.events, "column added "+c.Name)
}

func (r *recorder) ColumnChanged(prior *schema.LiveColumn, target *schema.TargetColumn) {
	r.events = append(r.events, "column changed "+prior.Name+" -> "+target.Name)
}

func (r *recorder) IndexCreated(idx *schema.TargetIndex) {
	r.events = append(r.events, "index created "+idx.Name)
}

func (r *recorder) IndexDropped(_ *schema.TargetTable, name string) {
	r.events = append(r.events, "index dropped "+name)
}

func (r *recorder) TableReconciled(t *schema.TargetTable, changes *engine.TableResult) {
	r.events = append(r.events, fmt.Sprintf("table reconciled %s (%d added, %d renamed, %d indexes)",
		t.Name, len(changes.ColumnsAdded), len(changes.ColumnsRenamed), len(changes.IndexesUpdated)))
}
