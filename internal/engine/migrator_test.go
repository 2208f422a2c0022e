package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"db-automigrate/internal/dialect"
	"db-automigrate/internal/engine"
	"db-automigrate/internal/model"
	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idProp = model.Property{Column: "Id", Type: "int", Key: true, Identity: true}

func accounts(indexes []model.Index, props ...model.Property) model.Static {
	return model.Static{{
		Name:       "Accounts",
		Properties: append([]model.Property{idProp}, props...),
		Indexes:    indexes,
	}}
}

func existingAccounts(rows bool, cols ...*schema.LiveColumn) *fakeTable {
	return &fakeTable{rows: rows, columns: append([]*schema.LiveColumn{live("Id", "int", 0, false)}, cols...)}
}

func TestMigrate_CreatesMissingTable(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	rec := &recorder{}
	src := accounts(
		[]model.Index{{Columns: []string{"Email"}, Unique: true}, {Columns: []string{"Id"}, Unique: true}},
		model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Nullable: true},
	)

	mk.ExpectBegin()
	expectExec(mk, "CREATE TABLE main.Accounts (Id)")
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	expectExec(mk, "CREATE INDEX UX_Accounts_Email")
	mk.ExpectCommit()

	res, err := engine.New(db, d, src, engine.Options{Observer: rec}).Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())

	tr := res.Table("Accounts")
	require.NotNil(t, tr)
	assert.True(t, tr.Created)
	require.Len(t, tr.ColumnsAdded, 1)
	assert.Equal(t, "Email", tr.ColumnsAdded[0].Name)
	require.Len(t, tr.IndexesUpdated, 1, "the primary-key index is skipped")
	assert.False(t, tr.IndexesUpdated[0].Dropped)

	assert.Equal(t, []string{
		"table created Accounts",
		"column added Email",
		"index created UX_Accounts_Email",
		"table reconciled Accounts (1 added, 0 renamed, 1 indexes)",
	}, rec.events)
}

func TestMigrate_SecondRunIsSkipped(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	src := accounts(nil, model.Property{Column: "Email", Type: "varchar", Nullable: true})
	m := engine.New(db, d, src, engine.Options{})

	mk.ExpectBegin()
	expectExec(mk, "CREATE TABLE main.Accounts (Id)")
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	mk.ExpectCommit()
	first, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Empty())

	mk.ExpectBegin()
	mk.ExpectCommit()
	second, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.True(t, second.Empty())
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_AddColumn(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(true, live("Name", "varchar", 50, true))
	src := accounts(nil,
		model.Property{Column: "Name", Type: "varchar", Length: model.LengthPtr(50), Nullable: true},
		model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Default: "''"},
	)

	mk.ExpectBegin()
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	mk.ExpectCommit()

	res, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())

	tr := res.Table("Accounts")
	require.NotNil(t, tr)
	assert.False(t, tr.Created)
	require.Len(t, tr.ColumnsAdded, 1)
	assert.Equal(t, "Email", tr.ColumnsAdded[0].Name)
	assert.Empty(t, tr.ColumnsRenamed)
}

func TestMigrate_CatalogDefaultIsUnchanged(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	balance := live("Balance", "int", 0, false)
	balance.Default = "'-1'::integer"
	d.tables["Accounts"] = existingAccounts(true, balance)
	src := accounts(nil, model.Property{Column: "Balance", Type: "int", Default: "-1"})

	mk.ExpectBegin()
	mk.ExpectCommit()

	res, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.NoError(t, err, "the default policy would reject a structural change")
	require.NoError(t, mk.ExpectationsWereMet())
	assert.True(t, res.Empty())
}

func TestMigrate_RenameByAlias(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(true, live("Mail", "varchar", 200, true))
	src := accounts(nil, model.Property{
		Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Nullable: true,
		Aliases: []string{"EMail_Address", "Mail"},
	})

	mk.ExpectBegin()
	expectExec(mk, "RENAME COLUMN main.Accounts.Mail TO Email")
	mk.ExpectCommit()

	res, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())

	tr := res.Table("Accounts")
	require.NotNil(t, tr)
	assert.Empty(t, tr.ColumnsAdded)
	require.Len(t, tr.ColumnsRenamed, 1)
	assert.Equal(t, "Mail", tr.ColumnsRenamed[0].Prior.Name)
	assert.Equal(t, "Email", tr.ColumnsRenamed[0].Target.Name)
}

func TestMigrate_UnsafeAddIsBlocked(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(true)
	src := accounts(nil, model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200)})

	mk.ExpectBegin()
	mk.ExpectRollback()

	res, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.Error(t, err)
	require.NoError(t, mk.ExpectationsWereMet(), "no ADD COLUMN may be executed")

	var unsafe *engine.UnsafeChangeError
	require.True(t, errors.As(err, &unsafe))
	assert.Equal(t, "Email", unsafe.Column.Name)
	assert.Nil(t, unsafe.Prior)

	var failed *engine.MigrationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Same(t, res, failed.Result)
	tr := failed.Result.Table("Accounts")
	require.NotNil(t, tr, "the attempted add is recorded")
	assert.Len(t, tr.ColumnsAdded, 1)
	assert.Contains(t, err.Error(), "Column: Email added.")
}

func TestMigrate_AddToEmptyTableIsAllowed(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(false)
	src := accounts(nil, model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200)})

	mk.ExpectBegin()
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	mk.ExpectCommit()

	_, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_StructuralChangeDeniedByDefault(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(true, live("Email", "varchar", 50, true))
	src := accounts(nil, model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Nullable: true})

	mk.ExpectBegin()
	mk.ExpectRollback()

	_, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	var unsupported *engine.UnsupportedChangeError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	assert.Equal(t, "Email", unsupported.Prior.Name)
	assert.Equal(t, 200, *unsupported.Target.Length)
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_StructuralChangeOnOccupiedTableIsUnsafe(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(true, live("Mail", "varchar", 50, true))
	src := accounts(nil, model.Property{
		Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Aliases: []string{"Mail"},
	})

	mk.ExpectBegin()
	mk.ExpectRollback()

	_, err := engine.New(db, d, src, engine.Options{Renames: engine.PreserveAndAdd{}}).Migrate(context.Background())
	var unsafe *engine.UnsafeChangeError
	require.True(t, errors.As(err, &unsafe), "got %v", err)
	require.NotNil(t, unsafe.Prior)
	assert.Equal(t, "Mail", unsafe.Prior.Name)

	var failed *engine.MigrationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Len(t, failed.Result.Table("Accounts").ColumnsRenamed, 1)
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_PreserveAndAdd(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	rec := &recorder{}
	d.tables["Accounts"] = existingAccounts(true, live("Email", "varchar", 50, true))
	src := accounts(nil, model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Nullable: true})

	mk.ExpectBegin()
	mk.ExpectExec(`^RENAME COLUMN main\.Accounts\.Email TO Email_[0-9a-f]{8}_1$`).WillReturnResult(sqlmock.NewResult(0, 0))
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	mk.ExpectCommit()

	_, err := engine.New(db, d, src, engine.Options{Renames: engine.PreserveAndAdd{}, Observer: rec}).Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())
	assert.Contains(t, rec.events, "column changed Email -> Email")
}

func TestMigrate_PreserveAndAddShortensLongNames(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	long := strings.Repeat("VeryLongColumnName", 4)
	d.tables["Accounts"] = existingAccounts(true, live(long, "varchar", 50, true))
	src := accounts(nil, model.Property{Column: long, Type: "varchar", Length: model.LengthPtr(200), Nullable: true})

	var parked []string
	policy := engine.RenameFunc(func(ctx context.Context, ch engine.ColumnChange) error {
		rec := &parkRecorder{Applier: ch.Apply, parked: &parked}
		ch.Apply = rec
		return engine.PreserveAndAdd{}.Decide(ctx, ch)
	})

	mk.ExpectBegin()
	mk.ExpectExec(`^RENAME COLUMN main\.Accounts\.` + long + ` TO VeryLongColumnName\w+_[0-9a-f]{12}$`).WillReturnResult(sqlmock.NewResult(0, 0))
	expectExec(mk, "ADD COLUMN main.Accounts."+long)
	mk.ExpectCommit()

	_, err := engine.New(db, d, src, engine.Options{Renames: policy}).Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())
	require.Len(t, parked, 1)
	assert.Len(t, parked[0], schema.MaxIdentifierLength)
	assert.True(t, strings.HasPrefix(parked[0], long[:40]))
}

// parkRecorder remembers the names columns are renamed to.
type parkRecorder struct {
	engine.Applier
	parked *[]string
}

func (p *parkRecorder) RenameColumn(ctx context.Context, from, to string) error {
	*p.parked = append(*p.parked, to)
	return p.Applier.RenameColumn(ctx, from, to)
}

func TestMigrate_RenameFunc(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(false, live("Balance", "decimal", 0, false))
	src := accounts(nil, model.Property{Column: "Balance", Type: "decimal", Precision: model.IntPtr(12), Scale: model.IntPtr(4)})

	var got engine.ColumnChange
	policy := engine.RenameFunc(func(ctx context.Context, ch engine.ColumnChange) error {
		got = ch
		return ch.Apply.Exec(ctx, sqlfrag.Literal("ALTER COLUMN "+ch.Target.Name))
	})

	mk.ExpectBegin()
	expectExec(mk, "ALTER COLUMN Balance")
	mk.ExpectCommit()

	res, err := engine.New(db, d, src, engine.Options{Renames: policy}).Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())

	assert.Equal(t, "Balance", got.Prior.Name)
	assert.Equal(t, 12, *got.Target.Precision)
	assert.Regexp(t, `^_[0-9a-f]{8}_1$`, got.TempSuffix)
	assert.Equal(t, res.RunID[:8], got.TempSuffix[1:9])
}

func TestMigrate_Indexes(t *testing.T) {
	emailIdx := model.Index{Columns: []string{"Email"}, Unique: true, Filter: "Email IS NOT NULL"}
	emailCol := model.Property{Column: "Email", Type: "varchar", Length: model.LengthPtr(200), Nullable: true}

	cases := []struct {
		name  string
		live  *schema.LiveIndex
		execs []string
		drop  bool
	}{
		{
			name: "identical as sql server reports it",
			live: &schema.LiveIndex{Name: "UX_Accounts_Email", Columns: []string{"email"}, Unique: true, Filter: "([Email] IS NOT NULL)"},
		},
		{
			name: "identical as postgres reports it",
			live: &schema.LiveIndex{Name: "ux_accounts_email", Columns: []string{"Email"}, Unique: true, Filter: `("Email" IS NOT NULL)`},
		},
		{
			name:  "filter differs",
			live:  &schema.LiveIndex{Name: "UX_Accounts_Email", Columns: []string{"Email"}, Unique: true},
			execs: []string{"DROP INDEX UX_Accounts_Email", "CREATE INDEX UX_Accounts_Email"},
			drop:  true,
		},
		{
			name:  "uniqueness differs",
			live:  &schema.LiveIndex{Name: "UX_Accounts_Email", Columns: []string{"Email"}, Filter: "Email IS NOT NULL"},
			execs: []string{"DROP INDEX UX_Accounts_Email", "CREATE INDEX UX_Accounts_Email"},
			drop:  true,
		},
		{
			name:  "absent",
			execs: []string{"CREATE INDEX UX_Accounts_Email"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mk := newMock(t)
			d := newFakeDriver()
			tbl := existingAccounts(true, live("Email", "varchar", 200, true))
			if tc.live != nil {
				tbl.indexes = []*schema.LiveIndex{tc.live}
			}
			d.tables["Accounts"] = tbl

			mk.ExpectBegin()
			for _, e := range tc.execs {
				expectExec(mk, e)
			}
			mk.ExpectCommit()

			res, err := engine.New(db, d, accounts([]model.Index{emailIdx}, emailCol), engine.Options{}).Migrate(context.Background())
			require.NoError(t, err)
			require.NoError(t, mk.ExpectationsWereMet())

			tr := res.Table("Accounts")
			if len(tc.execs) == 0 {
				assert.Nil(t, tr)
				return
			}
			require.NotNil(t, tr)
			require.Len(t, tr.IndexesUpdated, 1)
			assert.Equal(t, tc.drop, tr.IndexesUpdated[0].Dropped)
		})
	}
}

func TestMigrate_ColumnsBeforeIndexes(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["A"] = existingAccounts(false)
	d.tables["B"] = existingAccounts(false)
	col := func(name string) model.Property { return model.Property{Column: name, Type: "int", Nullable: true} }
	src := model.Static{
		{Name: "A", Properties: []model.Property{idProp, col("X")}, Indexes: []model.Index{{Columns: []string{"X"}}}},
		{Name: "B", Properties: []model.Property{idProp, col("Y")}, Indexes: []model.Index{{Columns: []string{"Y"}}}},
	}

	mk.ExpectBegin()
	expectExec(mk, "ADD COLUMN main.A.X")
	expectExec(mk, "ADD COLUMN main.B.Y")
	expectExec(mk, "CREATE INDEX IX_A_X")
	expectExec(mk, "CREATE INDEX IX_B_Y")
	mk.ExpectCommit()

	res, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Tables, 2)
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_AmbiguousAliasFailsBeforeConnecting(t *testing.T) {
	db, mk := newMock(t)
	src := accounts(nil,
		model.Property{Column: "First", Type: "int", Nullable: true, Aliases: []string{"Old"}},
		model.Property{Column: "Second", Type: "int", Nullable: true, Aliases: []string{"Old"}},
	)

	_, err := engine.New(db, newFakeDriver(), src, engine.Options{}).Migrate(context.Background())
	var ambiguous *schema.AmbiguousAliasError
	require.True(t, errors.As(err, &ambiguous), "got %v", err)
	assert.Equal(t, "Old", ambiguous.Alias)
	assert.NoError(t, mk.ExpectationsWereMet(), "no transaction may be started")
}

func TestMigrate_ExecFailureRollsBack(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(false)
	src := accounts(
		[]model.Index{{Columns: []string{"Email"}}},
		model.Property{Column: "Email", Type: "varchar", Nullable: true},
		model.Property{Column: "Phone", Type: "varchar", Nullable: true},
	)
	denied := errors.New("permission denied")

	mk.ExpectBegin()
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	mk.ExpectExec("ADD COLUMN main.Accounts.Phone").WillReturnError(denied)
	mk.ExpectRollback()

	_, err := engine.New(db, d, src, engine.Options{}).Migrate(context.Background())
	require.ErrorIs(t, err, denied)
	require.NoError(t, mk.ExpectationsWereMet())

	var execErr *dialect.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "ADD COLUMN main.Accounts.Phone", execErr.Statement)

	var failed *engine.MigrationFailedError
	require.True(t, errors.As(err, &failed))
	tr := failed.Result.Table("Accounts")
	require.NotNil(t, tr)
	assert.Len(t, tr.ColumnsAdded, 2)
	assert.Empty(t, tr.IndexesUpdated)
}

func TestMigrate_DryRunRollsBack(t *testing.T) {
	db, mk := newMock(t)
	d := newFakeDriver()
	d.tables["Accounts"] = existingAccounts(false)
	src := accounts(nil, model.Property{Column: "Email", Type: "varchar", Nullable: true})

	mk.ExpectBegin()
	expectExec(mk, "ADD COLUMN main.Accounts.Email")
	mk.ExpectRollback()

	res, err := engine.New(db, d, src, engine.Options{DryRun: true}).Migrate(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Empty())
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_SkipsExcludedAndLogTable(t *testing.T) {
	db, mk := newMock(t)
	src := model.Static{
		{Name: "Legacy", Excluded: true, Properties: []model.Property{idProp}},
		{Name: dialect.DefaultLogTable, Properties: []model.Property{idProp}},
	}

	mk.ExpectBegin()
	mk.ExpectCommit()

	res, err := engine.New(db, newFakeDriver(), src, engine.Options{}).Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.False(t, res.Skipped)
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_MissingTableWithoutKeys(t *testing.T) {
	db, mk := newMock(t)
	src := model.Static{{Name: "Orphan", Owned: true, Properties: []model.Property{{Column: "A", Type: "int"}}}}

	mk.ExpectBegin()
	mk.ExpectRollback()

	_, err := engine.New(db, newFakeDriver(), src, engine.Options{}).Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no key columns")
	assert.NoError(t, mk.ExpectationsWereMet())
}
