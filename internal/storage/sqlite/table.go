package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/crawler"
	"github.com/JakeFAU/paste-harvester/internal/model"
)

// Normalizer cleans a record once before its first insert.
type Normalizer interface {
	Normalize(rec model.Record)
}

// Table persists one record type according to its manifest.
type Table[T model.Record] struct {
	db         *DB
	manifest   model.Manifest
	idField    string
	newRecord  func() T
	normalizer Normalizer
}

// NewTable binds a record type to db. The manifest table must not already be
// claimed by another type on the same DB.
func NewTable[T model.Record](db *DB, manifest model.Manifest, idField string, newRecord func() T, normalizer Normalizer) (*Table[T], error) {
	if idField == "" {
		idField = "id"
	}
	if !isIdentifier(idField) {
		return nil, fmt.Errorf("invalid id field %q", idField)
	}
	if manifest.Has(idField) {
		return nil, fmt.Errorf("id field %q clashes with a %s field", idField, manifest.TypeName)
	}
	if err := db.registry.Register(manifest); err != nil {
		return nil, fmt.Errorf("register %s: %w", manifest.TypeName, err)
	}
	return &Table[T]{
		db:         db,
		manifest:   manifest,
		idField:    idField,
		newRecord:  newRecord,
		normalizer: normalizer,
	}, nil
}

// Name returns the backing table name.
func (t *Table[T]) Name() string {
	return t.manifest.Table
}

// EnsureTable creates the table unless the catalog already lists it.
// Check-then-create is not atomic across processes.
func (t *Table[T]) EnsureTable(ctx context.Context) error {
	exists, err := t.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	cols := make([]string, 0, len(t.manifest.Fields)+1)
	cols = append(cols, quote(t.idField)+" INTEGER PRIMARY KEY")
	for _, f := range t.manifest.Fields {
		cols = append(cols, quote(f.Name)+" TEXT")
	}
	query := fmt.Sprintf("CREATE TABLE %s (%s)", quote(t.manifest.Table), strings.Join(cols, ", "))
	if _, err := t.exec(ctx, "create", query); err != nil {
		return err
	}
	t.db.logger.Info("created table", zap.String("table", t.manifest.Table))
	return nil
}

func (t *Table[T]) exists(ctx context.Context) (bool, error) {
	conn, err := t.db.conn(ctx)
	if err != nil {
		return false, t.fail("lookup", err)
	}
	const query = "SELECT name FROM sqlite_master WHERE type = ? AND name = ?"
	args := []any{"table", t.manifest.Table}
	t.db.logStatement(query, args)
	var name string
	err = conn.QueryRowContext(ctx, query, args...).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, t.fail("lookup", err)
	default:
		return true, nil
	}
}

// Save normalizes a new record once, then inserts it and assigns its
// identity, or updates every field when the record already has one.
func (t *Table[T]) Save(ctx context.Context, rec T) error {
	id, ok := rec.ID()
	if ok {
		return t.update(ctx, rec, id)
	}
	if t.normalizer != nil && !rec.Normalized() {
		t.normalizer.Normalize(rec)
	}
	cols, marks := t.insertColumns()
	values, err := t.values(rec)
	if err != nil {
		return t.fail("insert", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.manifest.Table), cols, marks)
	res, err := t.exec(ctx, "insert", query, values...)
	if err != nil {
		return err
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return t.fail("insert", err)
	}
	rec.SetID(newID)
	return nil
}

func (t *Table[T]) update(ctx context.Context, rec T, id int64) error {
	sets := make([]string, 0, len(t.manifest.Fields))
	for _, f := range t.manifest.Fields {
		sets = append(sets, quote(f.Name)+" = ?")
	}
	values, err := t.values(rec)
	if err != nil {
		return t.fail("update", err)
	}
	values = append(values, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quote(t.manifest.Table), strings.Join(sets, ", "), quote(t.idField))
	res, err := t.exec(ctx, "update", query, values...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return t.fail("update", fmt.Errorf("%s %d: %w", t.idField, id, crawler.ErrRecordNotFound))
	}
	return nil
}

// Delete removes a stored record and clears its identity.
func (t *Table[T]) Delete(ctx context.Context, rec T) error {
	id, ok := rec.ID()
	if !ok {
		return t.fail("delete", crawler.ErrNotPersisted)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(t.manifest.Table), quote(t.idField))
	if _, err := t.exec(ctx, "delete", query, id); err != nil {
		return err
	}
	rec.ClearID()
	return nil
}

// StoreMany inserts records in one transaction. Identities are not read back.
func (t *Table[T]) StoreMany(ctx context.Context, recs []T) error {
	if len(recs) == 0 {
		return nil
	}
	conn, err := t.db.conn(ctx)
	if err != nil {
		return t.fail("store_many", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return t.fail("store_many", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cols, marks := t.insertColumns()
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.manifest.Table), cols, marks)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return t.fail("store_many", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, rec := range recs {
		if t.normalizer != nil {
			if _, ok := rec.ID(); !ok && !rec.Normalized() {
				t.normalizer.Normalize(rec)
			}
		}
		values, err := t.values(rec)
		if err != nil {
			return t.fail("store_many", err)
		}
		t.db.logStatement(query, values)
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return t.fail("store_many", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return t.fail("store_many", err)
	}
	return nil
}

// MostRecent returns the newest record: the highest manifest OrderBy value,
// then the highest identity. When the table is empty it returns the zero T,
// which is nil for pointer record types.
func (t *Table[T]) MostRecent(ctx context.Context) (T, error) {
	order := quote(t.idField) + " DESC"
	if t.manifest.OrderBy != "" {
		order = quote(t.manifest.OrderBy) + " DESC, " + order
	}
	query := fmt.Sprintf("%s ORDER BY %s LIMIT 1", t.selectClause(), order)
	rec, err := t.queryOne(ctx, "most_recent", query)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, nil
	}
	return rec, err
}

// Load fetches the record stored under id.
func (t *Table[T]) Load(ctx context.Context, id int64) (T, error) {
	query := fmt.Sprintf("%s WHERE %s = ?", t.selectClause(), quote(t.idField))
	rec, err := t.queryOne(ctx, "load", query, id)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, t.fail("load", fmt.Errorf("no %s with %s %d: %w", t.manifest.TypeName, t.idField, id, crawler.ErrRecordNotFound))
	}
	return rec, err
}

// Count returns the number of stored records.
func (t *Table[T]) Count(ctx context.Context) (int64, error) {
	conn, err := t.db.conn(ctx)
	if err != nil {
		return 0, t.fail("count", err)
	}
	query := "SELECT COUNT(*) FROM " + quote(t.manifest.Table)
	t.db.logStatement(query, nil)
	var n int64
	if err := conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, t.fail("count", err)
	}
	return n, nil
}

// queryOne returns sql.ErrNoRows unwrapped so callers can map it.
func (t *Table[T]) queryOne(ctx context.Context, op, query string, args ...any) (T, error) {
	var zero T
	conn, err := t.db.conn(ctx)
	if err != nil {
		return zero, t.fail(op, err)
	}
	t.db.logStatement(query, args)

	var id int64
	raw := make([]sql.NullString, len(t.manifest.Fields))
	dest := make([]any, 0, len(raw)+1)
	dest = append(dest, &id)
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	if err := conn.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, err
		}
		return zero, t.fail(op, err)
	}

	rec := t.newRecord()
	for i, f := range t.manifest.Fields {
		if err := rec.SetField(f.Name, raw[i].String); err != nil {
			return zero, t.fail(op, err)
		}
	}
	rec.SetID(id)
	// Stored values were normalized before their first insert.
	rec.MarkNormalized()
	return rec, nil
}

func (t *Table[T]) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	conn, err := t.db.conn(ctx)
	if err != nil {
		return nil, t.fail(op, err)
	}
	t.db.logStatement(query, args)
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, t.fail(op, err)
	}
	return res, nil
}

func (t *Table[T]) selectClause() string {
	cols := make([]string, 0, len(t.manifest.Fields)+1)
	cols = append(cols, quote(t.idField))
	for _, f := range t.manifest.Fields {
		cols = append(cols, quote(f.Name))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quote(t.manifest.Table))
}

func (t *Table[T]) insertColumns() (string, string) {
	cols := make([]string, 0, len(t.manifest.Fields))
	marks := make([]string, 0, len(t.manifest.Fields))
	for _, f := range t.manifest.Fields {
		cols = append(cols, quote(f.Name))
		marks = append(marks, "?")
	}
	return strings.Join(cols, ", "), strings.Join(marks, ", ")
}

func (t *Table[T]) values(rec T) ([]any, error) {
	values := make([]any, 0, len(t.manifest.Fields)+1)
	for _, f := range t.manifest.Fields {
		v, err := rec.Field(f.Name)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (t *Table[T]) fail(op string, err error) error {
	return &crawler.PersistenceError{Op: op, Table: t.manifest.Table, Err: err}
}

func quote(name string) string {
	return `"` + name + `"`
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
