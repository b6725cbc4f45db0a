package pipeline

import (
	"context"
	"fmt"

	"fleximart/internal/storage"
)

// fakeStore is an in-memory stand-in for a relational backend. It assigns
// incrementing surrogate keys per table and enforces the customers.email
// unique constraint the way a real backend would: by returning a typed
// duplicate error from the insert.
type fakeStore struct {
	seq    map[string]int64
	tables map[string][]map[string]any
	emails map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seq:    map[string]int64{},
		tables: map[string][]map[string]any{},
		emails: map[string]int64{},
	}
}

func (s *fakeStore) insert(table, idColumn string, columns []string, values []any) (int64, error) {
	if len(columns) != len(values) {
		return 0, fmt.Errorf("fake: %d columns, %d values", len(columns), len(values))
	}

	row := map[string]any{}
	for i, c := range columns {
		row[c] = values[i]
	}

	if table == TableCustomers {
		if email, ok := row["email"].(string); ok {
			if _, exists := s.emails[email]; exists {
				return 0, &storage.DuplicateKeyError{Table: TableCustomers, Column: "email"}
			}
		}
	}

	s.seq[table]++
	id := s.seq[table]
	row[idColumn] = id
	s.tables[table] = append(s.tables[table], row)

	if table == TableCustomers {
		if email, ok := row["email"].(string); ok {
			s.emails[email] = id
		}
	}
	return id, nil
}

func (s *fakeStore) lookup(table, idColumn, matchColumn string, value any) (int64, bool) {
	for _, row := range s.tables[table] {
		if row[matchColumn] == value {
			if id, ok := row[idColumn].(int64); ok {
				return id, true
			}
		}
	}
	return 0, false
}

type fakeRepo struct {
	store   *fakeStore
	ensured [][]storage.TableSpec
	closed  bool
}

func (r *fakeRepo) Close() { r.closed = true }

func (r *fakeRepo) EnsureTables(_ context.Context, tables []storage.TableSpec) error {
	r.ensured = append(r.ensured, tables)
	return nil
}

func (r *fakeRepo) Begin(context.Context) (storage.Tx, error) {
	return &fakeTx{store: r.store}, nil
}

func (r *fakeRepo) Query(context.Context, string, ...any) ([]string, [][]any, error) {
	return nil, nil, nil
}

type fakeTx struct {
	store     *fakeStore
	committed bool
}

func (t *fakeTx) InsertReturningID(_ context.Context, table, idColumn string, columns []string, values []any) (int64, error) {
	return t.store.insert(table, idColumn, columns, values)
}

func (t *fakeTx) LookupID(_ context.Context, table, idColumn, matchColumn string, value any) (int64, bool, error) {
	id, found := t.store.lookup(table, idColumn, matchColumn, value)
	return id, found, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }
