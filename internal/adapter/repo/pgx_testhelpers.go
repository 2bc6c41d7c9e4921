package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"genbridge/internal/infra"
)

// SimpleRow adapts a scan function to pgx.Row for tests.
type SimpleRow struct {
	scan func(dest ...any) error
}

func NewSimpleRow(scanner func(dest ...any) error) SimpleRow {
	return SimpleRow{scan: scanner}
}

func (r SimpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubExecutor answers Exec/QueryRow/Query from canned responses keyed by a
// substring of the statement text. InTx runs the callback against the stub
// itself and counts commits and rollbacks.
type stubExecutor struct {
	execs      map[string]pgconn.CommandTag
	execErrs   map[string]error
	rows       map[string]SimpleRow
	calls      []string
	committed  int
	rolledBack int
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{
		execs:    map[string]pgconn.CommandTag{},
		execErrs: map[string]error{},
		rows:     map[string]SimpleRow{},
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	for key, err := range s.execErrs {
		if containsSQL(query, key) {
			s.calls = append(s.calls, key)
			return pgconn.CommandTag{}, err
		}
	}
	for key, tag := range s.execs {
		if containsSQL(query, key) {
			s.calls = append(s.calls, key)
			return tag, nil
		}
	}
	return pgconn.CommandTag{}, fmt.Errorf("unsupported exec: %s", query)
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	for key, row := range s.rows {
		if containsSQL(query, key) {
			s.calls = append(s.calls, key)
			return row
		}
	}
	return SimpleRow{}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unsupported query: %s", query)
}

func (s *stubExecutor) InTx(ctx context.Context, fn func(infra.SQLExecutor) error) error {
	if err := fn(s); err != nil {
		s.rolledBack++
		return err
	}
	s.committed++
	return nil
}

func containsSQL(query, key string) bool {
	return key != "" && strings.Contains(query, key)
}
