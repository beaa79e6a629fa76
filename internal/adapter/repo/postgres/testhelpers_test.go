package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

func noRows() rowStub {
	return rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}
}

func idRow(id string) rowStub {
	return rowStub{scan: func(dest ...any) error { *dest[0].(*string) = id; return nil }}
}

// poolStub implements postgres.PgxPool for tests. Exec results and rows are
// consumed in call order so multi-statement flows can be scripted.
type poolStub struct {
	execTags []pgconn.CommandTag
	execErrs []error
	rows     []rowStub
	tx       *txStub
	beginErr error
	execSQL  []string
}

func (p *poolStub) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	p.execSQL = append(p.execSQL, sql)
	var tag pgconn.CommandTag
	if len(p.execTags) > 0 {
		tag, p.execTags = p.execTags[0], p.execTags[1:]
	}
	var err error
	if len(p.execErrs) > 0 {
		err, p.execErrs = p.execErrs[0], p.execErrs[1:]
	}
	return tag, err
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if len(p.rows) == 0 {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	var r rowStub
	r, p.rows = p.rows[0], p.rows[1:]
	return r
}

func (p *poolStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	if p.tx == nil {
		p.tx = &txStub{}
	}
	return p.tx, nil
}

// txStub implements pgx.Tx with scripted Exec/QueryRow behavior. Like the
// server, a statement error aborts the transaction: every later statement
// fails with 25P02 until rollback.
type txStub struct {
	execErrs   []error
	rows       []rowStub
	execSQL    []string
	querySQL   []string
	aborted    bool
	committed  bool
	rolledBack bool
	commitErr  error
}

func txAbortedErr() *pgconn.PgError {
	return &pgconn.PgError{Code: "25P02", Message: "current transaction is aborted, commands ignored until end of transaction block"}
}

func (t *txStub) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execSQL = append(t.execSQL, sql)
	if t.aborted {
		return pgconn.CommandTag{}, txAbortedErr()
	}
	var err error
	if len(t.execErrs) > 0 {
		err, t.execErrs = t.execErrs[0], t.execErrs[1:]
	}
	if err != nil {
		t.aborted = true
	}
	return pgconn.CommandTag{}, err
}

func (t *txStub) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	t.querySQL = append(t.querySQL, sql)
	if t.aborted {
		return rowStub{scan: func(_ ...any) error { return txAbortedErr() }}
	}
	if len(t.rows) == 0 {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	var r rowStub
	r, t.rows = t.rows[0], t.rows[1:]
	return r
}

func (t *txStub) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *txStub) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *txStub) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }
func (t *txStub) Conn() *pgx.Conn                         { return nil }
func (t *txStub) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (t *txStub) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (t *txStub) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}
func (t *txStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (t *txStub) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }

// candidateRow builds a rowStub scanning the candidate column set.
func candidateRow(c domain.Candidate) rowStub {
	return rowStub{scan: func(dest ...any) error {
		langs, _ := json.Marshal(c.Languages)
		if len(c.Languages) == 0 {
			langs = nil
		}
		*dest[0].(*string) = c.ID
		*dest[1].(*string) = c.FirstName
		*dest[2].(*string) = c.LastName
		*dest[3].(*string) = c.Email
		*dest[4].(*string) = c.Phone
		*dest[5].(*string) = c.City
		*dest[6].(*string) = c.State
		*dest[7].(*string) = c.CurrentPosition
		*dest[8].(*string) = c.CurrentCompany
		*dest[9].(*int) = c.YearsOfExperience
		*dest[10].(*string) = c.EducationLevel
		*dest[11].(*[]string) = c.Skills
		*dest[12].(*[]string) = c.SoftSkills
		*dest[13].(*[]byte) = langs
		*dest[14].(*[]string) = c.Certifications
		*dest[15].(*string) = c.Summary
		*dest[16].(*time.Time) = c.CreatedAt
		*dest[17].(*time.Time) = c.UpdatedAt
		return nil
	}}
}
