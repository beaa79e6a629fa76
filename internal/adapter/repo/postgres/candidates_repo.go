package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// CandidateRepo persists candidates and their documents using a minimal pgx
// pool. String lists live in text[] columns; languages and the parsed profile
// are jsonb.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

const candidateColumns = `id, first_name, last_name, email, phone, city, state,
current_position, current_company, years_of_experience, education_level,
skills, soft_skills, languages, certifications, summary, created_at, updated_at`

// FindByEmail loads a candidate by email, case-insensitively.
func (r *CandidateRepo) FindByEmail(ctx domain.Context, email string) (domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.FindByEmail")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "candidates"),
	)
	q := `SELECT ` + candidateColumns + ` FROM candidates WHERE lower(email)=lower($1)`
	c, err := scanCandidate(r.Pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Candidate{}, fmt.Errorf("op=candidate.find_by_email: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.find_by_email: %w", err)
	}
	return c, nil
}

// SearchByName matches first name exactly (case-insensitive) and last name by
// containment, returning the oldest match.
func (r *CandidateRepo) SearchByName(ctx domain.Context, firstName, lastNameFragment string) (domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.SearchByName")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "candidates"),
	)
	q := `SELECT ` + candidateColumns + ` FROM candidates
WHERE lower(first_name)=lower($1) AND last_name ILIKE '%' || $2 || '%'
ORDER BY created_at LIMIT 1`
	c, err := scanCandidate(r.Pool.QueryRow(ctx, q, firstName, lastNameFragment))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Candidate{}, fmt.Errorf("op=candidate.search_by_name: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.search_by_name: %w", err)
	}
	return c, nil
}

// UpsertWithDocument creates or merges the candidate and inserts the document
// in one transaction. When existingID is set, the existing row is locked,
// merged, and updated; both writes commit together or not at all.
//
// A concurrent insert racing on the email unique index is resolved by falling
// back to a merge against the row that won the race.
func (r *CandidateRepo) UpsertWithDocument(ctx domain.Context, existingID string, c domain.Candidate, d domain.CVDocument) (domain.Candidate, bool, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.UpsertWithDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "candidates"),
	)

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Candidate{}, false, fmt.Errorf("op=candidate.upsert begin: %w", domain.ErrStorage)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		saved   domain.Candidate
		created bool
	)
	if existingID == "" {
		saved, created, err = r.insertOrMergeByEmail(ctx, tx, c)
	} else {
		saved, err = r.mergeInto(ctx, tx, existingID, c)
	}
	if err != nil {
		return domain.Candidate{}, false, err
	}

	if err := r.insertDocument(ctx, tx, saved.ID, d); err != nil {
		return domain.Candidate{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Candidate{}, false, fmt.Errorf("op=candidate.upsert commit: %w: %v", domain.ErrStorage, err)
	}
	return saved, created, nil
}

func (r *CandidateRepo) insertOrMergeByEmail(ctx domain.Context, tx pgx.Tx, c domain.Candidate) (domain.Candidate, bool, error) {
	c.ID = uuid.New().String()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	langs, err := json.Marshal(c.Languages)
	if err != nil {
		return domain.Candidate{}, false, fmt.Errorf("op=candidate.insert marshal: %w", err)
	}
	// ON CONFLICT DO NOTHING instead of catching 23505: a raised unique
	// violation would abort the enclosing transaction and poison the merge
	// fallback below with 25P02 on every following statement.
	q := `INSERT INTO candidates (` + candidateColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (lower(email)) DO NOTHING
RETURNING id`
	err = tx.QueryRow(ctx, q, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.City, c.State,
		c.CurrentPosition, c.CurrentCompany, c.YearsOfExperience, c.EducationLevel,
		c.Skills, c.SoftSkills, langs, c.Certifications, c.Summary, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Candidate{}, false, fmt.Errorf("op=candidate.insert: %w: %v", domain.ErrStorage, err)
	}

	// Lost the insert race: another item created this email first. Merge into
	// the winner instead.
	row := tx.QueryRow(ctx, `SELECT id FROM candidates WHERE lower(email)=lower($1)`, c.Email)
	var winnerID string
	if err := row.Scan(&winnerID); err != nil {
		return domain.Candidate{}, false, fmt.Errorf("op=candidate.insert race resolve: %w: %v", domain.ErrStorage, err)
	}
	merged, err := r.mergeInto(ctx, tx, winnerID, c)
	return merged, false, err
}

func (r *CandidateRepo) mergeInto(ctx domain.Context, tx pgx.Tx, id string, incoming domain.Candidate) (domain.Candidate, error) {
	q := `SELECT ` + candidateColumns + ` FROM candidates WHERE id=$1 FOR UPDATE`
	existing, err := scanCandidate(tx.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Candidate{}, fmt.Errorf("op=candidate.merge: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.merge: %w: %v", domain.ErrStorage, err)
	}

	merged := domain.MergeCandidate(existing, incoming)
	merged.UpdatedAt = time.Now().UTC()

	langs, err := json.Marshal(merged.Languages)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.merge marshal: %w", err)
	}
	uq := `UPDATE candidates SET first_name=$2, last_name=$3, phone=$4, city=$5, state=$6,
current_position=$7, current_company=$8, years_of_experience=$9, education_level=$10,
skills=$11, soft_skills=$12, languages=$13, certifications=$14, summary=$15, updated_at=$16
WHERE id=$1`
	_, err = tx.Exec(ctx, uq, merged.ID, merged.FirstName, merged.LastName, merged.Phone,
		merged.City, merged.State, merged.CurrentPosition, merged.CurrentCompany,
		merged.YearsOfExperience, merged.EducationLevel, merged.Skills, merged.SoftSkills,
		langs, merged.Certifications, merged.Summary, merged.UpdatedAt)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.merge update: %w: %v", domain.ErrStorage, err)
	}
	return merged, nil
}

func (r *CandidateRepo) insertDocument(ctx domain.Context, tx pgx.Tx, candidateID string, d domain.CVDocument) error {
	profile, err := json.Marshal(d.ParsedProfile)
	if err != nil {
		return fmt.Errorf("op=document.insert marshal: %w", err)
	}
	id := d.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO cv_documents (id, candidate_id, kind, filename, content, extracted_text, parsed_profile, uploaded_by, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = tx.Exec(ctx, q, id, candidateID, domain.DocumentKindCV, d.Filename, d.Content,
		d.ExtractedText, profile, d.UploadedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=document.insert: %w: %v", domain.ErrStorage, err)
	}
	return nil
}

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var (
		c     domain.Candidate
		langs []byte
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.City, &c.State,
		&c.CurrentPosition, &c.CurrentCompany, &c.YearsOfExperience, &c.EducationLevel,
		&c.Skills, &c.SoftSkills, &langs, &c.Certifications, &c.Summary, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Candidate{}, err
	}
	if len(langs) > 0 {
		if err := json.Unmarshal(langs, &c.Languages); err != nil {
			return domain.Candidate{}, fmt.Errorf("decode languages: %w", err)
		}
	}
	return c, nil
}
