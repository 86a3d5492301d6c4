package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/david/grant-hunter/internal/models"
)

// ErrNotFound is returned for lookups that match no row owned by the caller.
var ErrNotFound = errors.New("record not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	u := &models.User{Email: email, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		email, passwordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ---- company profiles ----

func (s *Store) GetCompanyProfile(ctx context.Context, userID uuid.UUID) (*models.CompanyProfile, error) {
	p := &models.CompanyProfile{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, sectors, keywords, cost_share_capacity,
		       geographic_priorities, active_proposal_count, team_credentials, updated_at
		FROM company_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.ID, &p.UserID, &p.Sectors, &p.Keywords, &p.CostShareCapacity,
		&p.GeographicPriorities, &p.ActiveProposalCount, &p.TeamCredentials, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company profile: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertCompanyProfile(ctx context.Context, p *models.CompanyProfile) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO company_profiles
			(user_id, sectors, keywords, cost_share_capacity, geographic_priorities,
			 active_proposal_count, team_credentials, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			sectors = EXCLUDED.sectors,
			keywords = EXCLUDED.keywords,
			cost_share_capacity = EXCLUDED.cost_share_capacity,
			geographic_priorities = EXCLUDED.geographic_priorities,
			active_proposal_count = EXCLUDED.active_proposal_count,
			team_credentials = EXCLUDED.team_credentials,
			updated_at = NOW()
		RETURNING id, updated_at`,
		p.UserID, p.Sectors, p.Keywords, p.CostShareCapacity, p.GeographicPriorities,
		p.ActiveProposalCount, p.TeamCredentials,
	).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert company profile: %w", err)
	}
	return nil
}

// ---- raw opportunities ----

// UpsertRawOpportunity inserts or refreshes a discovered opportunity keyed on
// (source, external_id). Enriched fields never get clobbered by sparser
// re-discoveries.
func (s *Store) UpsertRawOpportunity(ctx context.Context, opp *models.RawOpportunity) error {
	rawData, err := json.Marshal(opp.RawData)
	if err != nil {
		return fmt.Errorf("marshal raw_data: %w", err)
	}

	var embedding interface{}
	if len(opp.Embedding) > 0 {
		embedding = pgvector.NewVector(opp.Embedding)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO opportunities_raw
			(source, external_id, title, agency, amount_min, amount_max, amount_text,
			 currency, deadline, description, eligibility, source_url, raw_data,
			 is_processed, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			agency = COALESCE(NULLIF(EXCLUDED.agency, ''), opportunities_raw.agency),
			amount_min = COALESCE(EXCLUDED.amount_min, opportunities_raw.amount_min),
			amount_max = COALESCE(EXCLUDED.amount_max, opportunities_raw.amount_max),
			amount_text = COALESCE(NULLIF(EXCLUDED.amount_text, ''), opportunities_raw.amount_text),
			currency = COALESCE(NULLIF(EXCLUDED.currency, ''), opportunities_raw.currency),
			deadline = COALESCE(EXCLUDED.deadline, opportunities_raw.deadline),
			description = CASE WHEN LENGTH(EXCLUDED.description) > LENGTH(opportunities_raw.description)
				THEN EXCLUDED.description ELSE opportunities_raw.description END,
			eligibility = COALESCE(NULLIF(EXCLUDED.eligibility, ''), opportunities_raw.eligibility),
			source_url = COALESCE(NULLIF(EXCLUDED.source_url, ''), opportunities_raw.source_url),
			raw_data = EXCLUDED.raw_data,
			embedding = COALESCE(EXCLUDED.embedding, opportunities_raw.embedding)
		RETURNING id, created_at`,
		opp.Source, opp.ExternalID, opp.Title, opp.Agency, opp.AmountMin, opp.AmountMax,
		opp.AmountText, opp.Currency, opp.Deadline, opp.Description, opp.Eligibility,
		opp.SourceURL, rawData, opp.IsProcessed, embedding,
	).Scan(&opp.ID, &opp.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert raw opportunity: %w", err)
	}
	return nil
}

// ---- scored opportunities ----

// UpsertScoredOpportunity inserts or overwrites the caller's qualification of
// one raw opportunity. Review state (hitl_status, snoozed_until) survives a
// re-score; only scores, decision, reasons and risks are refreshed.
func (s *Store) UpsertScoredOpportunity(ctx context.Context, scored *models.ScoredOpportunity) error {
	details, err := json.Marshal(scored.ScoringDetails)
	if err != nil {
		return fmt.Errorf("marshal scoring_details: %w", err)
	}
	if scored.MatchReasons == nil {
		scored.MatchReasons = []string{}
	}
	if scored.Risks == nil {
		scored.Risks = []string{}
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO opportunities_scored
			(user_id, opportunity_raw_id, strategic_fit_score, win_probability_score,
			 resource_efficiency_score, strategic_value_score, bonus_points,
			 capacity_penalty, total_score, decision, hitl_status, match_reasons,
			 risks, scoring_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, opportunity_raw_id) DO UPDATE SET
			strategic_fit_score = EXCLUDED.strategic_fit_score,
			win_probability_score = EXCLUDED.win_probability_score,
			resource_efficiency_score = EXCLUDED.resource_efficiency_score,
			strategic_value_score = EXCLUDED.strategic_value_score,
			bonus_points = EXCLUDED.bonus_points,
			capacity_penalty = EXCLUDED.capacity_penalty,
			total_score = EXCLUDED.total_score,
			decision = EXCLUDED.decision,
			match_reasons = EXCLUDED.match_reasons,
			risks = EXCLUDED.risks,
			scoring_details = EXCLUDED.scoring_details,
			updated_at = NOW()
		RETURNING id, hitl_status, snoozed_until, created_at, updated_at`,
		scored.UserID, scored.OpportunityRawID, scored.StrategicFitScore,
		scored.WinProbabilityScore, scored.ResourceEfficiencyScore,
		scored.StrategicValueScore, scored.BonusPoints, scored.CapacityPenalty,
		scored.TotalScore, scored.Decision, models.HITLPending, scored.MatchReasons,
		scored.Risks, details,
	).Scan(&scored.ID, &scored.HITLStatus, &scored.SnoozedUntil, &scored.CreatedAt, &scored.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert scored opportunity: %w", err)
	}
	return nil
}

const scoredCols = `s.id, s.user_id, s.opportunity_raw_id, s.strategic_fit_score,
	s.win_probability_score, s.resource_efficiency_score, s.strategic_value_score,
	s.bonus_points, s.capacity_penalty, s.total_score, s.decision, s.hitl_status,
	s.match_reasons, s.risks, s.scoring_details, s.snoozed_until, s.created_at, s.updated_at,
	r.id, r.source, r.external_id, r.title, r.agency, r.amount_min, r.amount_max,
	r.amount_text, r.currency, r.deadline, r.description, r.eligibility, r.source_url, r.created_at`

func scanScored(scan func(dest ...any) error) (*models.ScoredOpportunity, error) {
	scored := &models.ScoredOpportunity{Raw: &models.RawOpportunity{}}
	var details []byte
	err := scan(
		&scored.ID, &scored.UserID, &scored.OpportunityRawID, &scored.StrategicFitScore,
		&scored.WinProbabilityScore, &scored.ResourceEfficiencyScore, &scored.StrategicValueScore,
		&scored.BonusPoints, &scored.CapacityPenalty, &scored.TotalScore, &scored.Decision,
		&scored.HITLStatus, &scored.MatchReasons, &scored.Risks, &details, &scored.SnoozedUntil,
		&scored.CreatedAt, &scored.UpdatedAt,
		&scored.Raw.ID, &scored.Raw.Source, &scored.Raw.ExternalID, &scored.Raw.Title,
		&scored.Raw.Agency, &scored.Raw.AmountMin, &scored.Raw.AmountMax, &scored.Raw.AmountText,
		&scored.Raw.Currency, &scored.Raw.Deadline, &scored.Raw.Description,
		&scored.Raw.Eligibility, &scored.Raw.SourceURL, &scored.Raw.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(details, &scored.ScoringDetails, "scoring_details"); err != nil {
		return nil, err
	}
	return scored, nil
}

// decodeJSONColumn fills dst from a JSONB column. Empty or NULL columns are
// left as zero values; anything else that fails to decode is a data error the
// caller must see, not swallow.
func decodeJSONColumn(raw []byte, dst any, column string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", column, err)
	}
	return nil
}

func (s *Store) GetScoredOpportunity(ctx context.Context, userID, id uuid.UUID) (*models.ScoredOpportunity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+scoredCols+`
		FROM opportunities_scored s
		JOIN opportunities_raw r ON r.id = s.opportunity_raw_id
		WHERE s.id = $1 AND s.user_id = $2`,
		id, userID)
	scored, err := scanScored(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scored opportunity: %w", err)
	}
	return scored, nil
}

func (s *Store) ListScoredOpportunities(ctx context.Context, userID uuid.UUID) ([]models.ScoredOpportunity, error) {
	return s.ListScored(ctx, userID, ScoredListParams{})
}

// ScoredListParams filters the review inbox. Zero values mean "no filter".
type ScoredListParams struct {
	Decision   string
	HITLStatus string
	Actionable bool
	Limit      uint64
	Offset     uint64
}

// buildScoredListQuery assembles the filtered inbox query. Actionable means
// pending, or snoozed with a null or elapsed snooze horizon; the snooze state
// itself is never rewritten by reads.
func buildScoredListQuery(userID uuid.UUID, params ScoredListParams) (string, []any, error) {
	qb := psql.Select(scoredCols).
		From("opportunities_scored s").
		Join("opportunities_raw r ON r.id = s.opportunity_raw_id").
		Where(sq.Eq{"s.user_id": userID}).
		OrderBy("s.total_score DESC", "s.created_at DESC")

	if params.Decision != "" {
		qb = qb.Where(sq.Eq{"s.decision": params.Decision})
	}
	if params.HITLStatus != "" {
		qb = qb.Where(sq.Eq{"s.hitl_status": params.HITLStatus})
	}
	if params.Actionable {
		qb = qb.Where(sq.Or{
			sq.Eq{"s.hitl_status": models.HITLPending},
			sq.And{
				sq.Eq{"s.hitl_status": models.HITLSnoozed},
				sq.Or{
					sq.Eq{"s.snoozed_until": nil},
					sq.Expr("s.snoozed_until < NOW()"),
				},
			},
		})
	}
	if params.Limit > 0 {
		qb = qb.Limit(params.Limit)
	}
	if params.Offset > 0 {
		qb = qb.Offset(params.Offset)
	}
	return qb.ToSql()
}

// ListScored returns the caller's scored opportunities ordered by total score.
func (s *Store) ListScored(ctx context.Context, userID uuid.UUID, params ScoredListParams) ([]models.ScoredOpportunity, error) {
	sqlStr, args, err := buildScoredListQuery(userID, params)
	if err != nil {
		return nil, fmt.Errorf("build scored list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list scored opportunities: %w", err)
	}
	defer rows.Close()

	var result []models.ScoredOpportunity
	for rows.Next() {
		scored, err := scanScored(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan scored opportunity: %w", err)
		}
		result = append(result, *scored)
	}
	return result, rows.Err()
}

func (s *Store) UpdateHITLStatus(ctx context.Context, userID, id uuid.UUID, status models.HITLStatus, snoozedUntil *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE opportunities_scored
		SET hitl_status = $3, snoozed_until = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`,
		id, userID, status, snoozedUntil)
	if err != nil {
		return fmt.Errorf("update hitl status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- applications ----

const applicationCols = `id, user_id, opportunity_scored_id, status, content_sections,
	team_members, notes, submitted_at, created_at, updated_at`

func scanApplication(scan func(dest ...any) error) (*models.Application, error) {
	app := &models.Application{}
	var sections []byte
	err := scan(&app.ID, &app.UserID, &app.OpportunityScoredID, &app.Status, &sections,
		&app.TeamMembers, &app.Notes, &app.SubmittedAt, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(sections, &app.ContentSections, "content_sections"); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Store) CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	sections, err := json.Marshal(app.ContentSections)
	if err != nil {
		return nil, fmt.Errorf("marshal content_sections: %w", err)
	}
	if app.TeamMembers == nil {
		app.TeamMembers = []string{}
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO applications (user_id, opportunity_scored_id, status, content_sections, team_members, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		app.UserID, app.OpportunityScoredID, app.Status, sections, app.TeamMembers, app.Notes,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, userID, id uuid.UUID) (*models.Application, error) {
	return s.getApplicationWhere(ctx, "id = $1 AND user_id = $2", id, userID)
}

func (s *Store) GetApplicationForScored(ctx context.Context, userID, scoredID uuid.UUID) (*models.Application, error) {
	return s.getApplicationWhere(ctx, "opportunity_scored_id = $1 AND user_id = $2", scoredID, userID)
}

func (s *Store) getApplicationWhere(ctx context.Context, where string, args ...any) (*models.Application, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+applicationCols+` FROM applications WHERE `+where, args...)
	app, err := scanApplication(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	scored, err := s.GetScoredOpportunity(ctx, app.UserID, app.OpportunityScoredID)
	if err == nil {
		app.Scored = scored
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context, userID uuid.UUID) ([]models.Application, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+applicationCols+`
		FROM applications WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var result []models.Application
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		result = append(result, *app)
	}
	return result, rows.Err()
}

func (s *Store) UpdateApplicationSections(ctx context.Context, userID, id uuid.UUID, sections map[string]string) error {
	encoded, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal content_sections: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET content_sections = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`,
		id, userID, encoded)
	if err != nil {
		return fmt.Errorf("update application sections: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateApplicationStatus advances the lifecycle. submitted_at is written at
// most once; later writes keep the original stamp.
func (s *Store) UpdateApplicationStatus(ctx context.Context, userID, id uuid.UUID, status models.ApplicationStatus, submittedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET status = $3, submitted_at = COALESCE(submitted_at, $4), updated_at = NOW()
		WHERE id = $1 AND user_id = $2`,
		id, userID, status, submittedAt)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
