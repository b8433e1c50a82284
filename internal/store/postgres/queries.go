package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/canvass/internal/core"
)

// ============================================================================
// Canvassed persons
// ============================================================================

const personColumns = `id, national_id, first_name, last_name, phone, email, address,
	neighborhood, locality, polling_station, polling_table, gender, notes,
	leader_id, pending_leader_key, created_at, updated_at`

func scanPerson(row pgx.Row) (*core.CanvassedPerson, error) {
	var (
		p          core.CanvassedPerson
		leaderID   pgtype.Int8
		pendingKey pgtype.Text
	)
	err := row.Scan(&p.ID, &p.NationalID, &p.FirstName, &p.LastName, &p.Phone, &p.Email,
		&p.Address, &p.Neighborhood, &p.Locality, &p.PollingStation, &p.PollingTable,
		&p.Gender, &p.Notes, &leaderID, &pendingKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	p.Relationship = relationshipFromPg(leaderID, pendingKey)
	return &p, nil
}

func relationshipFromPg(leaderID pgtype.Int8, pendingKey pgtype.Text) core.RelationshipState {
	var (
		id  *int64
		key *string
	)
	if leaderID.Valid {
		id = &leaderID.Int64
	}
	if pendingKey.Valid {
		key = &pendingKey.String
	}
	return core.RelationshipFromColumns(id, key)
}

func relationshipToPg(s core.RelationshipState) (pgtype.Int8, pgtype.Text) {
	id, key := s.Columns()
	var (
		pgID  pgtype.Int8
		pgKey pgtype.Text
	)
	if id != nil {
		pgID = pgtype.Int8{Int64: *id, Valid: true}
	}
	if key != nil {
		pgKey = pgtype.Text{String: *key, Valid: true}
	}
	return pgID, pgKey
}

func (q *queries) PersonByNationalID(ctx context.Context, nationalID string) (*core.CanvassedPerson, error) {
	return scanPerson(q.db.QueryRow(ctx,
		`SELECT `+personColumns+` FROM canvassed_persons WHERE national_id = $1`, nationalID))
}

func (q *queries) PersonByID(ctx context.Context, id int64) (*core.CanvassedPerson, error) {
	return scanPerson(q.db.QueryRow(ctx,
		`SELECT `+personColumns+` FROM canvassed_persons WHERE id = $1`, id))
}

func (q *queries) InsertPerson(ctx context.Context, p *core.CanvassedPerson) error {
	leaderID, pendingKey := relationshipToPg(p.Relationship)
	err := q.db.QueryRow(ctx, `
		INSERT INTO canvassed_persons (national_id, first_name, last_name, phone, email, address,
			neighborhood, locality, polling_station, polling_table, gender, notes,
			leader_id, pending_leader_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		p.NationalID, p.FirstName, p.LastName, p.Phone, p.Email, p.Address,
		p.Neighborhood, p.Locality, p.PollingStation, p.PollingTable, p.Gender, p.Notes,
		leaderID, pendingKey,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

func (q *queries) UpdatePerson(ctx context.Context, p *core.CanvassedPerson) error {
	leaderID, pendingKey := relationshipToPg(p.Relationship)
	err := q.db.QueryRow(ctx, `
		UPDATE canvassed_persons SET
			national_id = $2, first_name = $3, last_name = $4, phone = $5, email = $6,
			address = $7, neighborhood = $8, locality = $9, polling_station = $10,
			polling_table = $11, gender = $12, notes = $13,
			leader_id = $14, pending_leader_key = $15, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.NationalID, p.FirstName, p.LastName, p.Phone, p.Email,
		p.Address, p.Neighborhood, p.Locality, p.PollingStation,
		p.PollingTable, p.Gender, p.Notes, leaderID, pendingKey,
	).Scan(&p.UpdatedAt)
	return mapError(err)
}

// ============================================================================
// Leaders
// ============================================================================

const leaderColumns = `id, national_id, first_name, last_name, phone, email, address,
	neighborhood, locality, goal, group_id, created_at, updated_at`

func scanLeader(row pgx.Row) (*core.Leader, error) {
	var (
		l       core.Leader
		groupID pgtype.Int8
	)
	err := row.Scan(&l.ID, &l.NationalID, &l.FirstName, &l.LastName, &l.Phone, &l.Email,
		&l.Address, &l.Neighborhood, &l.Locality, &l.Goal, &groupID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if groupID.Valid {
		l.GroupID = &groupID.Int64
	}
	return &l, nil
}

func groupIDToPg(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}

func (q *queries) LeaderByNationalID(ctx context.Context, nationalID string) (*core.Leader, error) {
	return scanLeader(q.db.QueryRow(ctx,
		`SELECT `+leaderColumns+` FROM leaders WHERE national_id = $1`, nationalID))
}

func (q *queries) LeaderByID(ctx context.Context, id int64) (*core.Leader, error) {
	return scanLeader(q.db.QueryRow(ctx,
		`SELECT `+leaderColumns+` FROM leaders WHERE id = $1`, id))
}

func (q *queries) InsertLeader(ctx context.Context, l *core.Leader) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO leaders (national_id, first_name, last_name, phone, email, address,
			neighborhood, locality, goal, group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		l.NationalID, l.FirstName, l.LastName, l.Phone, l.Email, l.Address,
		l.Neighborhood, l.Locality, l.Goal, groupIDToPg(l.GroupID),
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return mapError(err)
}

func (q *queries) UpdateLeader(ctx context.Context, l *core.Leader) error {
	err := q.db.QueryRow(ctx, `
		UPDATE leaders SET
			national_id = $2, first_name = $3, last_name = $4, phone = $5, email = $6,
			address = $7, neighborhood = $8, locality = $9, goal = $10, group_id = $11,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		l.ID, l.NationalID, l.FirstName, l.LastName, l.Phone, l.Email,
		l.Address, l.Neighborhood, l.Locality, l.Goal, groupIDToPg(l.GroupID),
	).Scan(&l.UpdatedAt)
	return mapError(err)
}

// ============================================================================
// Candidates and groups
// ============================================================================

const candidateColumns = `id, name, email, phone, party, office, list_number, created_at, updated_at`

func scanCandidate(row pgx.Row) (*core.Candidate, error) {
	var c core.Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Party, &c.Office, &c.ListNumber,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (q *queries) CandidateByName(ctx context.Context, name string) (*core.Candidate, error) {
	return scanCandidate(q.db.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE name = $1`, name))
}

func (q *queries) InsertCandidate(ctx context.Context, c *core.Candidate) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO candidates (name, email, phone, party, office, list_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone, c.Party, c.Office, c.ListNumber,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

func (q *queries) UpdateCandidate(ctx context.Context, c *core.Candidate) error {
	err := q.db.QueryRow(ctx, `
		UPDATE candidates SET
			name = $2, email = $3, phone = $4, party = $5, office = $6, list_number = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.Party, c.Office, c.ListNumber,
	).Scan(&c.UpdatedAt)
	return mapError(err)
}

const groupColumns = `id, candidate_id, name, zone, description, created_at, updated_at`

func scanGroup(row pgx.Row) (*core.Group, error) {
	var g core.Group
	err := row.Scan(&g.ID, &g.CandidateID, &g.Name, &g.Zone, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &g, nil
}

func (q *queries) GroupsByName(ctx context.Context, name string) ([]core.Group, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+groupColumns+` FROM campaign_groups WHERE name = $1 ORDER BY id`, name)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	groups := make([]core.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, mapError(rows.Err())
}

func (q *queries) GroupByCandidateAndName(ctx context.Context, candidateID int64, name string) (*core.Group, error) {
	return scanGroup(q.db.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM campaign_groups WHERE candidate_id = $1 AND name = $2`,
		candidateID, name))
}

func (q *queries) InsertGroup(ctx context.Context, g *core.Group) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO campaign_groups (candidate_id, name, zone, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		g.CandidateID, g.Name, g.Zone, g.Description,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return mapError(err)
}

func (q *queries) UpdateGroup(ctx context.Context, g *core.Group) error {
	err := q.db.QueryRow(ctx, `
		UPDATE campaign_groups SET
			candidate_id = $2, name = $3, zone = $4, description = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		g.ID, g.CandidateID, g.Name, g.Zone, g.Description,
	).Scan(&g.UpdatedAt)
	return mapError(err)
}

// ============================================================================
// Pending relationships
// ============================================================================

func (q *queries) PendingPersons(ctx context.Context, leaderKey string) ([]core.CanvassedPerson, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+personColumns+` FROM canvassed_persons WHERE pending_leader_key = $1 ORDER BY id`,
		leaderKey)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	persons := make([]core.CanvassedPerson, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, mapError(rows.Err())
}

func (q *queries) AssignPending(ctx context.Context, leaderKey string, leaderID int64, ids []int64) (int64, error) {
	query := `
		UPDATE canvassed_persons
		SET leader_id = $2, pending_leader_key = NULL, updated_at = now()
		WHERE pending_leader_key = $1`
	args := []any{leaderKey, leaderID}
	if len(ids) > 0 {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	}

	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (q *queries) ClearOrphanPending(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE canvassed_persons p
		SET pending_leader_key = NULL, updated_at = now()
		WHERE p.pending_leader_key IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM leaders l WHERE l.national_id = p.pending_leader_key)`)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (q *queries) PendingCounts(ctx context.Context) ([]core.PendingCount, error) {
	rows, err := q.db.Query(ctx, `
		SELECT pending_leader_key, COUNT(*)
		FROM canvassed_persons
		WHERE pending_leader_key IS NOT NULL
		GROUP BY pending_leader_key
		ORDER BY COUNT(*) DESC, pending_leader_key`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	counts := make([]core.PendingCount, 0)
	for rows.Next() {
		var c core.PendingCount
		if err := rows.Scan(&c.LeaderKey, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, mapError(rows.Err())
}

func (q *queries) SetRelationship(ctx context.Context, personID int64, state core.RelationshipState) error {
	leaderID, pendingKey := relationshipToPg(state)
	tag, err := q.db.Exec(ctx, `
		UPDATE canvassed_persons
		SET leader_id = $2, pending_leader_key = $3, updated_at = now()
		WHERE id = $1`,
		personID, leaderID, pendingKey)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person %d: %w", personID, core.ErrNotFound)
	}
	return nil
}

// ============================================================================
// Batch journal
// ============================================================================

func (q *queries) RecordBatch(ctx context.Context, rec core.BatchRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("batch id %q: %w", rec.ID, err)
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO import_batches (id, entity_type, file_name, total_rows, success_count,
			error_count, inserted, updated, pending, duration_ms, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		pgtype.UUID{Bytes: id, Valid: true}, string(rec.Entity), rec.FileName, rec.TotalRows,
		rec.SuccessCount, rec.ErrorCount, rec.Inserted, rec.Updated, rec.Pending,
		rec.DurationMs, rec.IPAddress, rec.UserAgent, rec.CreatedAt)
	return mapError(err)
}

func (q *queries) RecentBatches(ctx context.Context, limit int) ([]core.BatchRecord, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, entity_type, file_name, total_rows, success_count, error_count,
			inserted, updated, pending, duration_ms, ip_address, user_agent, created_at
		FROM import_batches
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	batches := make([]core.BatchRecord, 0)
	for rows.Next() {
		var (
			rec    core.BatchRecord
			id     pgtype.UUID
			entity string
		)
		if err := rows.Scan(&id, &entity, &rec.FileName, &rec.TotalRows, &rec.SuccessCount,
			&rec.ErrorCount, &rec.Inserted, &rec.Updated, &rec.Pending, &rec.DurationMs,
			&rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ID = uuid.UUID(id.Bytes).String()
		rec.Entity = core.EntityType(entity)
		batches = append(batches, rec)
	}
	return batches, mapError(rows.Err())
}

func (q *queries) PruneBatches(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM import_batches
		WHERE id IN (
			SELECT id FROM import_batches
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
		)`, cutoff, limit)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
