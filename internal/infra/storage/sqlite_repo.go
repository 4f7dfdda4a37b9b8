package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
)

// SQLiteSaveRepository implements SaveRepository for SQLite. The
// document travels as JSON in a single column.
type SQLiteSaveRepository struct {
	db *sql.DB
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Load(ctx context.Context, campaignID string) (*chronicle.SaveDocument, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM campaigns WHERE campaign_id = ?`, campaignID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, campaignID)
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	var doc chronicle.SaveDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode save document: %w", err)
	}
	// The storage key wins over whatever the document recorded.
	doc.Info.CampaignID = campaignID
	return &doc, nil
}

func (r *SQLiteSaveRepository) Save(ctx context.Context, campaignID string, doc *chronicle.SaveDocument) error {
	doc.Info.CampaignID = campaignID
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode save document: %w", err)
	}

	query := `
		INSERT INTO campaigns (campaign_id, player_name, campaign_year, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id) DO UPDATE SET
			player_name=excluded.player_name,
			campaign_year=excluded.campaign_year,
			document=excluded.document,
			updated_at=excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		campaignID, doc.Info.PlayerName, doc.Info.CampaignYear, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

func (r *SQLiteSaveRepository) List(ctx context.Context) ([]CampaignInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT campaign_id, player_name, campaign_year, updated_at FROM campaigns ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []CampaignInfo
	for rows.Next() {
		var info CampaignInfo
		if err := rows.Scan(&info.CampaignID, &info.PlayerName, &info.CampaignYear, &info.UpdatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, campaignID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE campaign_id = ?`, campaignID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE campaign_id = ?`, campaignID)
	return err
}

// ---------------------------------------------------------
// SQLiteEventRepository
// ---------------------------------------------------------

type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StoredEvent) error {
	query := `
		INSERT INTO events (id, campaign_id, timestamp, event_type, game_date, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.CampaignID, event.Timestamp, event.EventType, event.GameDate, event.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.Timestamp, &e.EventType, &e.GameDate, &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByCampaignID(ctx context.Context, campaignID string) ([]StoredEvent, error) {
	query := `SELECT id, campaign_id, timestamp, event_type, game_date, payload FROM events WHERE campaign_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, campaignID)
}

func (r *SQLiteEventRepository) GetByGameDate(ctx context.Context, campaignID, gameDate string) ([]StoredEvent, error) {
	query := `SELECT id, campaign_id, timestamp, event_type, game_date, payload FROM events WHERE campaign_id = ? AND game_date = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, campaignID, gameDate)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, campaignID, eventType string) ([]StoredEvent, error) {
	query := `SELECT id, campaign_id, timestamp, event_type, game_date, payload FROM events WHERE campaign_id = ? AND event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, campaignID, eventType)
}
