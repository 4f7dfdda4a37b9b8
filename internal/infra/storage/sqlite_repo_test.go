package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/events"
)

func openTestDB(t *testing.T) *SQLiteSaveRepository {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "campaign.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteSaveRepository(db)
}

func TestSaveDocumentRoundTrip(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	doc := chronicle.NewSaveDocument("John Miller", 1925)
	doc.State.MadnessLevel = 4
	doc.Legacy.CollectedArtifacts = []string{"Silver Key"}

	if err := repo.Save(ctx, "camp-1", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Load(ctx, "camp-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Info.PlayerName != "John Miller" || loaded.Info.CampaignYear != 1925 {
		t.Errorf("Wrong save info: %+v", loaded.Info)
	}
	if loaded.State.MadnessLevel != 4 {
		t.Errorf("Expected madness 4, got %d", loaded.State.MadnessLevel)
	}
	if len(loaded.Legacy.CollectedArtifacts) != 1 || loaded.Legacy.CollectedArtifacts[0] != "Silver Key" {
		t.Errorf("Artifacts lost in round trip: %+v", loaded.Legacy.CollectedArtifacts)
	}
}

func TestSaveOverwritesPreviousDocument(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	doc := chronicle.NewSaveDocument("John Miller", 1925)
	if err := repo.Save(ctx, "camp-1", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc.State.WeeklySuccessCount = 3
	if err := repo.Save(ctx, "camp-1", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Load(ctx, "camp-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.State.WeeklySuccessCount != 3 {
		t.Errorf("Expected the overwritten count 3, got %d", loaded.State.WeeklySuccessCount)
	}

	infos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("Expected 1 campaign after overwrite, got %d", len(infos))
	}
}

func TestLoadMissingCampaign(t *testing.T) {
	repo := openTestDB(t)

	_, err := repo.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEventRepositoryQueries(t *testing.T) {
	db, err := InitSQLite(filepath.Join(t.TempDir(), "campaign.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	defer db.Close()

	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()

	appendEvent := func(id, eventType, gameDate string) {
		t.Helper()
		err := repo.Append(ctx, StoredEvent{
			ID:         id,
			CampaignID: "camp-1",
			Timestamp:  time.Now(),
			EventType:  eventType,
			GameDate:   gameDate,
			Payload:    "{}",
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	appendEvent("e1", "ENCOUNTER_RESOLVED", "1925-01-01")
	appendEvent("e2", "MADNESS_CHANGED", "1925-01-01")
	appendEvent("e3", "ENCOUNTER_RESOLVED", "1925-01-02")

	all, err := repo.GetByCampaignID(ctx, "camp-1")
	if err != nil {
		t.Fatalf("GetByCampaignID: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 events, got %d", len(all))
	}

	byDate, err := repo.GetByGameDate(ctx, "camp-1", "1925-01-01")
	if err != nil {
		t.Fatalf("GetByGameDate: %v", err)
	}
	if len(byDate) != 2 {
		t.Errorf("Expected 2 events on 1925-01-01, got %d", len(byDate))
	}

	byType, err := repo.GetByEventType(ctx, "camp-1", "ENCOUNTER_RESOLVED")
	if err != nil {
		t.Fatalf("GetByEventType: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("Expected 2 resolution events, got %d", len(byType))
	}
}

func TestPersisterAdapterWritesThrough(t *testing.T) {
	db, err := InitSQLite(filepath.Join(t.TempDir(), "campaign.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	defer db.Close()

	repo := NewSQLiteEventRepository(db)
	log := events.NewLog(NewEventPersisterAdapter(repo))

	log.Append(events.CampaignEvent{
		Type:       events.EventTypeWeekClosed,
		CampaignID: "camp-1",
		GameDate:   "1925-01-04",
		Payload:    map[string]int{"week_number": 1},
	})
	log.Append(events.CampaignEvent{
		Type:       events.EventTypeWeekClosed,
		CampaignID: "camp-2",
		GameDate:   "1925-01-04",
		Payload:    map[string]int{"week_number": 1},
	})

	stored, err := repo.GetByCampaignID(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("GetByCampaignID: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected 1 stored event for camp-1, got %d", len(stored))
	}
	if stored[0].CampaignID != "camp-1" {
		t.Errorf("Expected campaign camp-1, got %q", stored[0].CampaignID)
	}
	if stored[0].EventType != "WEEK_CLOSED" || stored[0].GameDate != "1925-01-04" {
		t.Errorf("Wrong stored event: %+v", stored[0])
	}
}
