//go:build integration
// +build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/QTest-hq/casegen/internal/testutil"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/google/uuid"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	pool := testutil.RequireDB(t)

	store := NewStore(&DB{pool: pool})
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	testutil.ResetRuns(t, pool)
	return store
}

func TestIntegration_RecordAndGetRun(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run := &model.GenerationRun{
		SessionID: uuid.NewString(),
		Request: model.GenerationRequest{
			TestCase:  model.TestCase{ID: "TC-1", Title: "Login"},
			Framework: model.FrameworkSelenium,
			Pattern:   model.PatternDefault,
			Language:  model.LanguageJavaScript,
		},
		Files:    []model.GeneratedFile{{Filename: "login.test.js", Content: "driver.get()"}},
		Status:   model.RunSucceeded,
		Model:    "gemini-3-pro-preview",
		Duration: 2 * time.Second,
	}

	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun() error: %v", err)
	}
	if run.ID == "" {
		t.Fatal("RecordRun() should assign an id")
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil")
	}
	if got.Request.Framework != model.FrameworkSelenium {
		t.Errorf("Framework = %s", got.Request.Framework)
	}
	if len(got.Files) != 1 || got.Files[0].Content != "driver.get()" {
		t.Errorf("Files = %+v", got.Files)
	}
	if got.Duration != 2*time.Second {
		t.Errorf("Duration = %v", got.Duration)
	}

	missing, err := store.GetRun(ctx, uuid.NewString())
	if err != nil || missing != nil {
		t.Errorf("GetRun(unknown) = %v, %v; want nil, nil", missing, err)
	}
}

func TestIntegration_ListRuns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	sessionID := uuid.NewString()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		run := &model.GenerationRun{
			SessionID: sessionID,
			Request:   model.GenerationRequest{TestCase: model.TestCase{Title: "Run"}},
			Status:    model.RunFailed,
			Error:     "boom",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun() error: %v", err)
		}
	}
	other := &model.GenerationRun{SessionID: uuid.NewString(), Status: model.RunSucceeded}
	if err := store.RecordRun(ctx, other); err != nil {
		t.Fatalf("RecordRun() error: %v", err)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != other.ID {
		t.Errorf("ListRuns() = %d runs, first %s; want newest first", len(runs), runs[0].ID)
	}

	sessionRuns, err := store.ListSessionRuns(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("ListSessionRuns() error: %v", err)
	}
	if len(sessionRuns) != 3 {
		t.Fatalf("ListSessionRuns() = %d runs, want 3", len(sessionRuns))
	}
	if !sessionRuns[0].CreatedAt.After(sessionRuns[2].CreatedAt) {
		t.Error("session runs should be newest first")
	}
	if sessionRuns[0].Files == nil {
		t.Error("files should decode to an empty list")
	}
}
