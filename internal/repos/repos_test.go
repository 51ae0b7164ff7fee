package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
	"github.com/yungbote/banditserve-backend/internal/repos/testutil"
	"github.com/yungbote/banditserve-backend/internal/types"
)

func newAction(userID string, decisionIdx int) *types.Action {
	return &types.Action{
		ID:               uuid.New(),
		UserID:           userID,
		DecisionIdx:      decisionIdx,
		State:            datatypes.JSON([]byte(`{"temperature":25}`)),
		RawContext:       datatypes.JSON([]byte(`{"temperature":25}`)),
		Action:           1,
		ActionProb:       0.5,
		RandomState:      "c25hcA==",
		RequestTimestamp: "2024-01-01T00:00:00Z",
		Timestamp:        time.Now().UTC(),
	}
}

func TestActionRepo_InsertIfAbsent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repos.NewActionRepo(db, logger.NewNop())

	inserted, err := repo.Insert(ctx, nil, newAction("u1", 0))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to win")
	}

	inserted, err = repo.Insert(ctx, nil, newAction("u1", 0))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected second insert for the same key to be rejected")
	}

	// A different decision index for the same user is a new key.
	inserted, err = repo.Insert(ctx, nil, newAction("u1", 1))
	if err != nil {
		t.Fatalf("third insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected insert for a new decision index to win")
	}

	row, err := repo.GetByKey(ctx, nil, "u1", 0)
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if row == nil || row.Action != 1 {
		t.Fatalf("expected the original row to survive, got %+v", row)
	}
}

func TestStudyDataRepo_InsertIfAbsent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repos.NewStudyDataRepo(db, logger.NewNop())

	row := &types.StudyData{
		ID:          uuid.New(),
		UserID:      "u1",
		DecisionIdx: 0,
		State:       datatypes.JSON([]byte(`{"temperature":25}`)),
		Outcome:     datatypes.JSON([]byte(`{"clicks":4}`)),
		Action:      1,
		ActionProb:  0.5,
		Reward:      4,
		Timestamp:   time.Now().UTC(),
	}
	inserted, err := repo.Insert(ctx, nil, row)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to win")
	}

	dup := *row
	dup.ID = uuid.New()
	inserted, err = repo.Insert(ctx, nil, &dup)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate report to be rejected")
	}

	all, err := repo.ListAll(ctx, nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(all))
	}
}

func TestModelParametersRepo_LatestByCreatedAt(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repos.NewModelParametersRepo(db, logger.NewNop())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.SeedModelParameters(t, ctx, db, 0.5, base)
	testutil.SeedModelParameters(t, ctx, db, 0.51, base.Add(time.Second))
	testutil.SeedModelParameters(t, ctx, db, 0.52, base.Add(2*time.Second))

	latest, err := repo.Latest(ctx, nil)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ProbabilityOfAction != 0.52 {
		t.Fatalf("expected latest probability 0.52, got %+v", latest)
	}

	count, err := repo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}

func TestModelParametersRepo_LatestEmpty(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repos.NewModelParametersRepo(db, logger.NewNop())

	latest, err := repo.Latest(context.Background(), nil)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil for empty table, got %+v", latest)
	}
}

func TestUpdateRequestRepo_TerminalTransitionGuard(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repos.NewUpdateRequestRepo(db, logger.NewNop())

	row := &types.UpdateRequest{
		ID:          uuid.New(),
		CallbackURL: "http://localhost/cb",
		Status:      types.UpdateStatusProcessing,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(ctx, nil, row); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := repo.MarkCompleted(ctx, nil, row.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if !ok {
		t.Fatalf("expected processing -> completed to succeed")
	}

	// Terminal rows never move again, in either direction.
	ok, err = repo.MarkFailed(ctx, nil, row.ID, time.Now().UTC(), "late failure")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if ok {
		t.Fatalf("expected completed -> failed to be rejected")
	}
	ok, err = repo.MarkCompleted(ctx, nil, row.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark completed again: %v", err)
	}
	if ok {
		t.Fatalf("expected a second completion to be rejected")
	}

	got, err := repo.GetByID(ctx, nil, row.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Status != types.UpdateStatusCompleted {
		t.Fatalf("expected status completed, got %q", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("expected no error message on completed row, got %q", got.ErrorMessage)
	}
}

func TestUserRepo_DuplicateUserID(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repos.NewUserRepo(db, logger.NewNop())

	inserted, err := repo.Create(ctx, nil, &types.User{ID: uuid.New(), UserID: "u1", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first create to win")
	}

	inserted, err = repo.Create(ctx, nil, &types.User{ID: uuid.New(), UserID: "u1", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate user_id to be rejected")
	}

	exists, err := repo.Exists(ctx, nil, "u1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected user to exist")
	}
}
