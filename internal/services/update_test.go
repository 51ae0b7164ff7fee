package services_test

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/google/uuid"

	"github.com/yungbote/banditserve-backend/internal/algorithm"
	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
	"github.com/yungbote/banditserve-backend/internal/repos/testutil"
	"github.com/yungbote/banditserve-backend/internal/services"
	"github.com/yungbote/banditserve-backend/internal/types"
	"github.com/yungbote/banditserve-backend/internal/utils"
)

type callbackRecorder struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (cr *callbackRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		cr.mu.Lock()
		cr.payloads = append(cr.payloads, payload)
		cr.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (cr *callbackRecorder) all() []map[string]any {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := make([]map[string]any, len(cr.payloads))
	copy(out, cr.payloads)
	return out
}

func newUpdateService(tb testing.TB, db *gorm.DB, snapshotEnabled bool, snapshotDir string) services.UpdateService {
	tb.Helper()
	log := logger.NewNop()
	alg := algorithm.NewFlatProb(algorithm.NewSampler(1))
	userRepo := repos.NewUserRepo(db, log)
	actionRepo := repos.NewActionRepo(db, log)
	studyDataRepo := repos.NewStudyDataRepo(db, log)
	paramsRepo := repos.NewModelParametersRepo(db, log)
	updateRepo := repos.NewUpdateRequestRepo(db, log)
	snapshot := services.NewSnapshotService(db, log, userRepo, actionRepo, studyDataRepo, paramsRepo, updateRepo, nil, snapshotDir)
	notifier := services.NewUpdateNotifier(log)
	return services.NewUpdateService(db, log, paramsRepo, studyDataRepo, updateRepo, alg, snapshot, notifier, utils.NewMonotonicClock(), 1, snapshotEnabled)
}

func seedStudyData(tb testing.TB, ctx context.Context, db *gorm.DB, userID string, decisionIdx int, temperature, reward float64) {
	tb.Helper()
	row := &types.StudyData{
		ID:          uuid.New(),
		UserID:      userID,
		DecisionIdx: decisionIdx,
		State:       datatypes.JSON([]byte(`{"temperature":` + jsonNumber(temperature) + `}`)),
		RawContext:  datatypes.JSON([]byte(`{"temperature":` + jsonNumber(temperature) + `}`)),
		Outcome:     datatypes.JSON([]byte(`{"clicks":` + jsonNumber(reward) + `}`)),
		Action:      1,
		ActionProb:  0.5,
		Reward:      reward,
		Timestamp:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed study data: %v", err)
	}
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestUpdateService_CompletesAndAppendsParameters(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, ctx, db, "u1")
	testutil.SeedModelParameters(t, ctx, db, 0.5, time.Now().UTC())
	seedStudyData(t, ctx, db, "u1", 0, 25.0, 4.0)

	recorder := &callbackRecorder{}
	cbServer := httptest.NewServer(recorder.handler())
	defer cbServer.Close()

	svc := newUpdateService(t, db, false, "")
	row, err := svc.Request(ctx, services.UpdateRequestInput{
		Timestamp:   strPtr("2024-01-01T01:00:00Z"),
		CallbackURL: strPtr(cbServer.URL),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if row.Status != types.UpdateStatusProcessing {
		t.Fatalf("expected initial status processing, got %q", row.Status)
	}
	svc.Wait()

	// Mean temperature 25 < 30, so the probability steps up by 0.01.
	latest, err := repos.NewModelParametersRepo(db, logger.NewNop()).Latest(ctx, nil)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if math.Abs(latest.ProbabilityOfAction-0.51) > 1e-9 {
		t.Fatalf("expected new probability 0.51, got %v", latest.ProbabilityOfAction)
	}

	got, err := svc.Get(ctx, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.UpdateStatusCompleted {
		t.Fatalf("expected status completed, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	payloads := recorder.all()
	if len(payloads) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(payloads))
	}
	if payloads[0]["status"] != types.UpdateStatusCompleted {
		t.Fatalf("expected completed callback, got %v", payloads[0])
	}
	if payloads[0]["update_id"] != row.ID.String() {
		t.Fatalf("expected callback to carry update_id %s, got %v", row.ID, payloads[0]["update_id"])
	}
}

func TestUpdateService_FailsWithoutStudyData(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.SeedModelParameters(t, ctx, db, 0.5, time.Now().UTC())

	recorder := &callbackRecorder{}
	cbServer := httptest.NewServer(recorder.handler())
	defer cbServer.Close()

	svc := newUpdateService(t, db, false, "")
	row, err := svc.Request(ctx, services.UpdateRequestInput{
		Timestamp:   strPtr("2024-01-01T01:00:00Z"),
		CallbackURL: strPtr(cbServer.URL),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	svc.Wait()

	got, err := svc.Get(ctx, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.UpdateStatusFailed {
		t.Fatalf("expected status failed, got %q", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatalf("expected an error message on the failed row")
	}

	// No new parameters may appear on a failed refit.
	count, err := repos.NewModelParametersRepo(db, logger.NewNop()).Count(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected parameter history unchanged, got %d rows", count)
	}

	payloads := recorder.all()
	if len(payloads) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(payloads))
	}
	if payloads[0]["status"] != types.UpdateStatusFailed {
		t.Fatalf("expected failed callback, got %v", payloads[0])
	}
	if payloads[0]["message"] == "" {
		t.Fatalf("expected failure callback to carry a message")
	}
}

func TestUpdateService_CallbackFailureDoesNotChangeStatus(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.SeedModelParameters(t, ctx, db, 0.5, time.Now().UTC())
	seedStudyData(t, ctx, db, "u1", 0, 25.0, 4.0)

	// Callback endpoint that always refuses.
	cbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer cbServer.Close()

	svc := newUpdateService(t, db, false, "")
	row, err := svc.Request(ctx, services.UpdateRequestInput{
		Timestamp:   strPtr("2024-01-01T01:00:00Z"),
		CallbackURL: strPtr(cbServer.URL),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	svc.Wait()

	got, err := svc.Get(ctx, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.UpdateStatusCompleted {
		t.Fatalf("the model update succeeded; delivery failure must not change status, got %q", got.Status)
	}
}

func TestUpdateService_SnapshotWrittenBeforeUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, ctx, db, "u1")
	testutil.SeedModelParameters(t, ctx, db, 0.5, time.Now().UTC())
	seedStudyData(t, ctx, db, "u1", 0, 25.0, 4.0)

	recorder := &callbackRecorder{}
	cbServer := httptest.NewServer(recorder.handler())
	defer cbServer.Close()

	dir := t.TempDir()
	svc := newUpdateService(t, db, true, dir)
	if _, err := svc.Request(ctx, services.UpdateRequestInput{
		Timestamp:   strPtr("2024-01-01T01:00:00Z"),
		CallbackURL: strPtr(cbServer.URL),
	}); err != nil {
		t.Fatalf("request: %v", err)
	}
	svc.Wait()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read snapshot dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one snapshot file, got %d", len(entries))
	}

	raw, err := os.ReadFile(dir + "/" + entries[0].Name())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var export map[string]any
	if err := json.Unmarshal(raw, &export); err != nil {
		t.Fatalf("snapshot is not valid json: %v", err)
	}
	for _, key := range []string{"users", "actions", "study_data", "model_parameters", "update_requests"} {
		if _, ok := export[key]; !ok {
			t.Fatalf("snapshot missing table %q", key)
		}
	}
}

func TestUpdateService_RequestValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newUpdateService(t, db, false, "")
	ctx := context.Background()

	if _, err := svc.Request(ctx, services.UpdateRequestInput{CallbackURL: strPtr("http://localhost/cb")}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error for missing timestamp, got %v", err)
	}
	if _, err := svc.Request(ctx, services.UpdateRequestInput{Timestamp: strPtr("x")}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error for missing callback_url, got %v", err)
	}
	if _, err := svc.Request(ctx, services.UpdateRequestInput{Timestamp: strPtr("x"), CallbackURL: strPtr("not a url")}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error for malformed callback_url, got %v", err)
	}
}

func TestUpdateService_GetUnknownID(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newUpdateService(t, db, false, "")

	_, err := svc.Get(context.Background(), uuid.New())
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
