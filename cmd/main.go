package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/yungbote/banditserve-backend/internal/algorithm"
	"github.com/yungbote/banditserve-backend/internal/config"
	"github.com/yungbote/banditserve-backend/internal/db"
	"github.com/yungbote/banditserve-backend/internal/handlers"
	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
	"github.com/yungbote/banditserve-backend/internal/server"
	"github.com/yungbote/banditserve-backend/internal/services"
	"github.com/yungbote/banditserve-backend/internal/types"
	"github.com/yungbote/banditserve-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	updateWorkers := utils.GetEnvAsInt64("UPDATE_WORKERS", 2, log)
	snapshotEnabled := utils.GetEnvAsBool("SNAPSHOT_ENABLED", false, log)
	snapshotDir := utils.GetEnv("SNAPSHOT_DIR", "./snapshots", log)
	priorsPath := utils.GetEnv("PRIORS_PATH", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	actionRepo := repos.NewActionRepo(thePG, log)
	studyDataRepo := repos.NewStudyDataRepo(thePG, log)
	paramsRepo := repos.NewModelParametersRepo(thePG, log)
	updateRepo := repos.NewUpdateRequestRepo(thePG, log)

	// Sampler: seeded once at process start, shared by every draw.
	var sampler *algorithm.Sampler
	if seedStr := os.Getenv("RNG_SEED"); seedStr != "" {
		seed := uint64(utils.GetEnvAsInt64("RNG_SEED", 0, log))
		sampler = algorithm.NewSampler(seed)
		log.Info("Sampler seeded from RNG_SEED", "seed", seedStr)
	} else {
		sampler, err = algorithm.NewSamplerFromEntropy()
		if err != nil {
			log.Error("Could not seed sampler", "error", err)
			os.Exit(1)
		}
		log.Info("Sampler seeded from system entropy")
	}
	alg := algorithm.NewFlatProb(sampler)

	// Services
	log.Info("Setting up Services from main...")
	clock := utils.NewMonotonicClock()
	userService := services.NewUserService(thePG, log, userRepo)
	actionService := services.NewActionService(thePG, log, userRepo, actionRepo, paramsRepo, alg)
	outcomeService := services.NewOutcomeService(thePG, log, userRepo, studyDataRepo, alg)

	var bucketService services.BucketService
	if snapshotEnabled {
		bucketService, err = services.NewBucketService(log)
		if err != nil {
			log.Warn("Could not init BucketService, snapshots fall back to local dir", "error", err)
			bucketService = nil
		}
	}
	snapshotService := services.NewSnapshotService(thePG, log, userRepo, actionRepo, studyDataRepo, paramsRepo, updateRepo, bucketService, snapshotDir)
	notifier := services.NewUpdateNotifier(log)
	updateService := services.NewUpdateService(thePG, log, paramsRepo, studyDataRepo, updateRepo, alg, snapshotService, notifier, clock, updateWorkers, snapshotEnabled)

	// Prior parameters: only seeded when the history is empty, so restarts
	// never clobber learned parameters.
	if err := seedPriors(context.Background(), log, paramsRepo, clock, priorsPath); err != nil {
		log.Error("Could not seed prior model parameters", "error", err)
		os.Exit(1)
	}

	// Handlers
	userHandler := handlers.NewUserHandler(userService)
	actionHandler := handlers.NewActionHandler(actionService)
	outcomeHandler := handlers.NewOutcomeHandler(outcomeService)
	updateHandler := handlers.NewUpdateHandler(updateService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		UserHandler:    userHandler,
		ActionHandler:  actionHandler,
		OutcomeHandler: outcomeHandler,
		UpdateHandler:  updateHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func seedPriors(ctx context.Context, log *logger.Logger, paramsRepo repos.ModelParametersRepo, clock *utils.MonotonicClock, priorsPath string) error {
	count, err := paramsRepo.Count(ctx, nil)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Info("Model parameters already present, skipping prior seed", "rows", count)
		return nil
	}

	priors := config.DefaultPriors
	if priorsPath != "" {
		priors, err = config.LoadPriors(priorsPath)
		if err != nil {
			return err
		}
		log.Info("Loaded prior parameters from file", "path", priorsPath, "probability_of_action", priors.ProbabilityOfAction)
	} else {
		log.Info("Seeding default prior parameters", "probability_of_action", priors.ProbabilityOfAction)
	}

	return paramsRepo.Append(ctx, nil, &types.ModelParameters{
		ID:                  uuid.New(),
		ProbabilityOfAction: priors.ProbabilityOfAction,
		CreatedAt:           clock.Now(),
	})
}
