package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlexTo8319/ukraine-event-intelligence/internal/common"
	"github.com/AlexTo8319/ukraine-event-intelligence/models"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/caching"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/dates"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/dupes"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/engine"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/fetcher"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/resolver"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/search"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/store"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/translate"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func newLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func loadSetup(c *cli.Context, logger *slog.Logger) (*models.Config, *policy.Policy) {
	config, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	policyPath := c.String("policy")
	if policyPath == "" {
		policyPath = config.PolicyFile
	}
	pol, err := policy.Load(policyPath)
	if err != nil {
		logger.Error("failed to load content policy", "error", err)
		os.Exit(2)
	}
	return config, pol
}

func openStore(c *cli.Context, pol *policy.Policy, logger *slog.Logger) *store.DB {
	database, err := store.Open(c.String("db"), pol)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	return database
}

// loadInputEvents reads records from a JSON or YAML file when --input is
// given, otherwise from the database.
func loadInputEvents(c *cli.Context, database *store.DB, logger *slog.Logger) ([]models.Event, error) {
	if !c.IsSet("input") {
		return database.ListAll(c.Int("limit"))
	}

	path := c.String("input")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var events []models.Event
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &events)
	default:
		err = json.Unmarshal(data, &events)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}

	clean, invalid := common.SanitizeEvents(events)
	for _, bad := range invalid {
		logger.Warn("skipping record with invalid URL", "url", bad)
	}
	return clean, nil
}

// dropStoredDuplicates filters file-supplied records that duplicate an
// already-stored event under a different URL. The ingest profile is
// stricter than the batch-cleanup one: a false positive here silently
// drops a new record, so only near-certain matches are skipped.
func dropStoredDuplicates(c *cli.Context, config *models.Config, pol *policy.Policy,
	database *store.DB, events []models.Event, logger *slog.Logger) []models.Event {
	stored, err := database.ListAll(c.Int("limit"))
	if err != nil || len(stored) == 0 {
		return events
	}
	detector := dupes.New(pol, config.Dupes.IngestSimilarity, config.Dupes.DateToleranceDays)

	kept := make([]models.Event, 0, len(events))
	for _, e := range events {
		dupURL := ""
		for _, s := range stored {
			if s.URL == e.URL {
				continue // same row, Upsert handles it
			}
			if detector.IsDuplicate(e, s) {
				dupURL = s.URL
				break
			}
		}
		if dupURL != "" {
			logger.Warn("skipping input record, duplicates a stored event",
				"url", e.URL, "stored_url", dupURL)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// VerifyAction runs the verification pipeline over stored (or supplied)
// records and, unless --dry-run is set, applies the resulting updates and
// removals to the database.
func VerifyAction(c *cli.Context) error {
	logger := newLogger(c)
	startTime := time.Now()

	config, pol := loadSetup(c, logger)
	if c.IsSet("workers") {
		config.Workers = c.Int("workers")
	}

	database := openStore(c, pol, logger)
	defer database.Close()

	events, err := loadInputEvents(c, database, logger)
	if err != nil {
		logger.Error("failed to load records", "error", err)
		os.Exit(2)
	}
	if c.IsSet("input") {
		events = dropStoredDuplicates(c, config, pol, database, events, logger)
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "No records to verify")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  event-intel verify --db events.db`)
		fmt.Fprintln(os.Stderr, `  event-intel verify --input events.json --dry-run`)
		os.Exit(1)
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithUserAgent(config.Fetch.UserAgent),
		fetcher.WithHostRPS(config.Fetch.HostRPS),
	}
	if config.Fetch.CacheDir != "" {
		maxAge, err := time.ParseDuration(config.Fetch.CacheMaxAge)
		if err != nil {
			maxAge = 0
		}
		cache, err := caching.NewCache(config.Fetch.CacheDir, maxAge)
		if err != nil {
			logger.Warn("response cache disabled", "dir", config.Fetch.CacheDir, "error", err)
		} else {
			fetchOpts = append(fetchOpts, fetcher.WithCache(cache))
		}
	}
	fetch := fetcher.New(pol, config.FetchTimeout(), config.Fetch.MaxRedirects, fetchOpts...)
	extractor := dates.New(config.Dates.YearsBack, config.Dates.YearsForward)
	res := resolver.New(fetch, pol, extractor, logger,
		config.Resolver.MaxDepth, config.Resolver.MinLinkScore, config.Resolver.TopK)

	var searchSvc search.Service
	if key := os.Getenv(config.Search.APIKeyEnv); key != "" {
		searchSvc = search.NewClient(config.Search.Endpoint, key, config.FetchTimeout())
	} else {
		logger.Warn("search fallback disabled, API key not set", "env", config.Search.APIKeyEnv)
	}

	var translator translate.Translator
	if key := os.Getenv(config.Translate.APIKeyEnv); key != "" {
		translator = translate.NewClient(config.Translate.Endpoint, key,
			config.Translate.Model, config.FetchTimeout())
	} else {
		logger.Warn("translation pass disabled, API key not set", "env", config.Translate.APIKeyEnv)
	}

	detector := dupes.New(pol, config.Dupes.CleanupSimilarity, config.Dupes.DateToleranceDays)

	eng := engine.New(pol, res, fetch, searchSvc, translator, detector, logger, engine.Options{
		Workers:           config.Workers,
		MaxDepth:          config.Resolver.MaxDepth,
		MinDateConfidence: config.Dates.MinConfidence,
		MultiDayDays:      config.Dates.MultiDayDays,
		MaxSearchQueries:  config.Search.MaxQueries,
		MaxSearchResults:  config.Search.MaxResults,
	})

	outcomes := eng.VerifyBatch(context.Background(), events)

	stats := Stats{
		TotalRecords:     len(events),
		TotalTimeSeconds: time.Since(startTime).Seconds(),
	}
	finalOutput := &FinalOutput{}
	dryRun := c.Bool("dry-run")

	for _, out := range outcomes {
		summary := BuildSummary(out)
		switch out.Action {
		case models.ActionKeep:
			stats.Kept++
		case models.ActionUpdate:
			stats.Updated++
			if !dryRun {
				corrected := out.Corrections.Apply(out.Event)
				// URL is the upsert key: a corrected URL means the old row
				// has to go first.
				if out.Corrections.URL != "" && out.Event.ID != 0 {
					if err := database.Delete(out.Event.ID); err != nil {
						logger.Warn("failed to delete superseded row", "id", out.Event.ID, "error", err)
					}
					corrected.ID = 0
				}
				if _, err := database.Upsert(corrected); err != nil {
					logger.Error("failed to apply update", "url", out.Event.URL, "error", err)
					summary.ApplyError = err.Error()
					stats.Failed++
				}
			}
		case models.ActionRemove:
			stats.Removed++
			if !dryRun && out.Event.ID != 0 {
				if err := database.Delete(out.Event.ID); err != nil {
					logger.Error("failed to remove record", "id", out.Event.ID, "error", err)
					summary.ApplyError = err.Error()
					stats.Failed++
				}
			}
		}
		finalOutput.Results = append(finalOutput.Results, summary)
	}

	finalOutput.Stats = stats
	finalOutput.DryRun = dryRun
	if stats.Failed > 0 {
		finalOutput.Status = "partial_failure"
	} else {
		finalOutput.Status = "success"
	}

	if err := printOutput(c, finalOutput); err != nil {
		logger.Error("failed to marshal final output", "error", err)
		os.Exit(2)
	}

	if stats.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// ListAction prints the stored records.
func ListAction(c *cli.Context) error {
	logger := newLogger(c)
	_, pol := loadSetup(c, logger)
	database := openStore(c, pol, logger)
	defer database.Close()

	events, err := database.ListAll(c.Int("limit"))
	if err != nil {
		logger.Error("failed to list records", "error", err)
		os.Exit(2)
	}
	return printOutput(c, events)
}

// PurgeAction deletes stored records that the current content policy
// rejects. It is the offline counterpart of the save-time policy gate:
// records saved under an older policy get swept out here.
func PurgeAction(c *cli.Context) error {
	logger := newLogger(c)
	_, pol := loadSetup(c, logger)
	database := openStore(c, pol, logger)
	defer database.Close()

	events, err := database.ListAll(c.Int("limit"))
	if err != nil {
		logger.Error("failed to list records", "error", err)
		os.Exit(2)
	}

	dryRun := c.Bool("dry-run")
	purged := []PurgedRecord{}
	for _, e := range events {
		reason := ""
		if pol.IsBlocked(e.URL) {
			reason = "blocked domain"
		} else if ok, why := pol.CheckRelevance(e.Title, e.Summary); !ok {
			reason = why
		}
		if reason == "" {
			continue
		}

		if !dryRun {
			if err := database.Delete(e.ID); err != nil {
				logger.Error("failed to purge record", "id", e.ID, "error", err)
				continue
			}
		}
		purged = append(purged, PurgedRecord{ID: e.ID, URL: e.URL, Title: e.Title, Reason: reason})
		logger.Info("Record purged", "id", e.ID, "url", e.URL, "reason", reason, "dry_run", dryRun)
	}

	return printOutput(c, map[string]any{
		"status":  "success",
		"dry_run": dryRun,
		"scanned": len(events),
		"purged":  purged,
	})
}

func printOutput(c *cli.Context, v any) error {
	var data []byte
	var err error
	if strings.ToLower(c.String("format")) == "yaml" {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
