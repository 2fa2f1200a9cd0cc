package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/database"
	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/export"
	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/metrics"
	"ai-diet-planner/internal/planner"
	"ai-diet-planner/internal/prefs"
	"ai-diet-planner/internal/render"
	"ai-diet-planner/internal/shared"
)

// Surfaces that can trigger a generation.
const (
	SurfaceWeb      = "web"
	SurfaceAPI      = "api"
	SurfaceCLI      = "cli"
	SurfaceTelegram = "telegram"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	db           *database.DB
	requester    *planner.Requester
	metricsStore *metrics.Store
	prefsStore   *prefs.Store
	exporter     *export.Exporter
}

// New wires an App around an open database and a text generator.
func New(cfg *config.Config, db *database.DB, textGen llm.TextGenerator) *App {
	return &App{
		cfg:          cfg,
		db:           db,
		requester:    planner.NewRequester(textGen),
		metricsStore: metrics.NewStore(db.SQL),
		prefsStore:   prefs.NewStore(db.SQL),
		exporter:     export.New(),
	}
}

// Open opens the database at cfg.DatabasePath and picks the transport named
// by cfg.GeminiTransport.
func Open(cfg *config.Config) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(cfg, db, NewTextGenerator(cfg)), nil
}

// NewTextGenerator returns the Gemini client for the configured transport.
func NewTextGenerator(cfg *config.Config) llm.TextGenerator {
	if cfg.GeminiTransport == config.TransportSDK {
		return llm.NewGeminiClient(cfg)
	}
	return llm.NewRESTClient(cfg)
}

func (a *App) Config() *config.Config     { return a.cfg }
func (a *App) Prefs() *prefs.Store        { return a.prefsStore }
func (a *App) Metrics() *metrics.Store    { return a.metricsStore }
func (a *App) Exporter() *export.Exporter { return a.exporter }

// Close closes the database connection.
func (a *App) Close() error {
	return a.db.Close()
}

// GeneratePlan validates profile, requests a plan with apiKey and records the
// outcome. Errors are always *shared.Error.
func (a *App) GeneratePlan(ctx context.Context, surface string, profile diet.UserProfile, apiKey string) (*diet.Plan, error) {
	if err := profile.Validate(); err != nil {
		return nil, shared.NewError(shared.KindValidationIncomplete, err)
	}

	start := time.Now()
	res, err := a.requester.RequestPlan(ctx, profile, apiKey)

	meta := res.Meta
	meta.Surface = surface
	if meta.AgentName == "" {
		meta.AgentName = planner.AgentName
		meta.Latency = time.Since(start)
	}

	if err != nil {
		var sErr *shared.Error
		if !errors.As(err, &sErr) {
			sErr = shared.NewError(shared.KindUpstream, err)
		}
		log.Warn().Err(err).Str("surface", surface).Str("kind", sErr.Kind.String()).Msg("Plan generation failed")

		if sErr.Kind != shared.KindMissingCredential {
			if rErr := a.metricsStore.RecordFailure(ctx, meta, sErr.Kind); rErr != nil {
				log.Warn().Err(rErr).Msg("Failed to record metrics")
			}
		}
		return nil, sErr
	}

	log.Info().
		Str("surface", surface).
		Str("plan", res.Plan.DisplayName()).
		Int("meals", len(res.Plan.Meals)).
		Int("tokens", meta.Usage.TotalTokens).
		Dur("latency", meta.Latency).
		Msg("Plan generated")

	if err := a.metricsStore.RecordMeta(ctx, meta); err != nil {
		log.Warn().Err(err).Msg("Failed to record metrics")
	}
	return res.Plan, nil
}

// PrintPlan writes a plain text rendition of plan.
func PrintPlan(w io.Writer, plan *diet.Plan) {
	split := render.NewMacroSplit(plan.DailyTotals)

	fmt.Fprintf(w, "=== %s ===\n", strings.ToUpper(plan.DisplayName()))
	if plan.Overview != "" {
		fmt.Fprintf(w, "%s\n", plan.Overview)
	}

	t := plan.DailyTotals
	fmt.Fprintf(w, "\nDaily totals: %s kcal | %sg protein | %sg carbs | %sg fat\n", t.Calories, t.Protein, t.Carbs, t.Fat)
	fmt.Fprintf(w, "Macro split:  protein %d%% | carbs %d%% | fat %d%%\n", split.Percents[0], split.Percents[1], split.Percents[2])

	fmt.Fprintln(w, "\n=== MEALS ===")
	list := render.DayList(plan.Meals)
	if list.Empty {
		fmt.Fprintln(w, render.EmptyMessage)
	}
	for _, m := range list.Meals {
		fmt.Fprintf(w, "\n%s", m.Name)
		if m.Time != "" {
			fmt.Fprintf(w, " (%s)", m.Time)
		}
		fmt.Fprintf(w, ": %s kcal\n", m.Totals.Calories)
		for _, f := range m.Foods {
			fmt.Fprintf(w, "  - %s, %s: %s kcal, P %sg, C %sg, F %sg\n",
				f.Item, f.Portion, f.Macros.Calories, f.Macros.Protein, f.Macros.Carbs, f.Macros.Fat)
		}
	}

	if len(plan.Tips) > 0 {
		fmt.Fprintln(w, "\n=== TIPS ===")
		for _, tip := range plan.Tips {
			fmt.Fprintf(w, "- %s\n", tip)
		}
	}
	if len(plan.ShoppingList) > 0 {
		fmt.Fprintln(w, "\n=== SHOPPING LIST ===")
		for _, item := range plan.ShoppingList {
			fmt.Fprintf(w, "- %s\n", item)
		}
	}
}

// SetupLogging points the global logger at stderr at the named level.
// Unknown levels fall back to info.
func SetupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}
