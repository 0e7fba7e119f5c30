// Package main replays a combat scenario through the decision core: one
// coordinator per scenario character, ticked against a simulated world.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/agent"
	"github.com/cory-johannsen/roagent/internal/config"
	"github.com/cory-johannsen/roagent/internal/game/ai"
	"github.com/cory-johannsen/roagent/internal/game/combo"
	"github.com/cory-johannsen/roagent/internal/game/dice"
	"github.com/cory-johannsen/roagent/internal/game/element"
	"github.com/cory-johannsen/roagent/internal/game/gamedata"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
	"github.com/cory-johannsen/roagent/internal/observability"
	"github.com/cory-johannsen/roagent/internal/scripting"
	"github.com/cory-johannsen/roagent/internal/server"
	"github.com/cory-johannsen/roagent/internal/sim"
	"github.com/cory-johannsen/roagent/internal/storage/postgres"
)

const journalBuffer = 4096

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/agentsim.yaml", "path to configuration file; empty = defaults and environment only")
	scenarioPath := flag.String("scenario", "", "scenario file; overrides agent.scenario")
	seed := flag.Uint64("seed", 0, "dice seed; overrides agent.seed and the scenario seed")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *scenarioPath != "" {
		cfg.Agent.Scenario = *scenarioPath
	}
	if *seed != 0 {
		cfg.Agent.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging, "agentsim")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	lc := server.NewLifecycle(logger)

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}
	lc.OnShutdown("tracing", shutdownTracing)

	if cfg.Agent.Scenario == "" {
		logger.Fatal("no scenario: set agent.scenario or pass -scenario")
	}
	scenario, err := sim.LoadScenario(cfg.Agent.Scenario)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}

	tables, err := gamedata.Load(cfg.Data.TablesDir)
	if err != nil {
		logger.Fatal("loading game tables", zap.Error(err))
	}
	for _, name := range tables.Fallbacks {
		logger.Warn("using embedded default table",
			zap.String("file", name),
			zap.Error(tables.Errors[name]),
		)
	}
	logger.Info("game tables loaded",
		zap.Int("skills", tables.Timing.Len()),
		zap.Int("area_skills", len(tables.AreaSkills)),
		zap.Int("cards", len(tables.Cards)),
		zap.Int("combos", len(tables.Combos)),
	)

	elements := element.NewResolver(nil)
	raceSize := racesize.NewResolverWithSizes(tables.WeaponSizes, tables.Cards)
	world := sim.NewWorld(scenario, sim.Options{
		Seed:     cfg.Agent.Seed,
		Elements: elements,
		RaceSize: raceSize,
		Timing:   tables.Timing,
		Logger:   logger.Named("sim"),
	})

	deps := ai.Deps{
		Elements:     elements,
		RaceSize:     raceSize,
		Weights:      cfg.Targeting,
		Planner:      cfg.AoE,
		AreaSkills:   tables.AreaSkills,
		Timing:       tables.Timing,
		Combos:       tables.Combos,
		ComboWeights: cfg.Combo,
		Clock:        world.Now,
		Logger:       logger.Named("ai"),
		Tracer:       observability.Tracer("ai"),
		OnComboFinished: func(id string, s combo.Summary) {
			logger.Info("combo finished",
				zap.String("character", id),
				zap.String("combo", s.ComboID),
				zap.Bool("completed", s.Completed),
				zap.Int("steps", s.StepsExecuted),
				zap.Int("damage", s.Damage),
			)
		},
	}

	if cfg.Data.ScriptsDir != "" {
		scripts, err := loadScripts(cfg, world, scenario.Seed, logger)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		deps.Scripts = scripts
		lc.OnShutdown("scripting", func(context.Context) error {
			scripts.Close()
			return nil
		})
	}

	if cfg.Database.Enabled {
		journal, closeDB, err := openJournal(ctx, cfg.Database, world, logger)
		if err != nil {
			logger.Fatal("opening decision journal", zap.Error(err))
		}
		lc.OnShutdown("postgres", closeDB)
		logDone := deps.OnComboFinished
		deps.OnDecision = journal.OnDecision
		deps.OnComboFinished = func(id string, s combo.Summary) {
			logDone(id, s)
			journal.OnComboFinished(id, s)
		}
		lc.Add("journal", journal)
	}

	registry, err := registerCharacters(world, cfg, deps)
	if err != nil {
		logger.Fatal("registering characters", zap.Error(err))
	}

	maxTicks := cfg.Agent.MaxTicks
	if maxTicks == 0 {
		maxTicks = scenario.MaxTicks
	}
	loop := agent.NewLoop(registry, world, cfg.Agent.TickInterval, maxTicks, logger.Named("agent"))
	lc.Add("agent", loop)

	logger.Info("agentsim starting",
		zap.String("scenario", scenario.Name),
		zap.Strings("characters", registry.IDs()),
		zap.Duration("startup", time.Since(start)),
	)
	runErr := lc.Run(ctx)

	res := world.Result()
	report(res, loop.Ticks())
	if runErr != nil {
		logger.Error("agentsim stopped with error", zap.Error(runErr))
		os.Exit(1)
	}
}

func loadScripts(cfg config.Config, world *sim.World, seed uint64, logger *zap.Logger) (*scripting.Manager, error) {
	src := dice.NewCryptoSource()
	if s := max(cfg.Agent.Seed, seed); s != 0 {
		src = dice.NewSeededSource(s + 1)
	}
	lg := logger.Named("lua")
	mgr := scripting.NewManager(dice.NewRoller(src, lg), lg)
	profiles, err := mgr.LoadProfiles(cfg.Data.ScriptsDir, cfg.Data.InstructionLimit)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	agent.BindScripts(mgr, world)
	logger.Info("scripts loaded", zap.String("dir", cfg.Data.ScriptsDir), zap.Strings("profiles", profiles))
	return mgr, nil
}

func openJournal(ctx context.Context, dbCfg config.DatabaseConfig, world *sim.World, logger *zap.Logger) (*agent.Journal, func(context.Context) error, error) {
	dbStart := time.Now()
	if err := postgres.MigrateUp(dbCfg.DSN()); err != nil {
		return nil, nil, fmt.Errorf("migrating: %w", err)
	}
	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected",
		zap.String("host", dbCfg.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	journal := agent.NewJournal(
		postgres.NewDecisionRepository(pool.DB()),
		postgres.NewComboRunRepository(pool.DB()),
		journalBuffer,
		world.Now,
		logger.Named("journal"),
	)
	return journal, func(context.Context) error {
		pool.Close()
		return nil
	}, nil
}

func registerCharacters(world *sim.World, cfg config.Config, deps ai.Deps) (*ai.Registry, error) {
	registry := ai.NewRegistry()
	for _, id := range world.CharacterIDs() {
		d := deps
		d.Profile = world.Profile(id)
		if d.Profile == "" {
			d.Profile = cfg.Agent.Profile
		}
		c, err := registry.Register(id, cfg.Coordinator, d)
		if err != nil {
			return nil, err
		}
		c.Timing().SetStaleCastGrace(cfg.Timing.StaleCastGrace)
		for _, tag := range world.QuestTags(id) {
			c.Targets().AddQuestTag(tag)
		}
	}
	return registry, nil
}

func report(res sim.Result, ticks int) {
	outcome := "loss"
	if res.Win {
		outcome = "win"
	}
	fmt.Fprintf(os.Stdout, "%s: %s after %d ticks (%s simulated), seed=%d kills=%d casts=%d interrupts=%d\n",
		res.Scenario, outcome, ticks, res.Elapsed, res.Seed, res.Kills, res.Casts, res.Interrupts)
	printTotals("damage by skill", res.DamageBySkill)
	printTotals("damage by character", res.DamageByCharacter)
	printTotals("damage taken", res.DamageTaken)
}

func printTotals(title string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(os.Stdout, "  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "    %-24s %d\n", k, m[k])
	}
}
