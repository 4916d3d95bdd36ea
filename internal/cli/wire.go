package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quizmaster/internal/app"
	"quizmaster/internal/badges"
	"quizmaster/internal/config"
	"quizmaster/internal/domain"
	"quizmaster/internal/events"
	"quizmaster/internal/importer"
	"quizmaster/internal/infra/memory"
	"quizmaster/internal/infra/postgres"
	infraredis "quizmaster/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// runtime holds the backing stores selected by the configuration. Postgres
// wins over Redis, which wins over memory.
type runtime struct {
	cfg       config.Config
	log       *logrus.Logger
	importer  *importer.Importer
	redis     *redis.Client
	pool      *pgxpool.Pool
	db        *bun.DB
	publisher events.Publisher
	service   *app.QuizService
}

func openRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := config.NewLogger(cfg.Log, nil)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, importer: importer.New(log)}
	if err := rt.connect(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.buildService(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// loadConfig falls back to defaults when no config file exists at path.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if isNotExist(err) {
		return config.Default(), nil
	}
	return cfg, fmt.Errorf("load config %s: %w", path, err)
}

func (rt *runtime) connect(ctx context.Context) error {
	if rt.cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     rt.cfg.Redis.Addr,
			Password: rt.cfg.Redis.Password,
			DB:       rt.cfg.Redis.DB,
		})
	}
	if rt.cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, rt.cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		rt.pool = pool
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(rt.cfg.Postgres.URL)))
		rt.db = bun.NewDB(sqldb, pgdialect.New())
	}
	return nil
}

func (rt *runtime) buildService() error {
	cfg := rt.cfg
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	switch {
	case rt.pool != nil:
		loader = postgres.NewQuizLoader(rt.pool, rt.importer)
	case cfg.Quiz.Dir != "":
		loader = memory.NewDirQuizLoader(cfg.Quiz.Dir, rt.importer, rt.log)
	}

	var quizRepo app.QuizRepository
	var store app.SessionRepository
	var history app.HistoryRepository
	if rt.redis != nil {
		quizRepo = infraredis.NewQuizRepository(rt.redis, loader, quizTTL)
		store = infraredis.NewSessionStore(rt.redis, redisTTL)
		history = infraredis.NewHistoryStore(rt.redis, rt.log)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore()
		history = memory.NewHistoryStore()
	}
	if rt.db != nil {
		history = postgres.NewHistoryStore(rt.db)
	}

	defs := badges.Default()
	if cfg.Badges.Path != "" {
		loaded, err := badges.LoadFile(cfg.Badges.Path)
		if err != nil {
			return fmt.Errorf("load badges: %w", err)
		}
		defs = loaded
	}

	publisher, err := config.NewEventPublisher(cfg.Events, rt.log)
	if err != nil {
		return err
	}
	rt.publisher = publisher

	rt.service = app.NewQuizService(store, quizRepo, history,
		app.WithLogger(rt.log),
		app.WithSettings(settingsFromConfig(cfg.Session)),
		app.WithBadges(badges.NewEngine(defs, rt.log)),
		app.WithPublisher(publisher),
	)
	return nil
}

func settingsFromConfig(s config.Session) app.Settings {
	settings := app.DefaultSettings()
	settings.FeedbackDelay = config.TTLDuration(s.FeedbackDelay, settings.FeedbackDelay)
	settings.AdvanceDelay = config.TTLDuration(s.AdvanceDelay, settings.AdvanceDelay)
	if s.AutoAdvance != nil {
		settings.AutoAdvance = *s.AutoAdvance
	}
	if s.ErrorSessions > 0 {
		settings.ErrorSessions = s.ErrorSessions
	}
	settings.Presets = map[domain.Mode]int{
		domain.ModePresetShort:  s.Presets.Short,
		domain.ModePresetMedium: s.Presets.Medium,
		domain.ModePresetLong:   s.Presets.Long,
	}
	return settings
}

func (rt *runtime) Close() {
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			rt.log.WithError(err).Warn("close publisher")
		}
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
}

// sampleQuizzes is served when neither Postgres nor a quiz directory is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:    "demo",
			Title: "Demo",
			Questions: []domain.Question{
				{ID: "q_demo_0", Type: domain.TypeBoolean, Text: "Go has goroutines.", Explanation: "They are lightweight threads.",
					Answer: domain.BooleanKey{Value: true}},
				{ID: "q_demo_1", Type: domain.TypeSingleChoice, Text: "Which keyword starts a goroutine?", Explanation: "The go statement.",
					Category: "syntax", Answer: domain.ChoiceKey{Value: "go"}},
				{ID: "q_demo_2", Type: domain.TypeReorder, Text: "Order the build steps.", Explanation: "Fetch, compile, link.",
					Items: []string{"fetch", "compile", "link"}, Answer: domain.SequenceKey{Items: []string{"fetch", "compile", "link"}}},
			},
			DummyAnswers: map[string][]string{"syntax": {"defer", "func", "chan"}},
		},
	}
}
