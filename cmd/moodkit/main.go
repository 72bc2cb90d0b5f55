package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	authgin "github.com/PaulFidika/moodkit/adapters/gin"
	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/config"
	"github.com/PaulFidika/moodkit/core"
	"github.com/PaulFidika/moodkit/identity"
	jwtkit "github.com/PaulFidika/moodkit/jwt"
	migrations "github.com/PaulFidika/moodkit/migrations/postgres"
	"github.com/PaulFidika/moodkit/moods"
	oidckit "github.com/PaulFidika/moodkit/oidc"
	memorylimiter "github.com/PaulFidika/moodkit/ratelimit/memory"
	redislimiter "github.com/PaulFidika/moodkit/ratelimit/redis"
	memorystore "github.com/PaulFidika/moodkit/storage/memory"
	redisstore "github.com/PaulFidika/moodkit/storage/redis"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config generation returned an error: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("moodkit exited with error")
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Production {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)
	return log
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := migrations.Migrate(ctx, pool, log); err != nil {
		return err
	}

	keyStore, limiter, closeShared, err := sharedState(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeShared()

	keys, err := jwtkit.NewAutoKeySource(jwtkit.AutoKeyOptions{
		MountDir:   cfg.KeysDir,
		DevDir:     cfg.DevKeysDir,
		Production: cfg.Production,
		Log:        log,
	})
	if err != nil {
		return err
	}
	tokens := jwtkit.NewAccessTokens(keys, cfg.TokenIssuer, cfg.TokenAudience, cfg.TokenTTL)

	var google core.IDTokenVerifier
	var prewarm *cron.Cron
	if acc := cfg.Accept(); acc.Enabled() {
		v := acc.NewVerifier(keyStore, log)
		google = v
		go func() {
			if _, err := v.Keys().Keys(ctx); err != nil {
				log.WithError(err).Warn("initial signing key fetch failed")
			}
		}()
		prewarm, err = schedulePrewarm(cfg.KeyPrewarmSchedule, v.Keys(), log)
		if err != nil {
			return err
		}
	} else {
		log.Warn("google sign-in disabled: no client id configured")
	}

	svc := core.NewService(identity.NewStore(pool, cfg.DatabaseSchema), google, tokens, core.WithLogger(log))

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	authgin.Mount(r, authgin.Deps{
		Auth:    svc,
		Moods:   moods.NewStore(pool, cfg.DatabaseSchema),
		Limiter: limiter,
		Now:     time.Now,
	})

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("address", cfg.Address).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if prewarm != nil {
		prewarm.Start()
		g.Go(func() error {
			<-gctx.Done()
			<-prewarm.Stop().Done()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sharedState picks Redis-backed key documents and rate limits when a
// Redis URL is configured and in-process ones otherwise.
func sharedState(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (oidckit.KeySetStore, ginutil.RateLimiter, func(), error) {
	limits := map[string]int{
		ginutil.RLAuthRegister: cfg.RateLimitPerMinute,
		ginutil.RLAuthLogin:    cfg.RateLimitPerMinute,
		ginutil.RLAuthGoogle:   cfg.RateLimitPerMinute,
	}

	if cfg.RedisURL == "" {
		ml := map[string]memorylimiter.Limit{}
		for bucket, n := range limits {
			ml[bucket] = memorylimiter.Limit{Limit: n, Window: time.Minute}
		}
		limiter := memorylimiter.New(ml)
		store := memorystore.NewKeySetStore(cfg.KeyMaxStale + cfg.KeyCacheTTL)
		sweep := time.NewTicker(time.Minute)
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-sweep.C:
					limiter.Sweep()
				case <-done:
					return
				}
			}
		}()
		return store, limiter, func() {
			sweep.Stop()
			close(done)
			_ = store.Close()
		}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("using redis for shared key documents and rate limits")
	rl := map[string]redislimiter.Limit{}
	for bucket, n := range limits {
		rl[bucket] = redislimiter.Limit{Limit: n, Window: time.Minute}
	}
	return redisstore.NewKeySetStore(rdb, "", cfg.KeyMaxStale+cfg.KeyCacheTTL), redislimiter.New(rdb, rl), func() { _ = rdb.Close() }, nil
}

// schedulePrewarm refreshes Google's signing keys on the cron schedule so request-path
// verifications rarely wait on a fetch.
func schedulePrewarm(schedule string, keys *oidckit.KeyCache, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		prewarmKeys(ctx, keys, log)
	})
	if err != nil {
		return nil, fmt.Errorf("key prewarm schedule %q: %w", schedule, err)
	}
	return c, nil
}

// prewarmKeys forces a refresh. Refresh falls back to cached keys when the
// provider is down, so the outcome is read from the cache stats.
func prewarmKeys(ctx context.Context, keys *oidckit.KeyCache, log logrus.FieldLogger) {
	_, err := keys.Refresh(ctx)
	st := keys.Stats()
	fields := logrus.Fields{"keys": st.KeyCount, "expires_at": st.ExpiresAt}
	switch {
	case err != nil:
		log.WithError(err).Warn("signing key prewarm failed")
	case st.ConsecutiveFailures > 0:
		fields["failures"] = st.ConsecutiveFailures
		fields["stale"] = st.Stale
		fields["retry_at"] = st.RetryAt
		log.WithFields(fields).Warn("signing key prewarm failed, serving cached keys")
	default:
		log.WithFields(fields).Debug("signing keys prewarmed")
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}
