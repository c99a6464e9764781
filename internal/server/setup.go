package server

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/lecternapp/lectern/cms/service"
	"github.com/lecternapp/lectern/internal/cache"
	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/ratelimit"
	"github.com/lecternapp/lectern/internal/relstore"
	"github.com/lecternapp/lectern/internal/search"
	"github.com/lecternapp/lectern/internal/storage"
	"github.com/lecternapp/lectern/internal/syncqueue"
)

// Setup initializes the application and returns the App instance along with
// the sync queue (which must be shut down when the server stops).
func Setup() (*App, *syncqueue.Queue) {
	conf := config.SetupConfig()

	sanitizer := service.NewSanitizer(service.NewPolicy())
	renderingService := service.NewRenderingService(sanitizer)

	index := search.NewIndex()

	workerCount := conf.SyncWorkers
	if workerCount == 0 {
		workerCount = runtime.NumCPU()
	}
	queue := syncqueue.New(workerCount, func(job syncqueue.Job) error {
		switch job.Op {
		case syncqueue.OpUpsert:
			index.Upsert(job.Doc)
		case syncqueue.OpDelete:
			index.Remove(job.Slug)
		default:
			return fmt.Errorf("unknown sync op %d", job.Op)
		}
		return nil
	})
	slog.Info("sync queue initialized", "workers", workerCount)

	store, err := storage.NewArticleStore(conf.ArticleRoot, storage.Options{
		Cache:           cache.New(cache.NewMemoryBackend(), conf.CacheTTL),
		Limiter:         ratelimit.New(ratelimit.NewMemoryStore()),
		Scheduler:       queue,
		RateLimitMax:    conf.RateLimitMax,
		RateLimitWindow: conf.RateLimitWindow,
	})
	check(err)

	rel, err := relstore.Open(conf.DatabaseFile, conf.CookieSecret, conf.CookieExpiry)
	check(err)

	articleService := service.NewArticleService(store, sanitizer)

	return &App{
		Articles:  articleService,
		Rendering: renderingService,
		Search:    index,
		Rel:       rel,
		Config:    conf,
	}, queue
}

func check(err error) {
	if err != nil {
		slog.Error("setup failed", "error", err)
		os.Exit(1)
	}
}
