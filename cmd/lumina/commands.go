package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/lumina/ai/openai"
	"github.com/poiesic/lumina/chat"
	"github.com/poiesic/lumina/config"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/ingestion"
	"github.com/poiesic/lumina/queue"
	"github.com/poiesic/lumina/reindex"
	"github.com/poiesic/lumina/search"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// openQueue connects to Redis unless the in-process queue was requested.
func openQueue(ctx context.Context, c *cli.Context, cfg *config.Config) (queue.Queue, error) {
	opts := []queue.Option{queue.WithMaxAttempts(cfg.MaxAttempts)}
	if c.Bool("memory-queue") {
		q, err := queue.NewMemoryQueue(opts...)
		if err != nil {
			return nil, err
		}
		return q, nil
	}

	url := cfg.RedisURL
	if c.String("redis-url") != "" {
		url = c.String("redis-url")
	}
	q, err := queue.DialRedis(ctx, url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}
	if n, err := q.Recover(ctx); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to recover in-flight jobs: %w", err)
	} else if n > 0 {
		fmt.Fprintf(os.Stderr, "Requeued %d interrupted jobs\n", n)
	}
	return q, nil
}

// serveCommand runs the HTTP API and the ingestion workers in one process,
// since both need the same store and vector index.
func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.String("listen") != "" {
		cfg.ListenAddr = c.String("listen")
	}
	if c.Int("concurrency") > 0 {
		cfg.WorkerConcurrency = c.Int("concurrency")
	}

	ctx, stop := signalContext(c)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := openQueue(ctx, c, cfg)
	if err != nil {
		return err
	}
	defer jobs.Close()

	chunker, err := cfg.Chunker()
	if err != nil {
		return err
	}
	worker, err := db.NewWorker(
		ingestion.WithConcurrency(cfg.WorkerConcurrency),
		ingestion.WithChunker(chunker),
		ingestion.WithEmbedTimeout(cfg.EmbedTimeout),
	)
	if err != nil {
		return err
	}

	searcher, err := db.NewSearcher(search.WithEmbedTimeout(cfg.EmbedTimeout))
	if err != nil {
		return err
	}
	streamer, err := db.NewStreamer(searcher,
		chat.WithTopK(cfg.DefaultTopK),
		chat.WithHistoryLimit(cfg.HistoryLimit),
		chat.WithGenerationTimeout(cfg.GenerationTimeout),
	)
	if err != nil {
		return err
	}
	srv, err := db.NewServer(jobs, streamer)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		err := worker.Run(gctx, jobs)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// ingestCommand indexes a local file synchronously, recording the same
// document and audit trail as an HTTP upload.
func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx, stop := signalContext(c)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tenantID := c.String("org")
	doc, err := db.Documents().CreateDocument(ctx, &core.Document{
		ID:       core.NewID(),
		TenantID: tenantID,
		Title:    filepath.Base(path),
		MimeType: "text/plain",
	})
	if err != nil {
		return err
	}
	err = db.Audit().RecordEvent(ctx, &core.AuditEvent{
		TenantID: tenantID,
		UserID:   c.String("user"),
		Type:     core.AuditDocumentUpload,
		Metadata: map[string]string{"documentId": doc.ID, "fileName": doc.Title},
	})
	if err != nil {
		return err
	}

	chunker, err := cfg.Chunker()
	if err != nil {
		return err
	}
	worker, err := db.NewWorker(ingestion.WithChunker(chunker), ingestion.WithEmbedTimeout(cfg.EmbedTimeout))
	if err != nil {
		return err
	}
	if err := worker.Process(ctx, queue.NewIngestionJob(tenantID, doc.ID, content)); err != nil {
		return fmt.Errorf("ingestion of %s failed: %w", path, err)
	}

	chunks, err := db.Chunks().ListChunksByDocument(ctx, tenantID, doc.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %s as %s (%d chunks)\n", doc.Title, doc.ID, len(chunks))
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	topK := cfg.DefaultTopK
	if c.Int("top-k") > 0 {
		topK = c.Int("top-k")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithEmbedTimeout(cfg.EmbedTimeout))
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor = quietMonitor{}
	if c.Bool("verbose") {
		monitor = newPrintMonitor(os.Stdout)
	}
	results, err := searcher.FindRelevantWithMonitor(c.Context, c.String("org"), query, topK, monitor)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: [%0.3f] document %s\n", i, hit.Score, hit.DocumentID)
		fmt.Printf("   %s\n", preview(hit.Content, 160))
		if terms := search.MatchedTerms(hit.Content, query); len(terms) > 0 {
			fmt.Printf("   matched: %s\n", strings.Join(terms, ", "))
		}
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if host := c.String("embedding-host"); host != "" {
		cfg.AI.EmbeddingHost = host
	}
	if model := c.String("embedding-model"); model != "" {
		cfg.AI.EmbeddingModel = model
	}

	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := validateReindexConfig(reindexConfig); err != nil {
		return err
	}

	aiConfig := cfg.AIConfig()
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	ctx, stop := signalContext(c)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.DataDir)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if _, err := db.NewReindexer(embedder, reindexConfig, os.Stderr).Run(ctx); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func validateReindexConfig(config *reindex.Config) error {
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	return nil
}

func memberAddCommand(c *cli.Context) error {
	role := core.MemberRole(strings.ToUpper(c.String("role")))
	if role != core.MemberRoleAdmin && role != core.MemberRoleMember {
		return fmt.Errorf("invalid role %q: must be ADMIN or MEMBER", c.String("role"))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Memberships().AddMembership(c.Context, &core.Membership{
		TenantID: c.String("org"),
		UserID:   c.String("user"),
		Role:     role,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %s to %s as %s\n", c.String("user"), c.String("org"), role)
	return nil
}

func queueStatsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	url := cfg.RedisURL
	if c.String("redis-url") != "" {
		url = c.String("redis-url")
	}

	q, err := queue.DialRedis(c.Context, url)
	if err != nil {
		return err
	}
	defer q.Close()

	stats, err := q.Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("ready:      %d\n", stats.Ready)
	fmt.Printf("processing: %d\n", stats.Processing)
	fmt.Printf("delayed:    %d\n", stats.Delayed)
	fmt.Printf("dead:       %d\n", stats.Dead)
	return nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
