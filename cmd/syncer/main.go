package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/srimap/internal/adapters/httpsource"
	natsadapter "github.com/samirrijal/srimap/internal/adapters/nats"
	"github.com/samirrijal/srimap/internal/pkg/config"
	"github.com/samirrijal/srimap/internal/pkg/logging"
	"github.com/samirrijal/srimap/internal/workflows"
)

// Usage:
//
//	syncer                       run the worker
//	syncer trigger [dataset...]  start a sync and wait for it
func main() {
	cfg, err := config.Load("srimap-syncer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort: cfg.Sync.TemporalHost,
		Logger:   slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if len(os.Args) > 1 && os.Args[1] == "trigger" {
		trigger(c, cfg.Sync.TaskQueue, os.Args[2:])
		return
	}

	if cfg.Sync.UpstreamURL == "" {
		log.Fatal("sync.upstream_url is required to run the worker")
	}

	acts := &workflows.SyncActivities{
		Upstream: httpsource.New(cfg.Sync.UpstreamURL, time.Minute),
		DataDir:  cfg.Data.Dir,
		Files:    cfg.Data.FileMap(),
		Origin:   "syncer",
	}
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, peers will not be told to reload", "error", err)
		} else {
			defer pub.Close()
			acts.Events = pub
		}
	}

	w := worker.New(c, cfg.Sync.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DatasetSyncWorkflow)
	w.RegisterActivity(acts)

	slog.Info("sync worker started", "queue", cfg.Sync.TaskQueue, "upstream", cfg.Sync.UpstreamURL)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func trigger(c client.Client, queue string, datasets []string) {
	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "dataset-sync-" + time.Now().UTC().Format("20060102T150405"),
		TaskQueue: queue,
	}, workflows.DatasetSyncWorkflow, workflows.DatasetSyncInput{Datasets: datasets})
	if err != nil {
		log.Fatalf("start sync: %v", err)
	}
	slog.Info("sync started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var res workflows.DatasetSyncResult
	if err := run.Get(ctx, &res); err != nil {
		log.Fatalf("sync failed: %v", err)
	}
	for _, p := range res.Promoted {
		slog.Info("dataset promoted", "dataset", p.Dataset, "path", p.Path, "features", res.Features[p.Dataset])
	}
}
