package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// errInvalidDataset marks a download that is not a FeatureCollection.
// Retrying the validation cannot fix it.
const errInvalidDataset = "InvalidDataset"

// DatasetSyncInput selects the datasets to refresh. An empty list means all.
type DatasetSyncInput struct {
	Datasets []string
}

// DatasetSyncResult reports what was promoted.
type DatasetSyncResult struct {
	Promoted []Promotion
	Features map[string]int
}

// DatasetSyncWorkflow downloads, validates and promotes dataset files, then
// tells the API instances to drop their caches. Nothing is promoted unless
// every download validates. If a promotion fails, the ones already done are
// rolled back from their backups (saga compensation).
func DatasetSyncWorkflow(ctx workflow.Context, input DatasetSyncInput) (*DatasetSyncResult, error) {
	logger := workflow.GetLogger(ctx)

	ids, err := resolveDatasets(input.Datasets)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "BadInput", err)
	}
	logger.Info("Starting dataset sync", "datasets", ids)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        3 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errInvalidDataset},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	result := &DatasetSyncResult{Features: make(map[string]int)}
	var downloads []Download

	discardAll := func(from int) {
		for _, d := range downloads[from:] {
			if err := workflow.ExecuteActivity(ctx, "DiscardDownload", d).Get(ctx, nil); err != nil {
				logger.Warn("discard failed", "dataset", d.Dataset, "error", err)
			}
		}
	}

	// Step 1: download and validate everything
	for _, id := range ids {
		var d Download
		if err := workflow.ExecuteActivity(ctx, "DownloadDataset", id).Get(ctx, &d); err != nil {
			discardAll(0)
			return nil, fmt.Errorf("download %s: %w", id, err)
		}
		downloads = append(downloads, d)

		var features int
		if err := workflow.ExecuteActivity(ctx, "ValidateDataset", d).Get(ctx, &features); err != nil {
			logger.Warn("validation failed, discarding downloads", "dataset", id, "error", err)
			discardAll(0)
			return nil, fmt.Errorf("validate %s: %w", id, err)
		}
		result.Features[id] = features
	}

	// Step 2: promote
	for i, d := range downloads {
		var p Promotion
		if err := workflow.ExecuteActivity(ctx, "PromoteDataset", d).Get(ctx, &p); err != nil {
			logger.Warn("promotion failed, compensating", "dataset", d.Dataset, "error", err)
			for j := len(result.Promoted) - 1; j >= 0; j-- {
				done := result.Promoted[j]
				if rerr := workflow.ExecuteActivity(ctx, "RestoreBackup", done).Get(ctx, nil); rerr != nil {
					logger.Error("restore failed", "dataset", done.Dataset, "error", rerr)
				}
			}
			discardAll(i)
			return nil, fmt.Errorf("promote %s: %w", d.Dataset, err)
		}
		result.Promoted = append(result.Promoted, p)
	}

	// Step 3: cleanup and cache invalidation are best effort
	for _, p := range result.Promoted {
		if err := workflow.ExecuteActivity(ctx, "DropBackup", p).Get(ctx, nil); err != nil {
			logger.Warn("backup cleanup failed", "dataset", p.Dataset, "error", err)
		}
	}
	if err := workflow.ExecuteActivity(ctx, "BroadcastCacheClear").Get(ctx, nil); err != nil {
		logger.Warn("cache clear broadcast failed", "error", err)
	}

	logger.Info("Dataset sync finished", "promoted", len(result.Promoted))
	return result, nil
}

func resolveDatasets(names []string) ([]string, error) {
	if len(names) == 0 {
		out := make([]string, 0, len(domain.Datasets))
		for _, id := range domain.Datasets {
			out = append(out, string(id))
		}
		return out, nil
	}

	seen := make(map[domain.DatasetID]bool)
	out := make([]string, 0, len(names))
	for _, n := range names {
		id, err := domain.ParseDatasetID(n)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, string(id))
		}
	}
	return out, nil
}
