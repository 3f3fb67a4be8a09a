package workflows

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/ports"
)

// Download is a fetched but not yet promoted dataset file.
type Download struct {
	Dataset  string
	File     string
	TempPath string
}

// Promotion is a dataset file that replaced the live copy.
type Promotion struct {
	Dataset    string
	Path       string
	BackupPath string // empty when there was no previous file
}

// SyncActivities holds the activity implementations for the dataset sync
// workflow.
type SyncActivities struct {
	Upstream ports.DatasetSource
	DataDir  string
	Files    map[domain.DatasetID]string
	Events   ports.EventPublisher
	Origin   string
}

func (a *SyncActivities) file(dataset string) (string, error) {
	id, err := domain.ParseDatasetID(dataset)
	if err != nil {
		return "", err
	}
	if f := a.Files[id]; f != "" {
		return f, nil
	}
	return domain.DefaultFiles()[id], nil
}

// DownloadDataset fetches the upstream copy of a dataset into a temp file
// next to the live one.
func (a *SyncActivities) DownloadDataset(ctx context.Context, dataset string) (Download, error) {
	file, err := a.file(dataset)
	if err != nil {
		return Download{}, temporal.NewNonRetryableApplicationError(err.Error(), "BadInput", err)
	}

	data, err := a.Upstream.Fetch(ctx, file)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Download{}, temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
		}
		return Download{}, fmt.Errorf("fetch %s: %w", file, err)
	}

	if err := os.MkdirAll(a.DataDir, 0o755); err != nil {
		return Download{}, fmt.Errorf("create data dir: %w", err)
	}
	tmp := filepath.Join(a.DataDir, "."+file+".download-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Download{}, fmt.Errorf("write %s: %w", tmp, err)
	}

	activity.GetLogger(ctx).Info("dataset downloaded", "dataset", dataset, "bytes", len(data))
	return Download{Dataset: dataset, File: file, TempPath: tmp}, nil
}

// ValidateDataset checks that a download parses as a FeatureCollection and
// returns its feature count.
func (a *SyncActivities) ValidateDataset(ctx context.Context, d Download) (int, error) {
	data, err := os.ReadFile(d.TempPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", d.TempPath, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("%s is not a FeatureCollection: %v", d.File, err), errInvalidDataset, err)
	}
	return len(fc.Features), nil
}

// DiscardDownload removes a temp file (saga compensation).
func (a *SyncActivities) DiscardDownload(ctx context.Context, d Download) error {
	if err := os.Remove(d.TempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", d.TempPath, err)
	}
	return nil
}

// PromoteDataset backs up the live file and renames the download over it.
func (a *SyncActivities) PromoteDataset(ctx context.Context, d Download) (Promotion, error) {
	target := filepath.Join(a.DataDir, d.File)
	p := Promotion{Dataset: d.Dataset, Path: target}

	if _, err := os.Stat(target); err == nil {
		p.BackupPath = target + ".bak"
		if err := os.Rename(target, p.BackupPath); err != nil {
			return Promotion{}, fmt.Errorf("backup %s: %w", target, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Promotion{}, fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.Rename(d.TempPath, target); err != nil {
		if p.BackupPath != "" {
			_ = os.Rename(p.BackupPath, target)
		}
		return Promotion{}, fmt.Errorf("promote %s: %w", d.File, err)
	}
	return p, nil
}

// RestoreBackup undoes a promotion (saga compensation).
func (a *SyncActivities) RestoreBackup(ctx context.Context, p Promotion) error {
	if p.BackupPath == "" {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p.Path, err)
		}
		return nil
	}
	if err := os.Rename(p.BackupPath, p.Path); err != nil {
		return fmt.Errorf("restore %s: %w", p.Path, err)
	}
	activity.GetLogger(ctx).Info("dataset restored from backup", "dataset", p.Dataset)
	return nil
}

// DropBackup deletes the backup of a successful promotion.
func (a *SyncActivities) DropBackup(ctx context.Context, p Promotion) error {
	if p.BackupPath == "" {
		return nil
	}
	if err := os.Remove(p.BackupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p.BackupPath, err)
	}
	return nil
}

// BroadcastCacheClear asks every API instance to reload its datasets.
func (a *SyncActivities) BroadcastCacheClear(ctx context.Context) error {
	if a.Events == nil {
		activity.GetLogger(ctx).Info("no event publisher, skipping cache clear broadcast")
		return nil
	}
	return a.Events.PublishCacheCleared(ctx, a.Origin)
}
