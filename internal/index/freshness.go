package index

import (
	"context"
	"fmt"
	"os"
	"time"

	"xppkb/internal/modules"
	"xppkb/internal/storage"
)

// FreshnessResult describes whether the store reflects the metadata on disk.
type FreshnessResult struct {
	Fresh        bool      `json:"fresh" yaml:"fresh"`
	Reason       string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	LastRunID    string    `json:"lastRunId,omitempty" yaml:"lastRunId,omitempty"`
	IndexedAt    time.Time `json:"indexedAt,omitempty" yaml:"indexedAt,omitempty"`
	Age          string    `json:"age,omitempty" yaml:"age,omitempty"`
	ChangedFiles int       `json:"changedFiles" yaml:"changedFiles"`
}

// CheckFreshness compares the latest completed run against the
// modification times of the metadata files of models. The store is stale
// when there is no completed run, the last run failed, or a file changed
// after the last run finished.
func CheckFreshness(ctx context.Context, last *storage.IndexRun, root string, models []modules.Model) (FreshnessResult, error) {
	if last == nil {
		return FreshnessResult{Reason: "no index run recorded"}, nil
	}

	result := FreshnessResult{
		LastRunID: last.RunID,
		IndexedAt: last.FinishedAt,
		Age:       humanDuration(time.Since(last.FinishedAt)),
	}
	if last.Status != storage.RunCompleted {
		result.Reason = "last index run failed"
		if last.Error != "" {
			result.Reason += ": " + last.Error
		}
		return result, nil
	}

	for _, m := range models {
		files, err := metadataFiles(ctx, m.Dir(root), m.Name)
		if err != nil {
			return result, err
		}
		for _, f := range files {
			if changedSince(f.path, last.FinishedAt) {
				result.ChangedFiles++
			}
		}
	}

	if result.ChangedFiles > 0 {
		result.Reason = fmt.Sprintf("%d metadata file(s) changed since the last run", result.ChangedFiles)
		return result, nil
	}
	result.Fresh = true
	return result, nil
}

func changedSince(path string, t time.Time) bool {
	info, err := os.Stat(path)
	return err == nil && info.ModTime().After(t)
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
