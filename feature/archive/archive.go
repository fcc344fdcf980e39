package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const (
	runsPrefix    = "runs/"
	reportsPrefix = "reports/"
	contentType   = "application/json"
)

// Object is an archived document.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores run summaries and daily reports as JSON objects.
type Archive struct {
	client    storage.Client
	bucket    string
	retention time.Duration
	clock     clock.Clock
	logger    *zap.Logger
}

// New creates an Archive writing to bucket.
func New(client storage.Client, bucket string, retention time.Duration, clk clock.Clock, logger *zap.Logger) *Archive {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{client: client, bucket: bucket, retention: retention, clock: clk, logger: logger}
}

// Bucket returns the target bucket name.
func (a *Archive) Bucket() string {
	return a.bucket
}

// Ensure creates the bucket when missing.
func (a *Archive) Ensure(ctx context.Context) error {
	return storage.EnsureBucket(ctx, a.client, a.bucket, "")
}

// SaveSummary archives the summary of one run under runs/YYYY/MM/DD/.
func (a *Archive) SaveSummary(ctx context.Context, s reconcile.Summary) (string, error) {
	at := s.FinishedAt
	if at.IsZero() {
		at = a.clock.Now()
	}
	at = at.UTC()
	key := path.Join(runsPrefix, at.Format("2006/01/02"), "run-"+at.Format("20060102T150405Z")+".json")
	return key, a.put(ctx, key, s)
}

// SaveReport archives a daily report under reports/YYYY/MM/DD/.
func (a *Archive) SaveReport(ctx context.Context, r reconcile.DailyReport) (string, error) {
	day, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		day = a.clock.Now().UTC()
	}
	key := path.Join(reportsPrefix, day.Format("2006/01/02"), "daily-"+day.Format(time.DateOnly)+".json")
	return key, a.put(ctx, key, r)
}

// List returns archived objects under prefix, newest first.
func (a *Archive) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		out = append(out, Object{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out, nil
}

// Load decodes the archived document at key into out.
func (a *Archive) Load(ctx context.Context, key string, out any) error {
	rc, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Prune removes documents older than the retention period and returns how
// many were removed. A zero retention keeps everything.
func (a *Archive) Prune(ctx context.Context) (int, error) {
	if a.retention <= 0 {
		return 0, nil
	}
	cutoff := a.clock.Now().Add(-a.retention)

	var stale []minio.ObjectInfo
	for _, prefix := range []string{runsPrefix, reportsPrefix} {
		objs, err := a.List(ctx, prefix)
		if err != nil {
			return 0, err
		}
		for _, o := range objs {
			if o.LastModified.Before(cutoff) {
				stale = append(stale, minio.ObjectInfo{Key: o.Key})
			}
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ch := make(chan minio.ObjectInfo, len(stale))
	for _, o := range stale {
		ch <- o
	}
	close(ch)

	removed := len(stale)
	var firstErr error
	for rerr := range a.client.RemoveObjects(ctx, a.bucket, ch, minio.RemoveObjectsOptions{}) {
		removed--
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}

	a.logger.Info("Pruned archive", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	return removed, firstErr
}

func (a *Archive) put(ctx context.Context, key string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.logger.Debug("Archived document", zap.String("bucket", a.bucket), zap.String("key", key))
	return nil
}
