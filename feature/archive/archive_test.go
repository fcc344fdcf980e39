package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestArchive(retention time.Duration) (*Archive, *mocks.Client) {
	m := new(mocks.Client)
	return New(m, "reports", retention, clock.NewFake(now), nil), m
}

func objects(infos ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(infos))
	for _, i := range infos {
		ch <- i
	}
	close(ch)
	return ch
}

func TestSaveSummary(t *testing.T) {
	a, m := newTestArchive(0)

	var uploaded []byte
	m.On("PutObject", mock.Anything, "reports", "runs/2025/06/01/run-20250601T080500Z.json", mock.Anything, mock.Anything, mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/json"
	})).Run(func(args mock.Arguments) {
		uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
	}).Return(minio.UploadInfo{}, nil)

	key, err := a.SaveSummary(context.Background(), reconcile.Summary{Total: 3, New: 1, FinishedAt: now.Add(5 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "runs/2025/06/01/run-20250601T080500Z.json", key)

	var got reconcile.Summary
	require.NoError(t, json.Unmarshal(uploaded, &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.New)
	m.AssertExpectations(t)
}

func TestSaveReport(t *testing.T) {
	a, m := newTestArchive(0)
	m.On("PutObject", mock.Anything, "reports", "reports/2025/05/31/daily-2025-05-31.json", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	key, err := a.SaveReport(context.Background(), reconcile.DailyReport{Date: "2025-05-31", Total: 10})
	require.NoError(t, err)
	assert.Equal(t, "reports/2025/05/31/daily-2025-05-31.json", key)

	m2 := new(mocks.Client)
	m2.On("PutObject", mock.Anything, "reports", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("denied"))
	_, err = New(m2, "reports", 0, clock.NewFake(now), nil).SaveReport(context.Background(), reconcile.DailyReport{Date: "2025-05-31"})
	assert.ErrorContains(t, err, "denied")
}

func TestListAndLoad(t *testing.T) {
	a, m := newTestArchive(0)
	m.On("ListObjects", mock.Anything, "reports", minio.ListObjectsOptions{Prefix: "runs/", Recursive: true}).Return(objects(
		minio.ObjectInfo{Key: "runs/2025/05/31/run-a.json", Size: 10},
		minio.ObjectInfo{Key: "runs/2025/06/01/run-b.json", Size: 20},
	))

	objs, err := a.List(context.Background(), "runs/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "runs/2025/06/01/run-b.json", objs[0].Key)

	m.On("GetObject", mock.Anything, "reports", "runs/2025/06/01/run-b.json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte(`{"total":7}`))), nil)

	var s reconcile.Summary
	require.NoError(t, a.Load(context.Background(), "runs/2025/06/01/run-b.json", &s))
	assert.Equal(t, 7, s.Total)
}

func TestListError(t *testing.T) {
	a, m := newTestArchive(0)
	m.On("ListObjects", mock.Anything, "reports", mock.Anything).Return(objects(minio.ObjectInfo{Err: errors.New("denied")}))

	_, err := a.List(context.Background(), "runs/")
	assert.ErrorContains(t, err, "denied")
}

func TestPrune(t *testing.T) {
	a, m := newTestArchive(24 * time.Hour)

	m.On("ListObjects", mock.Anything, "reports", minio.ListObjectsOptions{Prefix: "runs/", Recursive: true}).Return(objects(
		minio.ObjectInfo{Key: "runs/old.json", LastModified: now.Add(-48 * time.Hour)},
		minio.ObjectInfo{Key: "runs/new.json", LastModified: now.Add(-time.Hour)},
	))
	m.On("ListObjects", mock.Anything, "reports", minio.ListObjectsOptions{Prefix: "reports/", Recursive: true}).Return(objects(
		minio.ObjectInfo{Key: "reports/old.json", LastModified: now.Add(-72 * time.Hour)},
	))

	var removed []string
	m.On("RemoveObjects", mock.Anything, "reports", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		for o := range args.Get(2).(<-chan minio.ObjectInfo) {
			removed = append(removed, o.Key)
		}
	}).Return(nil)

	n, err := a.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"runs/old.json", "reports/old.json"}, removed)
}

func TestPruneDisabled(t *testing.T) {
	a, m := newTestArchive(0)

	n, err := a.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	m.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
}
