package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGetter struct {
	mock.Mock
}

func (m *mockGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(*params.Bucket, *params.Key)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestLocalFileStorage_RoundTrip(t *testing.T) {
	store := NewLocalFileStorage(t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "uploads/a.xml", []byte("<xml/>")))
	assert.True(t, store.Exists(ctx, "uploads/a.xml"))

	data, err := store.Read(ctx, "uploads/a.xml")
	require.NoError(t, err)
	assert.Equal(t, "<xml/>", string(data))

	require.NoError(t, store.Delete(ctx, "uploads/a.xml"))
	require.NoError(t, store.Delete(ctx, "uploads/a.xml"))
	assert.False(t, store.Exists(ctx, "uploads/a.xml"))
}

func TestLocalFileStorage_RejectsEscape(t *testing.T) {
	store := NewLocalFileStorage(t.TempDir(), nil)
	err := store.Save(context.Background(), "../outside.txt", []byte("x"))
	assert.ErrorContains(t, err, "escapes base directory")
}

func TestUploadPath(t *testing.T) {
	p := UploadPath("Cedolino Marzo.PDF")
	assert.True(t, strings.HasPrefix(p, UploadsDir+string(filepath.Separator)))
	assert.Equal(t, ".pdf", filepath.Ext(p))
	assert.NotEqual(t, p, UploadPath("Cedolino Marzo.PDF"))
}

func TestParseS3Ref(t *testing.T) {
	bucket, key, err := ParseS3Ref("s3://buste-paga/2025/03/rossi.pdf")
	require.NoError(t, err)
	assert.Equal(t, "buste-paga", bucket)
	assert.Equal(t, "2025/03/rossi.pdf", key)

	for _, bad := range []string{"s3://bucket", "s3:///key", "https://bucket/key"} {
		_, _, err := ParseS3Ref(bad)
		assert.ErrorIs(t, err, ErrInvalidS3Ref, bad)
	}
}

func TestS3Source_Resolve(t *testing.T) {
	store := NewLocalFileStorage(t.TempDir(), nil)
	getter := &mockGetter{}
	getter.On("GetObject", "fatture", "2025/IT01_0001.xml").Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("<FatturaElettronica/>")),
	}, nil)

	source := newS3Source(getter, store, nil)
	path, release, err := source.Resolve(context.Background(), "s3://fatture/2025/IT01_0001.xml")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<FatturaElettronica/>", string(data))
	assert.Equal(t, ".xml", filepath.Ext(path))

	release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	getter.AssertExpectations(t)
}

func TestS3Source_DownloadError(t *testing.T) {
	getter := &mockGetter{}
	getter.On("GetObject", "b", "k.pdf").Return(nil, errors.New("NoSuchKey"))

	_, _, err := newS3Source(getter, NewLocalFileStorage(t.TempDir(), nil), nil).
		Resolve(context.Background(), "s3://b/k.pdf")
	assert.ErrorContains(t, err, "NoSuchKey")
}

func TestDocumentResolver(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.xml")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	r := NewDocumentResolver(nil)

	path, release, err := r.Resolve(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, file, path)
	release()

	_, _, err = r.Resolve(context.Background(), filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)

	_, _, err = r.Resolve(context.Background(), dir)
	assert.Error(t, err)

	_, _, err = r.Resolve(context.Background(), "s3://b/k")
	assert.ErrorIs(t, err, ErrS3NotConfigured)
}

func TestLocalFileStorage_PruneUploads(t *testing.T) {
	store := NewLocalFileStorage(t.TempDir(), nil)
	ctx := context.Background()

	stale := filepath.Join(UploadsDir, "stale.pdf")
	fresh := filepath.Join(UploadsDir, "fresh.pdf")
	require.NoError(t, store.Save(ctx, stale, []byte("old")))
	require.NoError(t, store.Save(ctx, fresh, []byte("new")))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.GetFullPath(stale), old, old))

	removed, err := store.PruneUploads(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, store.Exists(ctx, stale))
	assert.True(t, store.Exists(ctx, fresh))
}

func TestLocalFileStorage_PruneWithoutUploadsDir(t *testing.T) {
	removed, err := NewLocalFileStorage(t.TempDir(), nil).PruneUploads(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
