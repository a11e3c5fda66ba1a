package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workdoc/workdoc/internal/model"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"work_summary_1_Ann_Lee.pdf", "1704907800000-ab12.png"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", ".", "..", "../secret", "a/b.pdf", `a\b.pdf`, "x..y", "nul\x00"} {
		assert.ErrorIs(t, ValidateKey(key), model.ErrValidation, key)
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	ok, err := s.Exists(ctx, "report.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Open(ctx, "report.pdf")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.Put(ctx, "report.pdf", []byte("%PDF-1.3 hello"), "application/pdf"))

	ok, err = s.Exists(ctx, "report.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := ReadAll(ctx, s, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 hello", string(data))

	require.NoError(t, s.Put(ctx, "report.pdf", []byte("v2"), "application/pdf"))
	data, err = ReadAll(ctx, s, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, s.Delete(ctx, "report.pdf"))
	require.NoError(t, s.Delete(ctx, "report.pdf"), "second delete must not fail")

	ok, err = s.Exists(ctx, "report.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Create(ctx, "once.pdf", []byte("first"), "application/pdf"))
	err = s.Create(ctx, "once.pdf", []byte("second"), "application/pdf")
	assert.True(t, IsExists(err), "got %v", err)
	assert.ErrorIs(t, err, model.ErrConflict)
	data, err = ReadAll(ctx, s, "once.pdf")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "create must not replace an existing object")

	assert.ErrorIs(t, s.Put(ctx, "../escape", []byte("x"), ""), model.ErrValidation)
	assert.ErrorIs(t, s.Create(ctx, "../escape", []byte("x"), ""), model.ErrValidation)
	_, err = s.Open(ctx, "../escape")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.ErrorIs(t, s.Delete(ctx, "a/b"), model.ErrValidation)
}

func TestLocal(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.objects[aws.ToString(in.Key)]; taken && aws.ToString(in.IfNoneMatch) == "*" {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	fake := newFakeS3()
	exerciseStore(t, newS3WithClient(fake, "docs", ""))
}

func TestS3Prefix(t *testing.T) {
	fake := newFakeS3()
	s := newS3WithClient(fake, "docs", "documents")
	require.NoError(t, s.Put(context.Background(), "a.pdf", []byte("x"), "application/pdf"))
	assert.Contains(t, fake.objects, "documents/a.pdf")
	assert.Equal(t, "application/pdf", fake.types["documents/a.pdf"])
}

func TestLocalCreateLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "a.pdf", []byte("x"), ""))
	assert.True(t, IsExists(s.Create(ctx, "a.pdf", []byte("y"), "")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.pdf", entries[0].Name())
}

func TestS3CreateSendsIfNoneMatch(t *testing.T) {
	fake := newFakeS3()
	s := newS3WithClient(fake, "docs", "")
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "a.pdf", []byte("x"), "application/pdf"))
	err := s.Create(ctx, "a.pdf", []byte("y"), "application/pdf")
	assert.ErrorIs(t, err, ErrExists)
	assert.Equal(t, []byte("x"), fake.objects["a.pdf"])

	// Plain puts still overwrite.
	require.NoError(t, s.Put(ctx, "a.pdf", []byte("z"), "application/pdf"))
	assert.Equal(t, []byte("z"), fake.objects["a.pdf"])
}

func TestIsS3Conflict(t *testing.T) {
	assert.True(t, isS3Conflict(&smithy.GenericAPIError{Code: "PreconditionFailed"}))
	assert.True(t, isS3Conflict(fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "ConditionalRequestConflict"})))
	assert.False(t, isS3Conflict(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isS3Conflict(errors.New("dial tcp: refused")))
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)
}
