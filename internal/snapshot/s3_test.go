package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "metrolog/internal/errors"
	"metrolog/internal/shared/testutil"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func newS3Store(t *testing.T) (*S3Store, *mockObjectAPI) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	client := &mockObjectAPI{}
	t.Cleanup(func() { client.AssertExpectations(t) })
	return NewS3StoreWithClient(client, "metrology", "registry/", logger), client
}

func objectKey(key string) interface{} {
	return mock.MatchedBy(func(in interface{}) bool {
		switch v := in.(type) {
		case *s3.PutObjectInput:
			return aws.ToString(v.Bucket) == "metrology" && aws.ToString(v.Key) == key
		case *s3.GetObjectInput:
			return aws.ToString(v.Bucket) == "metrology" && aws.ToString(v.Key) == key
		case *s3.DeleteObjectInput:
			return aws.ToString(v.Bucket) == "metrology" && aws.ToString(v.Key) == key
		}
		return false
	})
}

func TestS3Store_Put(t *testing.T) {
	store, client := newS3Store(t)
	client.On("PutObject", mock.Anything, objectKey("registry/a.json")).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "a.json", []byte("{}")))
}

func TestS3Store_PutFailure(t *testing.T) {
	store, client := newS3Store(t)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	err := store.Put(context.Background(), "a.json", []byte("{}"))
	var se *apierrors.StorageError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Store_Get(t *testing.T) {
	store, client := newS3Store(t)
	client.On("GetObject", mock.Anything, objectKey("registry/a.json")).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(`{"R1":{}}`)))}, nil).Once()

	data, err := store.Get(context.Background(), "a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"R1":{}}`, string(data))
}

func TestS3Store_GetMissing(t *testing.T) {
	store, client := newS3Store(t)
	client.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{}).Once()

	_, err := store.Get(context.Background(), "a.json")
	var nf *apierrors.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestS3Store_List(t *testing.T) {
	store, client := newS3Store(t)
	older := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "registry/"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("registry/old.json"), Size: aws.Int64(10), LastModified: aws.Time(older)},
			{Key: aws.String("registry/new.json"), Size: aws.Int64(20), LastModified: aws.Time(newer)},
			{Key: aws.String("registry/nested/x.json"), Size: aws.Int64(1), LastModified: aws.Time(newer)},
		},
	}, nil).Once()

	infos, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, Info{Key: "new.json", Size: 20, ModifiedAt: newer}, infos[0])
	assert.Equal(t, "old.json", infos[1].Key)
}

func TestS3Store_Delete(t *testing.T) {
	store, client := newS3Store(t)
	client.On("GetObject", mock.Anything, objectKey("registry/a.json")).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(nil))}, nil).Once()
	client.On("DeleteObject", mock.Anything, objectKey("registry/a.json")).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.Delete(context.Background(), "a.json"))
}

func TestS3Store_InvalidKeyNeverReachesClient(t *testing.T) {
	store, _ := newS3Store(t)

	assert.Error(t, store.Put(context.Background(), "../a.json", nil))
	_, err := store.Get(context.Background(), "a/b")
	assert.Error(t, err)
}
