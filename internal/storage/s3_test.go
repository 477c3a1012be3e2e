package storage

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 captures PutObject calls.
type fakeS3 struct {
	s3iface.S3API
	puts []*s3.PutObjectInput
	err  error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, input)
	return &s3.PutObjectOutput{}, nil
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	require.Error(t, err)
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakeS3{}
	store, err := NewS3Store(S3Config{Bucket: "bronze", API: fake})
	require.NoError(t, err)

	err = store.Put(context.Background(), "bronze/openaq/DE/test.json", []byte(`{"ok":true}`))
	require.NoError(t, err)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "bronze", aws.StringValue(put.Bucket))
	assert.Equal(t, "bronze/openaq/DE/test.json", aws.StringValue(put.Key))
	assert.Equal(t, "application/json", aws.StringValue(put.ContentType))

	body, err := io.ReadAll(put.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}
