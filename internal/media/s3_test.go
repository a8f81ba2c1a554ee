package media

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	copies  []string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src := aws.ToString(in.CopySource)
	f.copies = append(f.copies, src)
	key := strings.TrimPrefix(src, "bucket/")
	f.objects[aws.ToString(in.Key)] = f.objects[key]
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func TestS3PutCopyDelete(t *testing.T) {
	fake := newFakeS3()
	s := newS3(fake, "bucket", "https://cdn.example.com")
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, "1/gallery/"+name+" 1.jpg", []byte(name), "image/jpeg"))
	}
	require.NoError(t, s.Put(ctx, "10/gallery/z.jpg", []byte("z"), "image/jpeg"))

	assert.Equal(t, "https://cdn.example.com/1/gallery/a.jpg", s.URL("1/gallery/a.jpg"))

	n, err := s.CopyPrefix(ctx, "1/gallery/", "2/gallery/")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "all pages are listed")
	assert.Equal(t, []byte("c"), fake.objects["2/gallery/c 1.jpg"])
	assert.Contains(t, fake.copies, "bucket/1/gallery/a%201.jpg")

	require.NoError(t, s.DeletePrefix(ctx, "1/"))
	for k := range fake.objects {
		assert.False(t, strings.HasPrefix(k, "1/"), "left behind %s", k)
	}
	assert.Contains(t, fake.objects, "10/gallery/z.jpg")
	assert.Contains(t, fake.objects, "2/gallery/a 1.jpg")
}

func TestS3RejectsEscapingKeys(t *testing.T) {
	s := newS3(newFakeS3(), "bucket", "https://cdn.example.com")
	assert.Error(t, s.Put(context.Background(), "../x", nil, ""))
}
