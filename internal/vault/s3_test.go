package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 keeps objects in memory. Multipart uploads are not supported, which
// is fine for snapshots smaller than the uploader's part size.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

var errMultipart = errors.New("multipart upload not supported by fake")

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Vault_PutGetList(t *testing.T) {
	client := newFakeS3("snapshots")
	v := NewS3Vault("offsite", client, "snapshots", "sharesync")

	if err := v.PutSnapshot("b.db", strings.NewReader("bravo"), 5); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	if err := v.PutSnapshot("a.db", strings.NewReader("alpha"), 5); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	// Unrelated objects under the prefix are not snapshots.
	client.objects["sharesync/other/x"] = []byte("x")

	if _, ok := client.objects["sharesync/snapshots/a.db"]; !ok {
		t.Errorf("object key not under prefix: %v", client.objects)
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot("b.db", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != "bravo" {
		t.Errorf("GetSnapshot() = %q, want %q", buf.String(), "bravo")
	}

	names, err := v.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if strings.Join(names, ",") != "a.db,b.db" {
		t.Errorf("ListSnapshots() = %v, want [a.db b.db]", names)
	}
}

func TestS3Vault_Errors(t *testing.T) {
	client := newFakeS3("snapshots")
	v := NewS3Vault("offsite", client, "snapshots", "")

	var buf bytes.Buffer
	if err := v.GetSnapshot("missing.db", &buf); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("GetSnapshot(missing) error = %v, want not found", err)
	}

	if err := v.PutSnapshot("short.db", strings.NewReader("abc"), 10); err == nil {
		t.Error("PutSnapshot() expected size mismatch error")
	}

	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
	wrong := NewS3Vault("offsite", client, "other-bucket", "")
	if err := wrong.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for missing bucket")
	}
}
