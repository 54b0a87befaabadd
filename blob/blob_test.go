package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(Te *testing.T, s Store) {
	ctx := context.Background()
	info, err := s.Put(ctx, "runs/a/record.json", strings.NewReader(`{"kind":"x"}`), "application/json")
	require.NoError(Te, err)
	assert.Equal(Te, int64(12), info.Size)
	_, err = s.Put(ctx, "runs/b/relaxed.dump.zst", bytes.NewReader([]byte{1, 2, 3}), "")
	require.NoError(Te, err)
	_, err = s.Put(ctx, "other/c", strings.NewReader("c"), "")
	require.NoError(Te, err)

	_, err = s.Put(ctx, "runs/a/record.json", strings.NewReader("again"), "")
	assert.True(Te, errors.Is(err, ErrExists))
	for _, bad := range []string{"", "/abs", "runs/../../etc"} {
		_, err = s.Put(ctx, bad, strings.NewReader("x"), "")
		assert.Error(Te, err, bad)
	}

	r, err := s.Get(ctx, "runs/a/record.json")
	require.NoError(Te, err)
	b, err := io.ReadAll(r)
	r.Close()
	require.NoError(Te, err)
	assert.Equal(Te, `{"kind":"x"}`, string(b))
	_, err = s.Get(ctx, "runs/missing")
	assert.Error(Te, err)

	list, err := s.List(ctx, "runs/")
	require.NoError(Te, err)
	require.Len(Te, list, 2)
	assert.Equal(Te, "runs/a/record.json", list[0].Key)
	assert.Equal(Te, "runs/b/relaxed.dump.zst", list[1].Key)
	assert.Equal(Te, int64(3), list[1].Size)
	all, err := s.List(ctx, "")
	require.NoError(Te, err)
	assert.Len(Te, all, 3)
}

func TestFS(Te *testing.T) {
	s, err := NewFS(Te.TempDir())
	require.NoError(Te, err)
	assert.Equal(Te, DriverFilesystem, s.Driver())
	exerciseStore(Te, s)
}

func TestS3(Te *testing.T) {
	s := mockS3(Te, "artifacts")
	assert.Equal(Te, DriverS3, s.Driver())
	exerciseStore(Te, s)
}

func TestConfig(Te *testing.T) {
	Te.Setenv(EnvBucket, "disloc-results")
	Te.Setenv(EnvPathStyle, "TRUE")
	c := Config{Driver: DriverS3, Region: "eu-north-1"}.FromEnv()
	assert.Equal(Te, "disloc-results", c.Bucket)
	assert.Equal(Te, "eu-north-1", c.Region)
	assert.True(Te, c.PathStyle)
	assert.NoError(Te, c.Check())
	assert.Error(Te, Config{Driver: DriverS3}.Check())
	assert.Error(Te, Config{Driver: "gcs"}.Check())

	s, err := Open(context.Background(), Config{Root: Te.TempDir()})
	require.NoError(Te, err)
	assert.Equal(Te, DriverFilesystem, s.Driver())
	assert.Equal(Te, "a/b/c.json", Key("/a/", "", "b", "c.json"))
}

//mockS3 returns an S3 store talking to an in-memory fake of the few S3 calls used.
func mockS3(Te *testing.T, prefix string) *S3 {
	rt := &fakeS3{objects: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(Te, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return newS3(client, "bucket", prefix)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func response(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header, ContentLength: int64(len(body))}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	lastmod := http.Header{"Last-Modified": {time.Now().UTC().Format(http.TimeFormat)}}
	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	case req.Method == http.MethodHead:
		if o, ok := f.objects[key]; ok {
			lastmod.Set("Content-Length", fmt.Sprint(len(o)))
			return response(http.StatusOK, nil, lastmod), nil
		}
		return response(http.StatusNotFound, nil, nil), nil
	case req.Method == http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.objects[key] = body
		return response(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case req.Method == http.MethodGet:
		if o, ok := f.objects[key]; ok {
			return response(http.StatusOK, o, lastmod), nil
		}
		return response(http.StatusNotFound, []byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`), http.Header{"Content-Type": {"application/xml"}}), nil
	}
	return response(http.StatusNotImplemented, nil, nil), nil
}
