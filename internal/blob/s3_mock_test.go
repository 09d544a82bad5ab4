package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockRoundTripper serves a tiny fake S3 subset from memory, enough to
// exercise the adapter without network access. Objects are keyed by object
// key; bucket is implied by path-style addressing.
type mockRoundTripper struct{ state map[string]storedObject }

type storedObject struct {
	body        []byte
	contentType string
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Path-style: /bucket/key
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		return m.listResponse(req), nil
	}

	switch req.Method {
	case http.MethodHead:
		st, ok := m.state[key]
		if !ok {
			return mockResponse(404, nil, nil), nil
		}
		return mockResponse(200, nil, http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(st.body))},
			"Content-Type":   {st.contentType},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.state[key] = storedObject{body: body, contentType: req.Header.Get("Content-Type")}
		return mockResponse(200, nil, http.Header{"ETag": {"\"etag\""}}), nil
	case http.MethodGet:
		st, ok := m.state[key]
		if !ok {
			// GetObject error mapping needs the code in the body; a bare 404
			// is only enough for HeadObject.
			body := []byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return mockResponse(404, body, http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return mockResponse(200, st.body, http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(st.body))},
			"Content-Type":   {st.contentType},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}), nil
	case http.MethodDelete:
		delete(m.state, key)
		return mockResponse(204, nil, nil), nil
	}
	return mockResponse(501, nil, nil), nil
}

// listResponse emulates ListObjectsV2 with forced two-page pagination when
// more than one key matches, so the continuation-token loop gets covered.
func (m *mockRoundTripper) listResponse(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	cont := req.URL.Query().Get("continuation-token")
	var keys []string
	for k := range m.state {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	writeContents := func(ks []string) {
		for _, k := range ks {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>",
				k, len(m.state[k].body))
		}
	}
	if cont == "" && len(keys) > 1 {
		b.WriteString("<IsTruncated>true</IsTruncated><NextContinuationToken>page2</NextContinuationToken>")
		writeContents(keys[:1])
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
		start := 0
		if cont != "" && len(keys) > 1 {
			start = 1
		}
		writeContents(keys[start:])
	}
	b.WriteString("</ListBucketResult>")
	return mockResponse(200, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func mockResponse(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

// decodeChunked unwraps the aws-chunked encoding the SDK may apply:
// <hex-size>\r\n<payload>\r\n0\r\n<trailers>.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newMockS3(t *testing.T) *S3 {
	t.Helper()
	rt := &mockRoundTripper{state: make(map[string]storedObject)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return &S3{client: client, bucket: "test-bucket", presign: s3.NewPresignClient(client)}
}

func TestS3MockedBasicFlow(t *testing.T) {
	store := newMockS3(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/20260714.json", bytes.NewReader([]byte("hello")), PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/20260714.json" || info.ContentType != "application/json" || info.Size != 5 {
		t.Fatalf("put info = %+v", info)
	}

	if _, err := store.Head(ctx, "snapshots/20260714.json"); err != nil {
		t.Fatalf("head: %v", err)
	}
	_, rc, err := store.Get(ctx, "snapshots/20260714.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "hello" {
		t.Fatalf("get body = %q", data)
	}

	if url, err := store.PresignURL(ctx, "snapshots/20260714.json", SignedURLOptions{}); err != nil || url == "" {
		t.Fatalf("presign: %v %q", err, url)
	}

	ok, err := store.Delete(ctx, "snapshots/20260714.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

func TestS3MockedListPaginates(t *testing.T) {
	store := newMockS3(t)
	ctx := context.Background()
	for _, key := range []string{"snapshots/a.json", "snapshots/b.json", "snapshots/c.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list across pages = %+v", list)
	}
}

func TestS3MockedNotFound(t *testing.T) {
	store := newMockS3(t)
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("head missing = %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing = %v", err)
	}
	ok, err := store.Delete(ctx, "nope")
	if err != nil || ok {
		t.Fatalf("delete missing = %v, %v", ok, err)
	}
	if _, err := store.Put(ctx, " ", bytes.NewReader(nil), PutOptions{}); err == nil {
		t.Fatalf("empty key must fail")
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatalf("bucket-less config must fail")
	}
}

func TestNewS3FromConfig(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	store, err := NewS3(context.Background(), S3Config{
		Bucket:    "bkt",
		Region:    "us-east-1",
		Endpoint:  "https://mock.s3.local",
		PathStyle: true,
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if store.Driver() != DriverS3 {
		t.Fatalf("driver = %s", store.Driver())
	}
}

func TestOpenS3FromEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv("DAPHNIA_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("DAPHNIA_BLOB_S3_REGION", "us-east-1")
	if _, err := OpenS3FromEnv(context.Background()); err != nil {
		t.Fatalf("OpenS3FromEnv: %v", err)
	}

	t.Setenv("DAPHNIA_BLOB_S3_BUCKET", "")
	if _, err := OpenS3FromEnv(context.Background()); err == nil {
		t.Fatalf("missing bucket must fail")
	}
}
