package blob

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestObjectKeyPrefix(t *testing.T) {
	tests := []struct {
		prefix, want string
	}{
		{"", "reports/moon-vault/r1.json"},
		{"prod", "prod/reports/moon-vault/r1.json"},
		{"/prod/eu/", "prod/eu/reports/moon-vault/r1.json"},
	}
	for _, tc := range tests {
		if got := objectKey(tc.prefix, "reports/moon-vault/r1.json"); got != tc.want {
			t.Errorf("objectKey(%q) = %q, want %q", tc.prefix, got, tc.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		key, given, want string
	}{
		{"reports/a/r1.json", "", "application/json"},
		{"reports/a/r1.html", "", "text/html; charset=utf-8"},
		{"reports/a/r1.md", "", "text/markdown; charset=utf-8"},
		{"reports/a/r1.bin", "", "application/octet-stream"},
		{"reports/a/r1.json", "text/plain", "text/plain"},
	}
	for _, tc := range tests {
		if got := contentTypeFor(tc.key, tc.given); got != tc.want {
			t.Errorf("contentTypeFor(%q, %q) = %q, want %q", tc.key, tc.given, got, tc.want)
		}
	}
}

func TestObjectMetadata(t *testing.T) {
	md := objectMetadata(ReportKey("moon-vault", "r1", "json"))
	if md["riskscope-kind"] != "report" || md["riskscope-project"] != "moon-vault" {
		t.Errorf("report metadata = %v", md)
	}
	md = objectMetadata(PacketKey("b1"))
	if md["riskscope-kind"] != "packet" {
		t.Errorf("packet metadata = %v", md)
	}
	if _, ok := md["riskscope-project"]; ok {
		t.Errorf("packet metadata should not name a project: %v", md)
	}
	if md := objectMetadata("misc.txt"); md != nil {
		t.Errorf("unexpected metadata for unknown key: %v", md)
	}
}

func TestS3NotFoundMapping(t *testing.T) {
	if !isS3NotFound(fmt.Errorf("get object: %w", &types.NoSuchKey{})) {
		t.Error("wrapped NoSuchKey should map to not found")
	}
	if !isS3NotFound(&types.NotFound{}) {
		t.Error("NotFound should map to not found")
	}
	if isS3NotFound(fmt.Errorf("get object: %w", &types.NoSuchBucket{})) {
		t.Error("a missing bucket is a configuration error, not a missing report")
	}
	if isS3NotFound(nil) {
		t.Error("nil is not a not-found error")
	}
}

func TestCloudBackendsRequireBucket(t *testing.T) {
	ctx := context.Background()
	if _, err := NewS3Storage(ctx, S3Config{Region: "us-east-1"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
	if _, err := NewGCSStorage(ctx, GCSConfig{Prefix: "prod"}); err == nil {
		t.Error("expected error for gcs without bucket")
	}
}

func TestS3StorageAppliesPrefix(t *testing.T) {
	s, err := NewS3Storage(context.Background(), S3Config{
		Bucket:    "reports",
		Prefix:    "/staging/",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}
	if got := s.key(PacketKey("b1")); got != "staging/packets/b1.json" {
		t.Errorf("key = %q", got)
	}
}
