package blob

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/config"
	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
)

// Open builds the Client selected by cfg. An empty backend returns nil, nil.
func Open(ctx context.Context, cfg config.StorageConfig) (Client, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "local":
		dir := cfg.Dir
		if dir == "" {
			cache, err := config.CacheDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(cache, "blobs")
		}
		return NewLocalStorage(dir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case "gcs":
		return NewGCSStorage(ctx, GCSConfig{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Target shares reports into blob storage. It implements export.Target.
type Target struct {
	Client Client
	Format export.Format

	// Key is set to the written blob key after a successful delivery.
	Key string
}

func (t *Target) Name() string { return "blob" }

func (t *Target) Deliver(ctx context.Context, r *report.Report) error {
	format := t.Format
	if format == "" {
		format = export.FormatJSON
	}
	renderer, err := format.Renderer()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, r); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	key := ReportKey(r.Metadata.CanonicalName, r.ID, format.Ext())
	if err := t.Client.Put(ctx, key, buf.Bytes(), format.ContentType()); err != nil {
		return err
	}
	t.Key = key
	return nil
}

// PutPacket stores a partner packet as JSON and returns its key.
func PutPacket(ctx context.Context, c Client, batchID string, p batch.PartnerPacket) (string, error) {
	var buf bytes.Buffer
	if err := export.PacketJSON(&buf, p); err != nil {
		return "", fmt.Errorf("encode packet: %w", err)
	}
	key := PacketKey(batchID)
	if err := c.Put(ctx, key, buf.Bytes(), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// GetReport loads a JSON report previously stored by Target.
func GetReport(ctx context.Context, c Client, canonicalName, reportID string) (*report.Report, error) {
	data, err := c.Get(ctx, ReportKey(canonicalName, reportID, export.FormatJSON.Ext()))
	if err != nil {
		return nil, err
	}
	return export.DecodeReport(bytes.NewReader(data))
}
