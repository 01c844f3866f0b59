package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"localwire/config"
	"localwire/types"
)

// Archiver writes JSON snapshots of harvested data to S3. A nil Archiver is
// valid and drops everything; upload failures are logged and never fail a
// harvest run.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an Archiver from the environment-driven config, or returns nil
// when no bucket is configured.
func New(ctx context.Context, cfg config.Config) *Archiver {
	if cfg.S3Bucket == "" {
		return nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.S3Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.Printf("archive: aws config unavailable, archival disabled: %v", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	log.Printf("archive: uploading snapshots to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	return &Archiver{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix}
}

// SaveArticle uploads one article as articles/<id>.json.
func (a *Archiver) SaveArticle(ctx context.Context, art *types.Article) {
	if a == nil || art == nil {
		return
	}
	a.put(ctx, fmt.Sprintf("articles/%d.json", art.ID), art)
}

// SaveWeatherReport uploads one report as weather/<id>.json.
func (a *Archiver) SaveWeatherReport(ctx context.Context, wr *types.WeatherReport) {
	if a == nil || wr == nil {
		return
	}
	a.put(ctx, fmt.Sprintf("weather/%d.json", wr.ID), wr)
}

func (a *Archiver) put(ctx context.Context, key string, v any) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("archive: encode %s: %v", key, err)
		return
	}
	key = a.prefix + key
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Printf("archive: upload %s: %v", key, err)
		return
	}
}
