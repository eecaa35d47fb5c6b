// Package s3 implements registry.Registry against an S3-compatible object
// store: one object per schema document revision, one object per recorded
// validate() run, listed with prefix scans. Adapted from the object-storage
// client the wider storage corpus uses for its own content-addressable
// blobs.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/platinummonkey/propconf/pkg/registry"
)

// Config configures the S3 client.
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

// Registry stores schema documents and validation runs as objects in an
// S3-compatible bucket.
type Registry struct {
	client *s3.Client
	bucket string
}

// New creates the bucket if it doesn't already exist and returns a Registry
// bound to it.
func New(cfg Config) (*Registry, error) {
	ctx := context.Background()

	var awsConfig aws.Config
	var err error
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey, cfg.SecretKey, "",
			)),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("s3 registry: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	if err := createBucketIfNotExists(ctx, client, cfg.Bucket); err != nil {
		return nil, fmt.Errorf("s3 registry: ensure bucket: %w", err)
	}

	return &Registry{client: client, bucket: cfg.Bucket}, nil
}

func schemaKey(name, version string) string {
	return fmt.Sprintf("schemas/%s/%s.yaml", name, version)
}

func schemaPrefix(name string) string {
	return fmt.Sprintf("schemas/%s/", name)
}

func runKey(name, version, runID string) string {
	return fmt.Sprintf("runs/%s/%s/%s.json", name, version, runID)
}

func runPrefix(name, version string) string {
	return fmt.Sprintf("runs/%s/%s/", name, version)
}

func (r *Registry) GetSchema(ctx context.Context, name, version string) (*registry.SchemaDocument, error) {
	key := schemaKey(name, version)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3 registry: schema %s@%s not found", name, version)
		}
		return nil, fmt.Errorf("s3 registry: get schema %s@%s: %w", name, version, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("s3 registry: read schema %s@%s: %w", name, version, err)
	}

	createdAt := time.Now()
	if out.LastModified != nil {
		createdAt = *out.LastModified
	}
	return &registry.SchemaDocument{Name: name, Version: version, Content: buf.Bytes(), CreatedAt: createdAt}, nil
}

func (r *Registry) ListSchemaVersions(ctx context.Context, name string) ([]string, error) {
	prefix := schemaPrefix(name)
	out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket), Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 registry: list versions for %s: %w", name, err)
	}

	versions := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		version := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".yaml")
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}

func (r *Registry) ListSchemaNames(ctx context.Context) ([]string, error) {
	const rootPrefix = "schemas/"
	out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Prefix:    aws.String(rootPrefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 registry: list schema names: %w", err)
	}

	names := make([]string, 0, len(out.CommonPrefixes))
	for _, p := range out.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), rootPrefix), "/")
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Registry) LatestSchemaVersion(ctx context.Context, name string) (string, error) {
	versions, err := r.ListSchemaVersions(ctx, name)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("s3 registry: no versions for schema %s", name)
	}
	return versions[len(versions)-1], nil
}

func (r *Registry) PutSchema(ctx context.Context, doc *registry.SchemaDocument) error {
	key := schemaKey(doc.Name, doc.Version)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc.Content),
		ContentType: aws.String("application/yaml"),
	})
	if err != nil {
		return fmt.Errorf("s3 registry: put schema %s@%s: %w", doc.Name, doc.Version, err)
	}
	return nil
}

func (r *Registry) RecordRun(ctx context.Context, run *registry.Run) error {
	if run.ID == "" {
		return errors.New("s3 registry: run ID is required")
	}
	run.CreatedAt = time.Now()
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("s3 registry: marshal run: %w", err)
	}
	key := runKey(run.SchemaName, run.SchemaVersion, run.ID)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 registry: record run: %w", err)
	}
	return nil
}

func (r *Registry) ListRunsForSchema(ctx context.Context, name, version string) ([]*registry.Run, error) {
	prefix := runPrefix(name, version)
	out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket), Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 registry: list runs for %s@%s: %w", name, version, err)
	}

	runs := make([]*registry.Run, 0, len(out.Contents))
	for _, obj := range out.Contents {
		getOut, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(r.bucket), Key: obj.Key})
		if err != nil {
			return nil, fmt.Errorf("s3 registry: fetch run %s: %w", aws.ToString(obj.Key), err)
		}
		buf := new(bytes.Buffer)
		_, readErr := buf.ReadFrom(getOut.Body)
		getOut.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("s3 registry: read run %s: %w", aws.ToString(obj.Key), readErr)
		}
		run := &registry.Run{}
		if err := json.Unmarshal(buf.Bytes(), run); err != nil {
			return nil, fmt.Errorf("s3 registry: decode run %s: %w", aws.ToString(obj.Key), err)
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

func (r *Registry) InvalidateCache(ctx context.Context, schemaName string) error {
	return nil // the s3 backend has no cache of its own; registry.Cache wraps it
}

func (r *Registry) HealthCheck(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	if err != nil {
		return fmt.Errorf("s3 registry: unhealthy: %w", err)
	}
	return nil
}

func createBucketIfNotExists(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		var alreadyExists *types.BucketAlreadyExists
		if errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

var _ registry.Registry = (*Registry)(nil)
