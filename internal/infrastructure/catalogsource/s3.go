package catalogsource

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/raumania/assistant/internal/domain"
)

// S3Config configures the bucket holding the export files
type S3Config struct {
	Bucket      string
	Region      string
	Prefix      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	ProductFile string
	BrandFile   string
}

// s3API is the subset of the S3 client used by the source
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Source reads the export files from an S3 bucket
type S3Source struct {
	client     s3API
	bucket     string
	productKey string
	brandKey   string
}

// NewS3Source creates an S3 client from cfg. Explicit keys take precedence over
// the default credential chain (environment, shared config, IAM role).
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Source(client, cfg), nil
}

func newS3Source(client s3API, cfg S3Config) *S3Source {
	productFile, brandFile := cfg.ProductFile, cfg.BrandFile
	if productFile == "" {
		productFile = "product.json"
	}
	if brandFile == "" {
		brandFile = "brand.json"
	}
	return &S3Source{
		client:     client,
		bucket:     cfg.Bucket,
		productKey: path.Join(cfg.Prefix, productFile),
		brandKey:   path.Join(cfg.Prefix, brandFile),
	}
}

// Version returns the ETags of both objects
func (s *S3Source) Version(ctx context.Context) (string, error) {
	pv, err := s.etag(ctx, s.productKey)
	if err != nil {
		return "", err
	}
	bv, err := s.etag(ctx, s.brandKey)
	if err != nil {
		return "", err
	}
	return pv + "|" + bv, nil
}

// Load downloads and parses both objects. The version is taken from the
// downloaded objects so it always matches the content.
func (s *S3Source) Load(ctx context.Context) (*domain.Catalog, error) {
	productData, pv, err := s.download(ctx, s.productKey)
	if err != nil {
		return nil, err
	}
	brandData, bv, err := s.download(ctx, s.brandKey)
	if err != nil {
		return nil, err
	}
	return Decode(productData, brandData, pv+"|"+bv)
}

func (s *S3Source) etag(ctx context.Context, key string) (string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("%w: head s3://%s/%s: %v", domain.ErrCatalogUnavailable, s.bucket, key, err)
	}
	return aws.ToString(out.ETag), nil
}

func (s *S3Source) download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: get s3://%s/%s: %v", domain.ErrCatalogUnavailable, s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read s3://%s/%s: %v", domain.ErrCatalogUnavailable, s.bucket, key, err)
	}
	return data, aws.ToString(out.ETag), nil
}
