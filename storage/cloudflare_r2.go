package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type CloudflareR2UploaderConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

type cloudflareR2Uploader struct {
	s3Client      *s3.Client
	bucketName    string
	publicBaseURL string
}

// NewCloudflareR2Uploader хранит изображения конкурсов в Cloudflare R2 через
// S3-совместимый API.
func NewCloudflareR2Uploader(cfg CloudflareR2UploaderConfig) (FileUploader, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, errors.New("invalid Cloudflare R2 configuration: account, credentials and bucket are required")
	}

	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:           fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID),
			SigningRegion: "auto",
		}, nil
	})

	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	return &cloudflareR2Uploader{
		s3Client:      s3.NewFromConfig(sdkCfg),
		bucketName:    cfg.BucketName,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

func (u *cloudflareR2Uploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	result, err := u.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucketName),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object to R2 (key: %s): %w", key, err)
	}

	etag := ""
	if result.ETag != nil {
		// S3-compatible APIs wrap the ETag in double quotes.
		etag = strings.Trim(*result.ETag, "\"")
	}

	return &UploadResult{
		Key:      key,
		Location: u.GetPublicURL(key),
		ETag:     etag,
	}, nil
}

func (u *cloudflareR2Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from R2 (key: %s): %w", key, err)
	}
	return nil
}

func (u *cloudflareR2Uploader) GetPublicURL(key string) string {
	if u.publicBaseURL == "" || key == "" {
		return ""
	}

	baseURL, err := url.Parse(u.publicBaseURL)
	if err != nil {
		return ""
	}
	pathURL, err := url.Parse(strings.TrimPrefix(key, "/"))
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(pathURL).String()
}
