package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	"github.com/google/uuid"
)

func init() {
	registrymedia.Register(registrymedia.Plugin{
		Name:   "s3",
		Loader: load,
	})
}

// ObjectPutter is the subset of the S3 client the encoder needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func load(ctx context.Context) (registrymedia.Encoder, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 media: SOCIAL_SERVICE_MEDIA_S3_BUCKET is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 media: load AWS config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.S3PublicBaseURL), "/")
	if baseURL == "" {
		switch {
		case endpoint != "":
			baseURL = strings.TrimRight(endpoint, "/") + "/" + cfg.S3Bucket
		default:
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, awsCfg.Region)
		}
	}
	log.Info("S3 media encoder enabled", "bucket", cfg.S3Bucket, "publicBaseURL", baseURL)
	return New(client, Options{
		Bucket:        cfg.S3Bucket,
		Prefix:        cfg.S3Prefix,
		PublicBaseURL: baseURL,
		MaxSize:       cfg.MediaMaxSize,
		Timeout:       cfg.S3UploadsTimeout,
	}), nil
}

// Options configures an Encoder.
type Options struct {
	Bucket        string
	Prefix        string
	PublicBaseURL string
	MaxSize       int64
	Timeout       time.Duration
}

// Encoder uploads media to S3 and returns its public URL.
type Encoder struct {
	client ObjectPutter
	opts   Options
}

// New creates an S3 encoder.
func New(client ObjectPutter, opts Options) *Encoder {
	opts.Prefix = strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Encoder{client: client, opts: opts}
}

// objectKey returns the object key for a new upload, applying the prefix if set.
func (e *Encoder) objectKey(contentType string) string {
	key := uuid.New().String()
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		key += exts[0]
	}
	if e.opts.Prefix != "" {
		return e.opts.Prefix + "/" + key
	}
	return key
}

func (e *Encoder) Encode(ctx context.Context, data io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	limit := e.opts.MaxSize
	if limit > 0 {
		data = io.LimitReader(data, limit+1)
	}
	n, err := io.Copy(&buf, data)
	if err != nil {
		return "", fmt.Errorf("s3 media: buffer upload: %w", err)
	}
	if limit > 0 && n > limit {
		return "", &registrymedia.TooLargeError{MaxSize: limit}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	key := e.objectKey(contentType)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
		ContentType:   aws.String(contentType),
	}, func(o *s3.Options) {
		o.APIOptions = append(o.APIOptions, v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware)
	})
	if err != nil {
		return "", fmt.Errorf("s3 media: put object: %w", err)
	}
	return e.opts.PublicBaseURL + "/" + key, nil
}

var _ registrymedia.Encoder = (*Encoder)(nil)
