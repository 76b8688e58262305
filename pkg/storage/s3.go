package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"go.uber.org/zap"
)

const DEFAULT_S3_KEY_TEMPLATE = "tiles/{z}/{x}/{y}.mvt"

type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3SourceConfig struct {
	Bucket      string
	KeyTemplate string
	Region      string
	Endpoint    string // s3 compatible endpoint, empty for aws
}

// S3Source. tiles stored as objects of a bucket.
type S3Source struct {
	client      ObjectGetter
	bucket      string
	keyTemplate string
	log         *zap.Logger
}

func NewS3Source(client ObjectGetter, bucket, keyTemplate string, log *zap.Logger) *S3Source {
	if keyTemplate == "" {
		keyTemplate = DEFAULT_S3_KEY_TEMPLATE
	}
	return &S3Source{
		client:      client,
		bucket:      bucket,
		keyTemplate: keyTemplate,
		log:         log,
	}
}

// NewS3SourceFromConfig. s3 client from the default aws credential chain.
func NewS3SourceFromConfig(ctx context.Context, cfg S3SourceConfig, log *zap.Logger) (*S3Source, error) {
	opts := make([]func(*config.LoadOptions) error, 0)
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Source(client, cfg.Bucket, cfg.KeyTemplate, log), nil
}

func (s *S3Source) Key(t tile.CanonicalTileID) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	)
	return r.Replace(s.keyTemplate)
}

func (s *S3Source) Request(ctx context.Context, t tile.CanonicalTileID) *Request {
	return NewRequest(ctx, t, func(ctx context.Context) Response {
		return s.get(ctx, t)
	})
}

func (s *S3Source) get(ctx context.Context, t tile.CanonicalTileID) Response {
	key := s.Key(t)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s3Failure(ctx, t, key, err)
	}
	defer out.Body.Close()

	return readTile(out.Body, t, TILE_MAX_RESPONSE_BYTES)
}

func s3Failure(ctx context.Context, t tile.CanonicalTileID, key string, err error) Response {
	if ctx.Err() != nil {
		return cancelled(ctx, t)
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return Failure(NOT_FOUND, "object %s not found", key)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return Failure(ErrorKindFromStatus(respErr.HTTPStatusCode()), "object %s: %v", key, err)
	}

	return Failure(CONNECTION_ERROR, "object %s: %v", key, err)
}
