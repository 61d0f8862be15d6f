package media

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const s3Scheme = "s3://"

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newMinioConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: false,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// MinioResolver reads recordings from S3 compatible object storage. References look like
// s3://bucket/path/to/object or s3:///path/to/object for the default bucket.
type MinioResolver struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioResolver(opts ...MinioOpts) (*MinioResolver, error) {
	cfg := newMinioConfig(opts...)

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating object storage client")
	}

	return &MinioResolver{cfg: cfg, client: client}, nil
}

func (m *MinioResolver) Supports(ref string) bool {
	return strings.HasPrefix(ref, s3Scheme)
}

func (m *MinioResolver) Fetch(ctx context.Context, ref string, dst io.Writer) error {
	bucket, key, err := m.parse(ref)
	if err != nil {
		return err
	}

	object, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return errors.Wrapf(err, "opening object %s/%s", bucket, key)
	}
	defer object.Close()

	objInfo, err := object.Stat()
	if err != nil {
		return errors.Wrapf(err, "reading object %s/%s", bucket, key)
	}

	newCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pw := newProgressWriter(newCtx, dst, objInfo.Size)

	if _, err = io.Copy(pw, object); err != nil {
		return errors.Wrapf(err, "downloading object %s/%s", bucket, key)
	}

	return pw.complete()
}

func (m *MinioResolver) Type() string {
	return "minio"
}

func (m *MinioResolver) parse(ref string) (string, string, error) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(ref, s3Scheme), "/")
	if bucket == "" {
		bucket = m.cfg.bucket
	}
	if bucket == "" {
		return "", "", NewInvalidRefError(ref, "no bucket")
	}
	if key == "" {
		return "", "", NewInvalidRefError(ref, "no object key")
	}
	return bucket, key, nil
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

// WithBucket sets the bucket used by references that do not name one.
func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
