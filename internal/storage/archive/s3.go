// internal/storage/archive/s3.go
package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/newthinker/zella/internal/core"
)

const defaultRegion = "us-east-1"

// S3Config points the archive at an S3 bucket or a compatible service
// such as MinIO. Exports hold a trader's full journal, so Encryption
// ("AES256" or "aws:kms") is applied to every object when set.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Prefix       string `mapstructure:"prefix"`
	Encryption   string `mapstructure:"encryption"`
	KMSKeyID     string `mapstructure:"kms_key_id"`
	StorageClass string `mapstructure:"storage_class"`
}

// S3API is the subset of the S3 client the archive calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Storage keeps exports and profiles as objects under an optional
// key prefix.
type S3Storage struct {
	client S3API
	bucket string
	prefix string
	put    func(*s3.PutObjectInput)
}

// NewS3 creates an archive backed by cfg.Bucket. Static keys are used
// when given; otherwise the SDK's default credential chain applies.
func NewS3(cfg S3Config) (*S3Storage, error) {
	put, err := putOptions(cfg)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	opts := s3.Options{Region: region}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	s := newS3WithClient(s3.New(opts), cfg.Bucket, cfg.Prefix)
	s.put = put
	return s, nil
}

// putOptions validates the object settings applied on every write.
func putOptions(cfg S3Config) (func(*s3.PutObjectInput), error) {
	var sse types.ServerSideEncryption
	switch strings.ToLower(cfg.Encryption) {
	case "":
	case "aes256":
		sse = types.ServerSideEncryptionAes256
	case "aws:kms":
		sse = types.ServerSideEncryptionAwsKms
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "archive.s3.encryption %q", cfg.Encryption)
	}
	if cfg.KMSKeyID != "" && sse != types.ServerSideEncryptionAwsKms {
		return nil, core.Errorf(core.ErrConfigInvalid, "archive.s3.kms_key_id needs encryption aws:kms")
	}
	class := types.StorageClass(strings.ToUpper(cfg.StorageClass))

	return func(in *s3.PutObjectInput) {
		in.ServerSideEncryption = sse
		if cfg.KMSKeyID != "" {
			in.SSEKMSKeyId = aws.String(cfg.KMSKeyID)
		}
		in.StorageClass = class
	}, nil
}

func newS3WithClient(client S3API, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		put:    func(*s3.PutObjectInput) {},
	}
}

func (s *S3Storage) key(p string) string {
	if s.prefix == "" {
		return p
	}
	return s.prefix + "/" + p
}

// contentType picks the object type from the archive path extension.
func contentType(p string) string {
	switch path.Ext(p) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}

func (s *S3Storage) failed(op, key string, err error) error {
	return core.Errorf(core.ErrStoreFailed, "s3 %s s3://%s/%s: %w", op, s.bucket, key, err)
}

func (s *S3Storage) Write(ctx context.Context, p string, data []byte) error {
	c, err := clean(p)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(c)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(c)),
	}
	s.put(in)
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return s.failed("put", s.key(c), err)
	}
	return nil
}

func (s *S3Storage) Read(ctx context.Context, p string) ([]byte, error) {
	c, err := clean(p)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(c)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, core.Errorf(core.ErrNoData, "archive %s", c)
		}
		return nil, s.failed("get", s.key(c), err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, s.failed("read", s.key(c), err)
	}
	return data, nil
}

func (s *S3Storage) List(ctx context.Context, prefix string) ([]string, error) {
	paths := []string{}
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, s.failed("list", s.key(prefix), err)
		}
		for _, obj := range page.Contents {
			rel := aws.ToString(obj.Key)
			if s.prefix != "" {
				rel = strings.TrimPrefix(rel, s.prefix+"/")
			}
			paths = append(paths, rel)
		}
	}
	return paths, nil
}

func (s *S3Storage) Delete(ctx context.Context, p string) error {
	c, err := clean(p)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(c)),
	})
	if err != nil {
		return s.failed("delete", s.key(c), err)
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, p string) (bool, error) {
	c, err := clean(p)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(c)),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, s.failed("head", s.key(c), err)
	}
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
