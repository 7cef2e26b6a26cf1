package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"armback/internal/backup"
)

// S3Remote replicates archives into an S3 bucket. The folder chain maps to a
// key prefix, so folder resolution creates nothing and is trivially
// idempotent. Credentials live in the SDK configuration, not in the session.
type S3Remote struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// S3Options configures an S3Remote. AccessKey/SecretKey are optional; when
// empty the SDK's default credential chain is used.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Remote creates an S3-backed remote store.
func NewS3Remote(ctx context.Context, opts S3Options) (*S3Remote, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Remote{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   strings.Trim(opts.Prefix, "/"),
	}, nil
}

// Authenticate verifies bucket access. There is no bearer token; the session
// is a marker that the silent check passed.
func (r *S3Remote) Authenticate(ctx context.Context) (*backup.Session, error) {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepAuthenticating, Err: err}
	}
	return &backup.Session{}, nil
}

// ResolveFolder maps the segments onto a key prefix. Nothing is created:
// S3 has no real folders, so the resolved id is stable by construction.
func (r *S3Remote) ResolveFolder(_ context.Context, _ *backup.Session, segments []string) (string, error) {
	parts := segments
	if r.prefix != "" {
		parts = append([]string{r.prefix}, segments...)
	}
	return path.Join(parts...), nil
}

// Upload stores the archive under the folder prefix using the multipart
// upload manager.
func (r *S3Remote) Upload(ctx context.Context, _ *backup.Session, folderID, name string, data []byte) (*backup.RemoteFile, error) {
	key := folderID + "/" + name
	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}

	head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}

	return &backup.RemoteFile{
		ID:          key,
		Name:        name,
		CreatedTime: aws.ToTime(head.LastModified),
		Size:        aws.ToInt64(head.ContentLength),
	}, nil
}

// List returns the archives under the folder prefix, most recent first.
func (r *S3Remote) List(ctx context.Context, _ *backup.Session, folderID string) ([]backup.RemoteFile, error) {
	var files []backup.RemoteFile

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(folderID + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &backup.RemoteError{Step: backup.StepListing, Err: err}
		}
		files = append(files, filesFromObjects(page.Contents)...)
	}

	sortNewestFirst(files)
	return files, nil
}

// filesFromObjects converts listed objects to remote files, skipping
// directory placeholder keys.
func filesFromObjects(objects []types.Object) []backup.RemoteFile {
	var files []backup.RemoteFile
	for _, obj := range objects {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}
		files = append(files, backup.RemoteFile{
			ID:          key,
			Name:        path.Base(key),
			CreatedTime: aws.ToTime(obj.LastModified),
			Size:        aws.ToInt64(obj.Size),
		})
	}
	return files
}

func sortNewestFirst(files []backup.RemoteFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedTime.After(files[j].CreatedTime)
	})
}

// Download returns the raw bytes of a stored archive. The file id is its
// object key.
func (r *S3Remote) Download(ctx context.Context, _ *backup.Session, fileID string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}
	return data, nil
}

// Compile-time check that S3Remote implements the Remote interface
var _ backup.Remote = (*S3Remote)(nil)
