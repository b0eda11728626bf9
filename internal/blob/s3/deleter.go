package s3blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// deleteBatchSize is the maximum number of keys per DeleteObjects request.
const deleteBatchSize = 1000

// Deleter implements domain.BlobDeleter using an S3-compatible backend. The
// admin clear endpoints use it to drop photo objects alongside their pools.
type Deleter struct {
	client *s3.Client
	bucket string
}

// NewDeleter creates a new Deleter operating on the given client's configured
// bucket.
func NewDeleter(c *Client) *Deleter {
	return &Deleter{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Delete removes the object at the given path. Idempotent: no error if the
// object does not exist.
func (d *Deleter) Delete(ctx context.Context, path string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("s3blob: delete %s: %w", path, err)
	}
	return nil
}

// DeletePrefix removes every object whose key starts with the given prefix,
// batching up to 1000 keys per DeleteObjects call. It returns the number of
// objects deleted.
func (d *Deleter) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	var batch []types.ObjectIdentifier

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := d.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("s3blob: delete prefix %s: %w", prefix, err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("s3blob: delete prefix %s list: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) >= deleteBatchSize {
				if err := flush(); err != nil {
					return deleted, err
				}
			}
		}
	}

	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Compile-time interface check.
var _ domain.BlobDeleter = (*Deleter)(nil)
