package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the part of the S3 client the mirror backend uses.
type ObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 mirrors the folder hierarchy into a bucket. Folder ids are key
// prefixes ending in "/", marked by a zero-byte object; file ids are keys.
type S3 struct {
	client       ObjectAPI
	bucket       string
	linkTemplate string
}

// NewS3 wraps client. linkTemplate must contain one %s for the object key;
// when empty the virtual-hosted bucket URL is used.
func NewS3(client ObjectAPI, bucket, linkTemplate string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: set S3_BUCKET", ErrNotConfigured)
	}

	if linkTemplate == "" {
		linkTemplate = fmt.Sprintf("https://%s.s3.amazonaws.com/%%s", bucket)
	}

	if strings.Count(linkTemplate, "%s") != 1 {
		return nil, fmt.Errorf("%w: S3_VIEW_LINK_TEMPLATE needs exactly one %%s", ErrNotConfigured)
	}

	return &S3{client: client, bucket: bucket, linkTemplate: linkTemplate}, nil
}

func (s *S3) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	key := folderKey(parentID, name)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return key, nil
	}

	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("head folder %q: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", key, err)
	}

	return key, nil
}

func (s *S3) UploadFile(ctx context.Context, f File) (string, error) {
	key := folderKey(f.ParentID, "") + f.Name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", key, err)
	}

	return key, nil
}

func (s *S3) ViewLink(fileID string) string {
	escaped := strings.Split(fileID, "/")
	for i := range escaped {
		escaped[i] = url.PathEscape(escaped[i])
	}
	return fmt.Sprintf(s.linkTemplate, strings.Join(escaped, "/"))
}

// folderKey joins a parent prefix and a child name into a folder key with
// a trailing slash. An empty name returns the normalized parent.
func folderKey(parentID, name string) string {
	parent := strings.Trim(parentID, "/")
	name = strings.Trim(name, "/")

	switch {
	case parent == "":
		return name + "/"
	case name == "":
		return parent + "/"
	default:
		return parent + "/" + name + "/"
	}
}

var _ Storage = (*S3)(nil)
