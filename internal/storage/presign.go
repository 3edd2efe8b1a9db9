package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	uploadPrefix = "uploads/"
	uploadExpiry = 5 * time.Minute
)

var (
	ErrNotConfigured   = errors.New("storage: upload bucket not configured")
	ErrInvalidFileName = errors.New("storage: file name is required")
)

// Upload is what a client needs to PUT a file directly to the bucket.
type Upload struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Presigner struct {
	client presignAPI
	bucket string
	region string
	newKey func(fileName string) string
}

// NewPresigner returns a Presigner that reports ErrNotConfigured when bucket
// is empty.
func NewPresigner(client *s3.Client, bucket, region string) *Presigner {
	p := &Presigner{bucket: bucket, region: region, newKey: uploadKey}
	if client != nil {
		p.client = s3.NewPresignClient(client)
	}
	return p
}

func uploadKey(fileName string) string {
	return fmt.Sprintf("%s%s-%s", uploadPrefix, uuid.NewString(), fileName)
}

// Presign returns a five minute PUT URL and the public URL the object will
// have once uploaded.
func (p *Presigner) Presign(ctx context.Context, fileName, fileType string) (*Upload, error) {
	if p.client == nil || p.bucket == "" {
		return nil, ErrNotConfigured
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, ErrInvalidFileName
	}
	key := p.newKey(name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}
	if fileType != "" {
		input.ContentType = aws.String(fileType)
	}

	req, err := p.client.PresignPutObject(ctx, input, s3.WithPresignExpires(uploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &Upload{
		UploadURL: req.URL,
		FileURL:   fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key),
	}, nil
}
