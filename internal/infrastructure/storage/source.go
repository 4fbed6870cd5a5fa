package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrS3NotConfigured is returned for s3:// references when no S3 source is available
var ErrS3NotConfigured = errors.New("s3 document source not configured")

// DocumentResolver resolves local paths directly and s3:// references through S3Source
type DocumentResolver struct {
	s3 *S3Source
}

// NewDocumentResolver creates a resolver. s3 may be nil.
func NewDocumentResolver(s3 *S3Source) *DocumentResolver {
	return &DocumentResolver{s3: s3}
}

// Resolve implements port.DocumentSource
func (r *DocumentResolver) Resolve(ctx context.Context, ref string) (string, func(), error) {
	if strings.HasPrefix(ref, S3Scheme) {
		if r.s3 == nil {
			return "", nil, ErrS3NotConfigured
		}
		return r.s3.Resolve(ctx, ref)
	}

	info, err := os.Stat(ref)
	if err != nil {
		return "", nil, fmt.Errorf("document not found: %w", err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("document %s is a directory", ref)
	}
	return ref, func() {}, nil
}
