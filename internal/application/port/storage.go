package port

import "context"

// FileStorage defines file storage operations relative to a base directory
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}

// DocumentSource resolves a document reference to a readable local file.
// release must be called once the file is no longer needed.
type DocumentSource interface {
	Resolve(ctx context.Context, ref string) (path string, release func(), err error)
}
