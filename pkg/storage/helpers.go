package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// PutFile stores an uploaded multipart file. The content type is sniffed
// from the file's bytes, never taken from the client.
func PutFile(ctx context.Context, s Storage, fh *multipart.FileHeader, opts ...Option) (*FileInfo, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrEmptyFile
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("storage: open upload: %w", err)
	}
	defer f.Close()

	body, ct, err := seekableBody(f, "")
	if err != nil {
		return nil, fmt.Errorf("storage: read upload: %w", err)
	}

	opts = append([]Option{WithFilename(fh.Filename)}, opts...)
	opts = append(opts, WithContentType(ct))
	return s.Put(ctx, body, fh.Size, opts...)
}

// ReadAll loads the object at key into memory. Objects over maxSize bytes
// fail with ErrTooLarge; a non-positive maxSize means DefaultMaxObjectSize.
func ReadAll(ctx context.Context, s Storage, key string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxObjectSize
	}

	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
