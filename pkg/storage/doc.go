// Package storage keeps attachment files in an object store.
//
// S3Storage talks to AWS S3 or any S3-compatible service. Memory keeps
// objects in process for development and tests.
//
//	info, err := storage.PutFile(ctx, store, fileHeader,
//		storage.WithTenant(userID),
//		storage.WithPrefix("attachments"),
//		storage.WithValidation(storage.NotEmpty(), storage.MaxSize(10<<20)),
//	)
//
//	data, err := storage.ReadAll(ctx, store, info.Key, 0)
//
// Malformed keys fail with ErrInvalidKey before any network call and
// missing objects map to ErrNotFound.
package storage
