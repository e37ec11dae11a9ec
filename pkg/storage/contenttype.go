package storage

import (
	"bytes"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of an object mimetype inspects by default.
const sniffLen = 3072

// DetectContentType sniffs the MIME type of data. Office documents are
// reported by their own types rather than as zip archives.
func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}

// extensionFor returns the usual extension for contentType, or ".bin".
func extensionFor(contentType string) string {
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

// seekableBody returns r as an io.ReadSeeker, which the S3 client needs to
// sign the payload, together with its sniffed content type when ct is empty.
func seekableBody(r io.Reader, ct string) (io.ReadSeeker, string, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		if ct != "" {
			return rs, ct, nil
		}
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(rs, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, "", err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, "", err
		}
		return rs, DetectContentType(head[:n]), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if ct == "" {
		ct = DetectContentType(data)
	}
	return bytes.NewReader(data), ct, nil
}
