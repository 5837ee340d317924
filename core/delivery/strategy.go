package delivery

import (
	"context"
	"io"
)

const mp3ContentType = "audio/mpeg"

// Sink receives the byte stream for local-download delivery. The HTTP layer
// implements it over the response writer; tests implement it over a buffer.
type Sink interface {
	// Open prepares the receiving end for a file of the given name and size
	// and returns the writer the bytes go to. size may be -1 when unknown.
	Open(filename, contentType string, size int64) (io.Writer, error)
}

// Uploader pushes a local file to remote storage and returns its public URL.
// storage.MinioStorage satisfies it.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName, contentType string) (string, error)
}
