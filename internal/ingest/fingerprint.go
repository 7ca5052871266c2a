package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// Fingerprint is the file identity triple used for import deduplication.
type Fingerprint struct {
	ContentHash string
	ByteSize    int64
	ModTime     time.Time
}

// ComputeFingerprint hashes a file's full contents with SHA-256 and records
// its size and modification time.
func ComputeFingerprint(path string) (*Fingerprint, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: stat %s", path)
	}

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return nil, eris.Wrapf(err, "ingest: hash %s", path)
	}

	return &Fingerprint{
		ContentHash: hex.EncodeToString(h.Sum(nil)),
		ByteSize:    info.Size(),
		ModTime:     info.ModTime().UTC(),
	}, nil
}
