package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Engine creates, extracts and lists cache archives. Implementations must
// leave no partially written archive behind when Create fails.
type Engine interface {
	// Create packs paths (relative to workDir, or absolute) into archivePath.
	Create(ctx context.Context, archivePath, workDir string, paths []string, method Method) error

	// Extract unpacks archivePath into workDir, overwriting existing files.
	Extract(ctx context.Context, archivePath, workDir string, method Method) error

	// List returns the entry names stored in archivePath, in archive order.
	List(ctx context.Context, archivePath string, method Method) ([]string, error)
}

// TarEngine is the default Engine: a tar stream wrapped by a registered codec.
type TarEngine struct{}

// NewTarEngine returns the tar based engine.
func NewTarEngine() *TarEngine {
	return &TarEngine{}
}

var _ Engine = (*TarEngine)(nil)

func codecFor(method Method) (Codec, error) {
	codec, ok := Lookup(method)
	if !ok {
		return Codec{}, fmt.Errorf("compression method %s is not registered", method)
	}
	return codec, nil
}

// openReader opens archivePath and wraps it with the codec's decompressor.
// The returned close function releases both layers.
func openReader(archivePath string, method Method) (io.Reader, func() error, error) {
	codec, err := codecFor(method)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, err
	}

	rc, err := codec.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open %s stream: %w", method, err)
	}

	return rc, func() error {
		return errors.Join(rc.Close(), f.Close())
	}, nil
}

// CopyWithContext copies src into dst and stops early once ctx is done.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
