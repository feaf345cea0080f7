package archive

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func init() {
	MustRegister(Codec{
		Method:      MethodNone,
		FileName:    "cache.tar",
		Description: "uncompressed tar",
		Priority:    0,
		NewWriter: func(w io.Writer) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	})

	MustRegister(Codec{
		Method:      MethodGzip,
		FileName:    "cache.tgz",
		Description: "tar compressed with gzip",
		Priority:    10,
		NewWriter: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	})

	MustRegister(Codec{
		Method:      MethodZstd,
		FileName:    "cache.tzst",
		Description: "tar compressed with zstd (long window)",
		Priority:    20,
		NewWriter: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithWindowSize(zstdWindowSize))
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r, zstd.WithDecoderMaxWindow(zstdWindowSize))
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	})
}

// zstdWindowSize matches `zstd --long=27`; larger windows pay off on the
// dependency trees this cache usually holds.
const zstdWindowSize = 1 << 27

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
