package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Create writes a tar archive of paths to archivePath. Entry names are slash
// separated and relative to workDir so Extract can replay them against a
// different checkout of the same layout.
func (e *TarEngine) Create(ctx context.Context, archivePath, workDir string, paths []string, method Method) (err error) {
	if archivePath == "" {
		return fmt.Errorf("archive path cannot be empty")
	}
	if len(paths) == 0 {
		return fmt.Errorf("no paths to archive")
	}
	codec, err := codecFor(method)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(archivePath)
		}
	}()

	cw, err := codec.NewWriter(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("open %s stream: %w", method, err)
	}
	tw := tar.NewWriter(cw)

	w := &tarWalker{ctx: ctx, root: root, tw: tw, seen: make(map[string]struct{})}
	for _, p := range paths {
		if err = w.add(p); err != nil {
			break
		}
	}

	// tar footer, codec trailer and file must be flushed in this order.
	closeErr := errors.Join(tw.Close(), cw.Close(), f.Close())
	if err == nil {
		err = closeErr
	}
	return err
}

type tarWalker struct {
	ctx  context.Context
	root string
	tw   *tar.Writer
	seen map[string]struct{}
}

func (w *tarWalker) add(p string) error {
	start := p
	if !filepath.IsAbs(start) {
		start = filepath.Join(w.root, start)
	}
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := w.ctx.Err(); err != nil {
			return err
		}
		return w.writeEntry(path, d)
	})
}

func (w *tarWalker) writeEntry(path string, d fs.DirEntry) error {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return err
	}
	name := filepath.ToSlash(rel)
	if name == "." {
		// The working directory itself has no useful header.
		return nil
	}
	if _, dup := w.seen[name]; dup {
		return nil
	}
	w.seen[name] = struct{}{}

	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("create tar header for %s: %w", path, err)
	}
	header.Name = name
	if info.IsDir() && !strings.HasSuffix(header.Name, "/") {
		header.Name += "/"
	}
	header.Uname, header.Gname = "", ""

	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header for %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := CopyWithContext(w.ctx, w.tw, src); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
