package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Extract replays an archive produced by Create into workDir. Entries may
// point outside workDir through leading "../" segments (caches of ~/.npm and
// similar), so the archive is trusted to the same degree as the store that
// holds it. Absolute names are refused, and no entry may be written through a
// symlink that an earlier entry of the same archive created.
func (e *TarEngine) Extract(ctx context.Context, archivePath, workDir string, method Method) error {
	root, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	r, closeFn, err := openReader(archivePath, method)
	if err != nil {
		return err
	}
	defer closeFn()

	type dirTime struct {
		path    string
		modTime time.Time
	}
	var dirs []dirTime
	planted := map[string]struct{}{}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := entryTarget(root, header.Name)
		if err != nil {
			return err
		}
		if err := checkPlanted(planted, target); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			if err := os.Chmod(target, header.FileInfo().Mode().Perm()|0o700); err != nil {
				return err
			}
			dirs = append(dirs, dirTime{path: target, modTime: header.ModTime})
		case tar.TypeReg:
			if err := writeFile(ctx, tr, target, header); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := replaceWith(target, func() error { return os.Symlink(header.Linkname, target) }); err != nil {
				return err
			}
			planted[target] = struct{}{}
		case tar.TypeLink:
			linkTarget, err := entryTarget(root, header.Linkname)
			if err != nil {
				return err
			}
			if err := checkPlanted(planted, linkTarget); err != nil {
				return err
			}
			if err := replaceWith(target, func() error { return os.Link(linkTarget, target) }); err != nil {
				return err
			}
		default:
			// Devices, fifos and the like are never produced by Create.
		}
	}

	// Children touch their parent directory, so directory times go last.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Chtimes(dirs[i].path, dirs[i].modTime, dirs[i].modTime)
	}
	return nil
}

// List returns entry names without touching the filesystem beyond the archive.
func (e *TarEngine) List(ctx context.Context, archivePath string, method Method) ([]string, error) {
	r, closeFn, err := openReader(archivePath, method)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var names []string
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		names = append(names, header.Name)
	}
}

// entryTarget maps a tar entry name to a filesystem path under root.
func entryTarget(root, name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("invalid archive entry name %q", name)
	}
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("absolute archive entry name %q", name)
	}
	return filepath.Join(root, filepath.FromSlash(name)), nil
}

// checkPlanted refuses targets whose parent chain passes through a symlink
// created earlier in the same extraction.
func checkPlanted(planted map[string]struct{}, target string) error {
	for dir := filepath.Dir(target); ; dir = filepath.Dir(dir) {
		if _, ok := planted[dir]; ok {
			return fmt.Errorf("archive entry %s traverses symlink %s created by the same archive", target, dir)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil
		}
	}
}

func writeFile(ctx context.Context, src io.Reader, target string, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	// A symlink left by an older restore must not redirect the write.
	if info, err := os.Lstat(target); err == nil {
		if !info.Mode().IsRegular() {
			if err := os.RemoveAll(target); err != nil {
				return err
			}
		} else if info.Mode().Perm()&0o200 == 0 {
			if err := os.Chmod(target, info.Mode().Perm()|0o200); err != nil {
				return err
			}
		}
	}

	mode := header.FileInfo().Mode().Perm()
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o200)
	if err != nil {
		return err
	}
	_, copyErr := CopyWithContext(ctx, f, src)
	if err := errors.Join(copyErr, f.Close()); err != nil {
		return fmt.Errorf("extract %s: %w", header.Name, err)
	}
	if err := os.Chmod(target, mode); err != nil {
		return err
	}
	return os.Chtimes(target, header.ModTime, header.ModTime)
}

func replaceWith(target string, create func() error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	return create()
}
