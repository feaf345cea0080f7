package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/sirupsen/logrus"
)

// Saver 打包路径并以精确 key 提交到缓存。
type Saver struct {
	*pipeline
}

// NewSaver 解析压缩方式与缓存根目录，之后的每次 Save 复用该结果。
func NewSaver(opts Options) (*Saver, error) {
	p, err := newPipeline(opts)
	if err != nil {
		return nil, err
	}
	return &Saver{pipeline: p}, nil
}

// Save 返回 StatusSuccess 或 StatusSoftFailure；只有校验错误会作为 error 返回。
// key 已被占用时以 info 级别记录并软失败，其它失败记录告警后软失败。
func (s *Saver) Save(ctx context.Context, paths []string, key string) (SaveStatus, error) {
	if err := CheckPaths(paths); err != nil {
		return StatusSoftFailure, err
	}
	if err := ValidateKeys([]string{key}); err != nil {
		return StatusSoftFailure, err
	}

	fields := s.fields("save", key)
	err := s.save(ctx, paths, key, fields)
	switch {
	case err == nil:
		return StatusSuccess, nil
	case IsReserve(err):
		s.logger.WithFields(fields).Info(err.Error())
	default:
		s.logger.WithFields(fields).WithError(err).Warn("failed to save cache")
	}
	return StatusSoftFailure, nil
}

func (s *Saver) save(ctx context.Context, paths []string, key string, fields logrus.Fields) error {
	cachePaths, err := ResolvePaths(s.workDir, paths)
	if err != nil {
		return wrapOperational(err, "resolve cache paths")
	}
	if len(cachePaths) == 0 {
		return platformerrors.New(platformerrors.CodeNotFound,
			"path(s) specified for caching do not exist, hence no cache is being saved")
	}
	s.logger.WithFields(fields).WithField("paths", cachePaths).Debug("resolved cache paths")

	tempDir := filepath.Join(s.tempDir, uuid.NewString())
	if err := os.MkdirAll(tempDir, 0o700); err != nil {
		return wrapOperational(err, "create temporary directory")
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			s.logger.WithFields(fields).WithError(err).Debug("failed to delete temporary archive")
		}
	}()

	archivePath := filepath.Join(tempDir, s.fileName)
	if err := s.engine.Create(ctx, archivePath, s.workDir, cachePaths, s.method); err != nil {
		return wrapOperational(err, "create archive")
	}

	if s.shouldList() {
		names, err := s.engine.List(ctx, archivePath, s.method)
		if err != nil {
			return wrapOperational(err, "list archive")
		}
		s.logContents(fields, names)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return wrapOperational(err, "stat archive")
	}
	size := info.Size()
	s.logger.WithFields(fields).WithField("size_bytes", size).
		Info(fmt.Sprintf("cache size: ~%s (%d B)", humanize.Bytes(uint64(size)), size))

	if s.maxArchiveSize > 0 && size > s.maxArchiveSize {
		return platformerrors.Newf(platformerrors.CodeInvalidConfig,
			"cache size of ~%s (%d B) is over the %s limit, not saving cache",
			humanize.Bytes(uint64(size)), size, humanize.Bytes(uint64(s.maxArchiveSize)))
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return wrapOperational(err, "open archive")
	}
	defer f.Close()

	entry, err := s.store.Commit(ctx, key, s.method, f)
	if err != nil {
		if IsReserve(err) {
			return err
		}
		return wrapOperational(err, "commit archive")
	}

	fields["archive"] = entry.ArchivePath
	s.logger.WithFields(fields).Info("cache saved with key: " + key)
	return nil
}
