package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/any-hub/any-cache/internal/archive"
)

// Store 管理缓存根目录下的条目。磁盘布局：
//
//	<root>/<key>/<archive file>    # 文件名仅由压缩方式决定
//
// 目录名即 key，命名文件存在即代表条目存在；条目只增不删。
type Store interface {
	// Root 返回缓存根目录的绝对路径。
	Root() string

	// Lookup 依次按前缀匹配 keys，返回首个命中 key 下最新的归档。无命中返回 ErrNotFound。
	Lookup(ctx context.Context, keys []string, method archive.Method) (*Candidate, error)

	// Commit 将 body 写入 <root>/<key>/<file>。实现需保证写入过程对读者不可见，
	// 且目标已存在时返回保留冲突错误而不是覆盖。
	Commit(ctx context.Context, key string, method archive.Method, body io.Reader) (*Candidate, error)

	// Entries 列出所有已知压缩方式的条目，按修改时间倒序。
	Entries(ctx context.Context) ([]Candidate, error)
}

// NewStore 以 root 为根目录构建磁盘缓存；目录在首次提交时才创建。
func NewStore(root string) (Store, error) {
	return NewStoreWithFs(afero.NewOsFs(), root)
}

// NewStoreWithFs 允许注入文件系统实现，测试可使用 afero.NewMemMapFs。
func NewStoreWithFs(fsys afero.Fs, root string) (Store, error) {
	if root == "" {
		return nil, errors.New("storage path required")
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	return &fileStore{
		fs:    fsys,
		root:  abs,
		locks: make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 串行化同进程内同一 key 的提交；跨进程依赖 create-if-absent 发布。
type fileStore struct {
	fs   afero.Fs
	root string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.root
}

func (s *fileStore) Lookup(ctx context.Context, keys []string, method archive.Method) (*Candidate, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fileName, err := CacheFileName(method)
	if err != nil {
		return nil, err
	}
	names, err := ListEntryNames(s.fs, s.root)
	if err != nil {
		return nil, err
	}
	match, ok := MatchKeys(s.fs, s.root, names, keys, method, fileName)
	if !ok {
		return nil, ErrNotFound
	}
	return &match, nil
}

func (s *fileStore) Commit(ctx context.Context, key string, method archive.Method, body io.Reader) (*Candidate, error) {
	fileName, err := CacheFileName(method)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(key)
	defer unlock()

	dir := EntryDir(s.root, key)
	final := filepath.Join(dir, fileName)
	if _, err := s.fs.Stat(final); err == nil {
		return nil, newReserveError(key)
	}

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	tempFile, err := afero.TempFile(s.fs, dir, ".cache-*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()
	defer s.fs.Remove(tempName)

	written, err := archive.CopyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	if err := s.fs.Chmod(tempName, 0o644); err != nil {
		return nil, err
	}

	if err := s.publish(tempName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, newReserveError(key)
		}
		return nil, err
	}

	info, err := s.fs.Stat(final)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Key:         key,
		ArchivePath: final,
		Method:      method,
		SizeBytes:   written,
		ModTime:     info.ModTime(),
	}, nil
}

func (s *fileStore) Entries(ctx context.Context) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ScanEntries(s.fs, s.root)
}

// publish 以不覆盖的方式把临时文件发布到最终文件名。真实磁盘上使用硬链接，
// 目标存在时由内核返回 EEXIST；其它文件系统退化为检查后重命名。
func (s *fileStore) publish(tempName, final string) error {
	if _, ok := s.fs.(*afero.OsFs); ok {
		return os.Link(tempName, final)
	}
	if _, err := s.fs.Stat(final); err == nil {
		return fs.ErrExist
	}
	return s.fs.Rename(tempName, final)
}

func (s *fileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
