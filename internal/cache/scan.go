package cache

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/any-hub/any-cache/internal/archive"
)

// Candidate 描述一个可恢复的缓存条目：目录名即匹配到的 key。
type Candidate struct {
	Key         string
	ArchivePath string
	Method      archive.Method
	SizeBytes   int64
	ModTime     time.Time
}

// ListEntryNames 一次性列出根目录下的条目目录名，作为本次调用的快照。
// 根目录不存在视为空缓存。
func ListEntryNames(fsys afero.Fs, root string) ([]string, error) {
	infos, err := afero.ReadDir(fsys, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// FindCandidates 返回以 key 为前缀、且包含常规归档文件的条目，按归档修改时间倒序；
// 时间相同按名称升序，保证结果稳定。
func FindCandidates(fsys afero.Fs, root string, names []string, key string, method archive.Method, fileName string) []Candidate {
	var result []Candidate
	for _, name := range names {
		if !strings.HasPrefix(name, key) {
			continue
		}
		archivePath := filepath.Join(EntryDir(root, name), fileName)
		info, err := fsys.Stat(archivePath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		result = append(result, Candidate{
			Key:         name,
			ArchivePath: archivePath,
			Method:      method,
			SizeBytes:   info.Size(),
			ModTime:     info.ModTime(),
		})
	}
	sortCandidates(result)
	return result
}

// MatchKeys 按 key 顺序逐个查找，第一个有候选的 key 直接胜出，不再比较后续 key。
func MatchKeys(fsys afero.Fs, root string, names, keys []string, method archive.Method, fileName string) (Candidate, bool) {
	for _, key := range keys {
		if candidates := FindCandidates(fsys, root, names, key, method, fileName); len(candidates) > 0 {
			return candidates[0], true
		}
	}
	return Candidate{}, false
}

// ScanEntries 列出根目录下所有已知压缩方式的条目，供诊断接口与 list 命令使用。
func ScanEntries(fsys afero.Fs, root string) ([]Candidate, error) {
	names, err := ListEntryNames(fsys, root)
	if err != nil {
		return nil, err
	}
	var result []Candidate
	for _, codec := range archive.List() {
		for _, name := range names {
			archivePath := filepath.Join(EntryDir(root, name), codec.FileName)
			info, err := fsys.Stat(archivePath)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			result = append(result, Candidate{
				Key:         name,
				ArchivePath: archivePath,
				Method:      codec.Method,
				SizeBytes:   info.Size(),
				ModTime:     info.ModTime(),
			})
		}
	}
	sortCandidates(result)
	return result, nil
}

func sortCandidates(items []Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].ModTime.Equal(items[j].ModTime) {
			return items[i].ModTime.After(items[j].ModTime)
		}
		return items[i].Key < items[j].Key
	})
}
