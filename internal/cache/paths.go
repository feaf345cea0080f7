package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

const globMeta = "*?[{"

// ResolvePaths 将调用方给出的路径/通配模式解析为实际存在的路径集合，结果相对 workDir。
//
//   - 以 ~ 开头的路径展开到用户主目录；
//   - 含通配符的模式按 / 分隔编译，** 可跨目录；
//   - 以 ! 开头的模式从已匹配结果中剔除（含其子路径）。
//
// 不存在的字面路径会被静默忽略，最终为空时由 Saver 报告“无可缓存内容”。
func ResolvePaths(workDir string, patterns []string) ([]string, error) {
	root, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	matched := map[string]struct{}{}
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		exclude := strings.HasPrefix(pattern, "!")
		if exclude {
			pattern = strings.TrimSpace(strings.TrimPrefix(pattern, "!"))
		}
		base, rel, err := splitPattern(root, pattern)
		if err != nil {
			return nil, err
		}
		literal := filepath.Join(base, filepath.FromSlash(rel))

		// 已存在的路径按字面处理，即使文件名里带有 [ 或 { 等字符。
		_, statErr := os.Lstat(literal)
		if statErr == nil || !strings.ContainsAny(rel, globMeta) {
			if exclude {
				removeUnder(matched, literal)
			} else if statErr == nil {
				matched[literal] = struct{}{}
			}
			continue
		}

		hits, err := expandGlob(base, rel)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", raw, err)
		}
		for _, hit := range hits {
			if exclude {
				removeUnder(matched, hit)
			} else {
				matched[hit] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(matched))
	for abs := range matched {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	sort.Strings(result)
	return result, nil
}

// splitPattern 把模式拆成字面基准目录与调用方给出的相对部分。通配符只在相对部分中识别，
// 工作目录或主目录自身的名字不参与匹配。
func splitPattern(root, pattern string) (base, rel string, err error) {
	switch {
	case pattern == "~" || strings.HasPrefix(pattern, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", fmt.Errorf("expand home directory: %w", err)
		}
		return filepath.Clean(home), cleanRooted(strings.TrimPrefix(pattern, "~")), nil
	case filepath.IsAbs(pattern):
		vol := filepath.VolumeName(pattern)
		return vol + string(filepath.Separator), cleanRooted(pattern[len(vol):]), nil
	default:
		// 相对模式允许以 ../ 指向工作目录之外。
		rel = path.Clean(filepath.ToSlash(pattern))
		if rel == "." {
			rel = ""
		}
		return root, rel, nil
	}
}

// cleanRooted 清理一个挂在基准目录下的模式，结果不含前导 "/"。
func cleanRooted(pattern string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(pattern)), "/")
}

// expandGlob 从 base 加上模式中不含通配符的前缀目录开始遍历，逐个匹配。
func expandGlob(base, rel string) ([]string, error) {
	segments := strings.Split(rel, "/")
	static := 0
	for static < len(segments) && !strings.ContainsAny(segments[static], globMeta) {
		static++
	}
	walkRoot := filepath.Clean(filepath.Join(base, filepath.FromSlash(strings.Join(segments[:static], "/"))))
	rest := strings.Join(segments[static:], "/")

	prefix := strings.TrimSuffix(filepath.ToSlash(walkRoot), "/")
	g, err := glob.Compile(glob.QuoteMeta(prefix)+"/"+rest, '/')
	if err != nil {
		return nil, err
	}

	var hits []string
	err = filepath.WalkDir(walkRoot, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) || errors.Is(walkErr, fs.ErrPermission) {
				return nil
			}
			return walkErr
		}
		if current == walkRoot {
			return nil
		}
		if g.Match(filepath.ToSlash(current)) {
			hits = append(hits, current)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func removeUnder(matched map[string]struct{}, target string) {
	prefix := target + string(filepath.Separator)
	for item := range matched {
		if item == target || strings.HasPrefix(item, prefix) {
			delete(matched, item)
		}
	}
}
