package cache

import "github.com/any-hub/any-cache/internal/archive"

// Outcome 是恢复结果的标签。
type Outcome int

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
	// OutcomeFailed 表示内部失败已被吸收，对调用方等同于未命中。
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeFailed:
		return "failed"
	default:
		return "miss"
	}
}

// RestoreResult 描述一次恢复：命中时 Key 为匹配到的条目目录名。
type RestoreResult struct {
	Outcome     Outcome
	Key         string
	ExactMatch  bool
	ArchivePath string
	Method      archive.Method
	SizeBytes   int64
	Err         error
}

// Hit 报告是否命中缓存。
func (r RestoreResult) Hit() bool {
	return r.Outcome == OutcomeHit
}

// MatchedKey 返回命中的 key；未命中或失败时 ok 为 false。
func (r RestoreResult) MatchedKey() (key string, ok bool) {
	if r.Outcome != OutcomeHit {
		return "", false
	}
	return r.Key, true
}

// SaveStatus 是保存操作的状态码，与命令行输出保持一致。
type SaveStatus int

const (
	StatusSuccess     SaveStatus = 1
	StatusSoftFailure SaveStatus = -1
)

func (s SaveStatus) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "soft-failure"
}
