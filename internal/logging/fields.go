package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CacheFields 提供 key/压缩方式/缓存根目录字段，供 CLI 汇总保存与恢复结果。
func CacheFields(key, method, storePath string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"key":        key,
		"method":     method,
		"store_path": storePath,
		"cache_hit":  cacheHit,
	}
}

// RequestFields 提供诊断接口的请求字段。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
