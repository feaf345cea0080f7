package routes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/any-cache/internal/archive"
	"github.com/any-hub/any-cache/internal/cache"
)

// RegisterEntryRoutes 暴露 /-/entries 诊断接口，供排查缓存命中情况；只读，不返回归档内容。
func RegisterEntryRoutes(app *fiber.App, store cache.Store, method archive.Method) {
	if app == nil || store == nil {
		return
	}

	app.Get("/-/entries", func(c fiber.Ctx) error {
		entries, err := store.Entries(requestContext(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "scan_failed"})
		}
		return c.JSON(fiber.Map{
			"store_root": store.Root(),
			"entries":    encodeEntries(entries),
		})
	})

	// 与 restore 相同的前缀匹配规则，但只查找不解压。
	app.Get("/-/entries/:key", func(c fiber.Ctx) error {
		key := strings.TrimSpace(c.Params("key"))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key_required"})
		}
		keys := []string{key}
		if fallback := strings.TrimSpace(c.Query("restore-keys")); fallback != "" {
			for _, item := range strings.Split(fallback, ",") {
				if item = strings.TrimSpace(item); item != "" {
					keys = append(keys, item)
				}
			}
		}
		if err := cache.ValidateKeys(keys); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "invalid_key",
				"reason": err.Error(),
			})
		}

		match, err := store.Lookup(requestContext(c), keys, method)
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache_miss"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
		}
		payload := encodeEntry(*match)
		payload.ExactMatch = match.Key == key
		return c.JSON(payload)
	})
}

// RegisterCodecRoutes 暴露 /-/codecs，列出已注册的压缩方式与首选方式。
func RegisterCodecRoutes(app *fiber.App) {
	if app == nil {
		return
	}

	app.Get("/-/codecs", func(c fiber.Ctx) error {
		preferred, err := archive.Probe()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "no_codec"})
		}
		return c.JSON(fiber.Map{
			"preferred": string(preferred),
			"codecs":    encodeCodecs(archive.List()),
		})
	})
}

type entryPayload struct {
	Key        string    `json:"key"`
	Method     string    `json:"method"`
	Archive    string    `json:"archive"`
	SizeBytes  int64     `json:"size_bytes"`
	Size       string    `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	ExactMatch bool      `json:"exact_match,omitempty"`
}

type codecPayload struct {
	Method      string `json:"method"`
	FileName    string `json:"file_name"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

func encodeEntries(items []cache.Candidate) []entryPayload {
	result := make([]entryPayload, 0, len(items))
	for _, item := range items {
		result = append(result, encodeEntry(item))
	}
	return result
}

func encodeEntry(item cache.Candidate) entryPayload {
	return entryPayload{
		Key:       item.Key,
		Method:    string(item.Method),
		Archive:   item.ArchivePath,
		SizeBytes: item.SizeBytes,
		Size:      humanize.IBytes(uint64(item.SizeBytes)),
		ModTime:   item.ModTime.UTC(),
	}
}

func encodeCodecs(codecs []archive.Codec) []codecPayload {
	result := make([]codecPayload, 0, len(codecs))
	for _, codec := range codecs {
		result = append(result, codecPayload{
			Method:      string(codec.Method),
			FileName:    codec.FileName,
			Description: codec.Description,
			Priority:    codec.Priority,
		})
	}
	return result
}

func requestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
