package promptbuild

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kayz/ctf-assets/internal/assets"
)

var auditMu sync.Mutex

type auditRecord struct {
	Timestamp     string `json:"timestamp"`
	RequestDigest string `json:"request_digest"`
	Kind          string `json:"kind"`
	Titled        bool   `json:"titled,omitempty"`
	Quantity      int    `json:"quantity"`
	Language      string `json:"language"`
	System        string `json:"system"`
	User          string `json:"user"`
}

func (b *Builder) writeAuditRecord(req assets.Request, pair assets.PromptPair) error {
	return b.writeAuditRecordWithNow(req, pair, time.Now())
}

func (b *Builder) writeAuditRecordWithNow(req assets.Request, pair assets.PromptPair, now time.Time) error {
	if !b.cfg.Enabled {
		return nil
	}

	auditDir := b.dir()
	if err := os.MkdirAll(auditDir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s.jsonl", b.filePrefix(), now.Format("2006-01-02"))
	filePath := filepath.Join(auditDir, fileName)

	record := auditRecord{
		Timestamp:     now.Format(time.RFC3339),
		RequestDigest: buildRequestDigest(req),
		Kind:          string(req.Kind),
		Titled:        req.Titled,
		Quantity:      req.EffectiveQuantity(),
		Language:      req.Language,
		System:        pair.System,
		User:          pair.User,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if err := appendJSONL(filePath, line); err != nil {
		return err
	}

	if err := b.cleanupOldAuditFilesWithNow(now); err != nil {
		return err
	}

	return nil
}

func (b *Builder) dir() string {
	if strings.TrimSpace(b.cfg.Dir) == "" {
		return "prompt-audit"
	}
	return b.cfg.Dir
}

func (b *Builder) filePrefix() string {
	prefix := strings.TrimSpace(b.cfg.FilePrefix)
	if prefix == "" {
		prefix = "prompts"
	}
	return prefix
}

func appendJSONL(filePath string, line []byte) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// CleanupOldAuditFiles removes audit files older than the retention window.
func (b *Builder) CleanupOldAuditFiles() error {
	auditMu.Lock()
	defer auditMu.Unlock()
	return b.cleanupOldAuditFilesWithNow(time.Now())
}

func (b *Builder) cleanupOldAuditFilesWithNow(now time.Time) error {
	if !b.cfg.Enabled || b.cfg.RetentionDays <= 0 {
		return nil
	}

	entries, err := os.ReadDir(b.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list audit dir: %w", err)
	}

	prefix := b.filePrefix()
	cutoff := now.AddDate(0, 0, -b.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		filePath := filepath.Join(b.dir(), name)
		fileDate, ok := parseAuditDate(name, prefix)
		if ok {
			if fileDate.Before(startOfDay(cutoff)) {
				if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove old audit file %s: %w", filePath, err)
				}
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat audit file %s: %w", filePath, err)
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove old audit file %s: %w", filePath, err)
			}
		}
	}

	return nil
}

func parseAuditDate(filename, prefix string) (time.Time, bool) {
	raw := strings.TrimSuffix(filename, ".jsonl")
	raw = strings.TrimPrefix(raw, prefix+"-")
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// buildRequestDigest hashes the request parameters, not the prompt text, so
// identical requests share a digest across prompt wording changes.
func buildRequestDigest(req assets.Request) string {
	digestInput := struct {
		Kind        string  `json:"kind"`
		Titled      bool    `json:"titled"`
		Theme       string  `json:"theme"`
		Tone        string  `json:"tone"`
		Quantity    int     `json:"quantity"`
		Language    string  `json:"language"`
		FlagFormat  string  `json:"flag_format"`
		ExtraLen    int     `json:"instructions_len"`
		SysExtraLen int     `json:"system_instructions_len"`
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
	}{
		Kind:        string(req.Kind),
		Titled:      req.Titled,
		Theme:       strings.TrimSpace(req.Theme),
		Tone:        strings.TrimSpace(req.Tone),
		Quantity:    req.EffectiveQuantity(),
		Language:    req.Language,
		FlagFormat:  req.FlagFormat,
		ExtraLen:    len(strings.TrimSpace(req.Instructions)),
		SysExtraLen: len(strings.TrimSpace(req.SystemInstructions)),
		Model:       req.Model,
		Temperature: req.Temperature,
	}
	payload, _ := json.Marshal(digestInput)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
