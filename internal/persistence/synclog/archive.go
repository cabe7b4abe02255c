package synclog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type ArchiveMeta struct {
	Day       string   `json:"day"`
	Files     []string `json:"files"`
	CreatedAt string   `json:"created_at"`
}

// Archive moves hourly files that ended before cutoff into
// sync/archive/<YYYY-MM-DD>/ and rewrites each day's meta.json. The hour
// currently being written is never moved. It returns the archived paths.
func (l *Logger) Archive(cutoff time.Time) ([]string, error) {
	l.w.mu.Lock()
	active := l.w.curHour
	l.w.mu.Unlock()
	return archiveDir(l.w.baseDir, l.w.prefix, cutoff, active)
}

func archiveDir(baseDir, prefix string, cutoff time.Time, active string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(baseDir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	byDay := map[string][]string{}
	var moved []string
	for _, src := range files {
		hour := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(src), prefix+"-"), ".jsonl.zst")
		start, err := time.Parse("2006-01-02-15", hour)
		if err != nil || hour == active {
			continue
		}
		if start.Add(time.Hour).After(cutoff) {
			continue
		}
		day := start.Format("2006-01-02")
		dir := filepath.Join(baseDir, "archive", day)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return moved, err
		}
		dst := filepath.Join(dir, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("archive %s: %w", filepath.Base(src), err)
		}
		byDay[day] = append(byDay[day], filepath.Base(dst))
		moved = append(moved, dst)
	}

	for day := range byDay {
		dir := filepath.Join(baseDir, "archive", day)
		entries, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
		if err != nil {
			return moved, err
		}
		meta := ArchiveMeta{Day: day, CreatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
		for _, e := range entries {
			meta.Files = append(meta.Files, filepath.Base(e))
		}
		sort.Strings(meta.Files)
		if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
			_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
		}
	}
	return moved, nil
}

// ReadArchiveMeta reads sync/archive/<day>/meta.json under dataDir.
func ReadArchiveMeta(dataDir, day string) (ArchiveMeta, error) {
	var m ArchiveMeta
	b, err := os.ReadFile(filepath.Join(dataDir, "sync", "archive", day, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
