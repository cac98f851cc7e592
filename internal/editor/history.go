package editor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"cv-editor/internal/logger"
	"cv-editor/internal/types"
)

const versionExt = ".pdf"

// HistoryManager keeps earlier versions of each document on disk so an edit
// can be undone. Versions live in <dir>/<documentID>/ and are named so that
// lexical order is chronological.
type HistoryManager struct {
	dir         string
	maxVersions int
	mu          sync.Mutex
	seq         int
}

// NewHistoryManager creates a HistoryManager. maxVersions <= 0 keeps every version.
func NewHistoryManager(dir string, maxVersions int) *HistoryManager {
	return &HistoryManager{
		dir:         dir,
		maxVersions: maxVersions,
	}
}

// DocumentID derives a stable ID from the document bytes.
func DocumentID(pdfBytes []byte) string {
	sum := sha256.Sum256(pdfBytes)
	return hex.EncodeToString(sum[:8])
}

var validDocumentID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func (m *HistoryManager) docDir(docID string) (string, error) {
	if !validDocumentID.MatchString(docID) || strings.Trim(docID, ".") == "" {
		return "", types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid document ID", docID, nil)
	}
	return filepath.Join(m.dir, docID), nil
}

// SaveVersion stores data as the newest version of docID and returns its path.
func (m *HistoryManager) SaveVersion(docID string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.docDir(docID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create history directory", err, logger.String("dir", dir))
		return "", types.NewAppError(types.ErrHistory, "failed to create history directory", err)
	}

	m.seq++
	name := fmt.Sprintf("%s_%06d%s", time.Now().UTC().Format("20060102T150405.000000000"), m.seq%1000000, versionExt)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Error("failed to write version", err, logger.String("path", path))
		return "", types.NewAppError(types.ErrHistory, "failed to write version", err)
	}
	logger.Debug("version saved", logger.String("documentID", docID), logger.String("path", path))

	if err := m.cleanup(docID); err != nil {
		logger.Warn("failed to prune history", logger.Err(err), logger.String("documentID", docID))
	}
	return path, nil
}

// ListVersions lists the stored versions of docID, newest first.
func (m *HistoryManager) ListVersions(docID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(docID)
}

func (m *HistoryManager) list(docID string) ([]string, error) {
	dir, err := m.docDir(docID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrHistory, "failed to read history directory", err)
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), versionExt) {
			versions = append(versions, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

// Latest returns the newest stored version of docID.
func (m *HistoryManager) Latest(docID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, err := m.list(docID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "no history for document", docID, nil)
	}
	data, err := os.ReadFile(versions[0])
	if err != nil {
		return nil, types.NewAppError(types.ErrHistory, "failed to read version", err)
	}
	return data, nil
}

// Undo 取出并删除最新的版本
func (m *HistoryManager) Undo(docID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, err := m.list(docID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "nothing to undo", docID, nil)
	}

	data, err := os.ReadFile(versions[0])
	if err != nil {
		return nil, types.NewAppError(types.ErrHistory, "failed to read version", err)
	}
	if err := os.Remove(versions[0]); err != nil {
		return nil, types.NewAppError(types.ErrHistory, "failed to remove version", err)
	}
	logger.Info("version restored",
		logger.String("documentID", docID),
		logger.Int("remaining", len(versions)-1))
	return data, nil
}

// Clear removes the whole history of docID.
func (m *HistoryManager) Clear(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.docDir(docID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return types.NewAppError(types.ErrHistory, "failed to clear history", err)
	}
	return nil
}

// cleanup removes old versions, keeping only the most recent maxVersions.
func (m *HistoryManager) cleanup(docID string) error {
	if m.maxVersions <= 0 {
		return nil
	}
	versions, err := m.list(docID)
	if err != nil {
		return err
	}
	if len(versions) <= m.maxVersions {
		return nil
	}

	for _, path := range versions[m.maxVersions:] {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove old version", logger.Err(err), logger.String("path", path))
			continue
		}
		logger.Debug("removed old version", logger.String("path", path))
	}
	logger.Debug("history pruned",
		logger.String("documentID", docID),
		logger.Int("kept", m.maxVersions),
		logger.Int("removed", len(versions)-m.maxVersions))
	return nil
}
