package persistence

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/errs"
)

const hashLength = 16

// HashScene returns the SHA-256 digest of text, truncated to 16 hex
// characters, per spec.md §4.6's scene-hash rule.
func HashScene(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:hashLength]
}

// ValidateScene checks that the scene paths resuming a session match the
// saved set (canonical path, order-independent) and that currentText hashes
// to the session's stored scene_hash.
func ValidateScene(s *domain.Session, currentPaths []string, currentText string) error {
	if !samePathSet(s.ScenePaths, currentPaths) {
		return errs.NewSceneValidationError("scene path set does not match the saved session", s.ScenePaths, currentPaths)
	}
	if HashScene(currentText) != s.SceneHash {
		return errs.NewSceneValidationError("scene content has changed since the session was saved", s.ScenePaths, currentPaths)
	}
	return nil
}

func samePathSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := append([]string(nil), a...), append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// IndexFiles lists the canonical index files whose combined content forms
// the index-context hash — every index file except LEARNING.md, which is
// session-to-session memory, not a staleness input.
var IndexFiles = []string{"CANON.md", "CAST.md", "GLOSSARY.md", "STYLE.md", "THREADS.md", "TIMELINE.md"}

// HashIndexContext hashes the concatenation of the named index files'
// contents (missing files contribute an empty string), for change
// detection across sessions.
func HashIndexContext(contents map[string]string) string {
	h := sha256.New()
	for _, name := range IndexFiles {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(contents[name]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLength]
}

// CheckIndexContextStaleness compares currentHash against the session's
// stored index_context_hash and applies the three outcomes from spec.md
// §4.6: unchanged, LEARNING.md-only change (silent re-baseline), or a real
// drift (mark stale, record changed files, prompt exactly once).
func CheckIndexContextStaleness(s *domain.Session, currentHash string, changedFiles []string, learningOnlyChange bool) {
	if currentHash == s.IndexContextHash {
		return
	}
	if learningOnlyChange {
		s.IndexContextHash = currentHash
		return
	}
	s.IndexContextHash = currentHash
	s.IndexContextStale = true
	s.IndexChangedFiles = changedFiles
	if !s.IndexRerunPrompted {
		s.IndexRerunPrompted = true
	}
}
