package platform

import (
	"os"
	"path/filepath"

	"github.com/alanmeadows/lit-critic/internal/core"
	"github.com/alanmeadows/lit-critic/internal/persistence"
)

const learningFileName = "LEARNING.md"

// loadIndexFiles reads the six canonical index files from projectDir. A
// missing file contributes an empty string, matching
// persistence.HashIndexContext's treatment of absent files.
func loadIndexFiles(projectDir string) (map[string]string, error) {
	contents := make(map[string]string, len(persistence.IndexFiles))
	for _, name := range persistence.IndexFiles {
		data, err := os.ReadFile(filepath.Join(projectDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				contents[name] = ""
				continue
			}
			return nil, err
		}
		contents[name] = string(data)
	}
	return contents, nil
}

func indexesFromContents(contents map[string]string) core.AnalyzeIndexes {
	return core.AnalyzeIndexes{
		CANON:    contents["CANON.md"],
		CAST:     contents["CAST.md"],
		GLOSSARY: contents["GLOSSARY.md"],
		STYLE:    contents["STYLE.md"],
		THREADS:  contents["THREADS.md"],
		TIMELINE: contents["TIMELINE.md"],
	}
}

func learningFilePath(projectDir string) string {
	return filepath.Join(projectDir, learningFileName)
}
