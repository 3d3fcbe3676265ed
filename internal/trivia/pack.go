// internal/trivia/pack.go
package trivia

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Question is one trivia record: a prompt, its options, and the index of the
// correct option.
type Question struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Pack is a named collection of questions identified by a string id
// (the file name without extension).
type Pack struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// PackInfo is the listing entry for an available pack.
type PackInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	QuestionCount int    `json:"questionCount"`
}

// LoadPack reads a single pack JSON file from dir.
func LoadPack(dir, id string) (Pack, error) {
	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		return Pack{}, fmt.Errorf("read pack %q: %w", id, err)
	}
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return Pack{}, fmt.Errorf("parse pack %q: %w", id, err)
	}
	p.ID = id
	return p, nil
}

// ListPacks enumerates the packs available in dir.
func ListPacks(dir string) ([]PackInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read packs dir: %w", err)
	}
	var infos []PackInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		p, err := LoadPack(dir, id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, PackInfo{
			ID:            id,
			Name:          p.Name,
			Description:   p.Description,
			QuestionCount: len(p.Questions),
		})
	}
	return infos, nil
}
