package knowledge

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/relaykit/orchestrate/internal/model"
)

// docFile is the on-disk shape of one knowledge document, one YAML file
// per document under the ingest directory.
type docFile struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Domain   string   `yaml:"domain"`
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Tags     []string `yaml:"tags"`
	Summary  string   `yaml:"summary"`
	Body     string   `yaml:"body"`
}

// LoadDocuments walks dir on fs and indexes every *.yaml file found as a
// KnowledgeDocument. Using an afero.Fs rather than the os package
// directly follows the teacher's own filesystem-abstraction convention
// (internal/variables/store.go constructs its store over afero.Fs so
// tests can substitute afero.NewMemMapFs()); bulk document ingestion is
// the one place in this engine that reads a directory tree wholesale, so
// it is the natural home for that abstraction.
func LoadDocuments(fs afero.Fs, dir string) ([]*model.KnowledgeDocument, error) {
	var docs []*model.KnowledgeDocument

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingest directory %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}

		var df docFile
		if err := yaml.Unmarshal(raw, &df); err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", path, err)
		}
		if df.ID == "" {
			df.ID = model.NewID()
		}

		docs = append(docs, &model.KnowledgeDocument{
			ID:       df.ID,
			Title:    df.Title,
			Domain:   df.Domain,
			Category: model.DocumentCategory(df.Category),
			Keywords: df.Keywords,
			Tags:     df.Tags,
			Summary:  df.Summary,
			Body:     df.Body,
		})
	}

	return docs, nil
}
