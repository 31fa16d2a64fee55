package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ocean-authoring/ocean-backend/internal/document"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

var renderOutDir string

var renderCmd = &cobra.Command{
	Use:   "render <project.yaml|project.json>",
	Short: "Export a project file to .docx or .pptx without the server",
	Long: `render reads a project (topic, type and sections) from a YAML or JSON
file and writes the exported document. Section content uses the same
**bold** and bullet conventions as the API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := renderFile(args[0], renderOutDir)
		if err != nil {
			return err
		}
		slog.Info("document written", "path", path)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutDir, "out", "o", ".", "output directory")
}

// projectFile is the on-disk shape accepted by render. JSON is valid YAML, so
// one decoder handles both.
type projectFile struct {
	Topic    string           `yaml:"topic"`
	Type     string           `yaml:"type"`
	Sections []domain.Section `yaml:"sections"`
}

func loadProjectFile(path string) (*projectFile, domain.ProjectType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var pf projectFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", path, err)
	}
	if pf.Topic == "" {
		return nil, "", fmt.Errorf("%s: %w: topic is required", path, domain.ErrValidation)
	}
	t, err := domain.ParseProjectType(pf.Type)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return &pf, t, nil
}

// safeFilename keeps a topic-derived name inside the output directory.
func safeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}, name)
	return filepath.Base(name)
}

func renderFile(path, outDir string) (string, error) {
	pf, t, err := loadProjectFile(path)
	if err != nil {
		return "", err
	}

	sections := make([]document.Section, len(pf.Sections))
	for i, s := range pf.Sections {
		sections[i] = document.Section{Title: s.Title, Content: s.Content}
	}

	f, err := document.NewExporter().Export(string(t), pf.Topic, sections)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, safeFilename(f.Filename))
	if err := os.WriteFile(out, f.Data, 0o644); err != nil {
		return "", err
	}
	return out, nil
}
