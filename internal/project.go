package internal

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/feattree/internal/catalog"
)

// EnvProject overrides the project root when no root is configured.
const EnvProject = "FEAT_TREE_PROJECT"

// Paths is where the catalog of one project lives.
type Paths struct {
	WorkingDir  string
	MarkerFile  string
	MarkerValue string
	Root        string
	Dir         string
	Database    string
}

// ResolvePaths picks the project root from, in order, the configured root,
// $FEAT_TREE_PROJECT, the ~/.feat-tree/current-project marker written by
// the session hook, and the working directory.
func ResolvePaths(cfg ProjectConfig) (Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Paths{}, err
	}
	home, _ := os.UserHomeDir()
	return resolvePaths(cfg, os.Getenv, home, wd), nil
}

func resolvePaths(cfg ProjectConfig, getenv func(string) string, home, wd string) Paths {
	p := Paths{WorkingDir: wd}
	if home != "" {
		p.MarkerFile = filepath.Join(home, ".feat-tree", "current-project")
		if data, err := os.ReadFile(p.MarkerFile); err == nil {
			p.MarkerValue = strings.TrimSpace(string(data))
		}
	}

	root := cfg.Root
	if root == "" {
		root = strings.TrimSpace(getenv(EnvProject))
	}
	if root == "" {
		root = p.MarkerValue
	}
	if root == "" {
		root = wd
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(wd, root)
	}

	p.Root = filepath.Clean(root)
	p.Dir = filepath.Join(p.Root, cfg.DirName)
	p.Database = filepath.Join(p.Dir, cfg.DBFile)
	return p
}

// Info converts p into the form reported by the catalog service.
func (p Paths) Info() catalog.Info {
	return catalog.Info{
		WorkingDir:  p.WorkingDir,
		MarkerFile:  p.MarkerFile,
		MarkerValue: p.MarkerValue,
		ProjectRoot: p.Root,
		DocsDir:     p.Dir,
		Database:    p.Database,
	}
}
