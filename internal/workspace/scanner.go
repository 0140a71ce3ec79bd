// Package workspace reads metadata files from a local checkout so that
// unindexed edits show up in search results without touching the store.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"xppkb/internal/config"
	"xppkb/internal/metadata"
	"xppkb/internal/symbols"
)

// DefaultModel labels workspace symbols whose path shows no model folder.
const DefaultModel = "workspace"

// Snapshot is the result of one scan.
type Snapshot struct {
	Symbols   []symbols.Symbol
	Files     int
	Failures  int
	ScannedAt time.Time
}

// Scanner finds and parses metadata files under a workspace root.
type Scanner struct {
	root    string
	include []string
	parser  metadata.Parser
	logger  *slog.Logger
}

// NewScanner creates a scanner. An empty include list matches every XML file.
func NewScanner(cfg config.WorkspaceConfig, parser metadata.Parser, logger *slog.Logger) *Scanner {
	if parser == nil {
		parser = metadata.NewXMLParser()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	include := cfg.Include
	if len(include) == 0 {
		include = []string{"**/*.xml"}
	}
	return &Scanner{root: cfg.Root, include: include, parser: parser, logger: logger}
}

// Root returns the workspace root, or "" when none is configured.
func (s *Scanner) Root() string {
	return s.root
}

// Scan parses every matching metadata file. Files in .gitignore'd paths
// and hidden directories are skipped; unparseable files are counted.
func (s *Scanner) Scan(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{ScannedAt: time.Now()}
	if s.root == "" {
		return snap, nil
	}

	files, err := s.files(ctx)
	if err != nil {
		return nil, err
	}
	snap.Files = len(files)

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.root, filepath.FromSlash(rel))
		syms, err := s.parser.ParseFile(path, modelOf(rel))
		if err != nil {
			snap.Failures++
			s.logger.Debug("Skipping workspace file", "path", rel, "error", err.Error())
			continue
		}
		snap.Symbols = append(snap.Symbols, syms...)
	}

	s.logger.Debug("Workspace scanned",
		"root", s.root,
		"files", snap.Files,
		"symbols", len(snap.Symbols),
		"failures", snap.Failures,
	)
	return snap, nil
}

// files returns the slash-separated paths, relative to root, of the
// metadata files the scan covers, sorted.
func (s *Scanner) files(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", s.root)
	}
	gi := loadGitignore(s.root)

	var out []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if s.Matches(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Matches reports whether rel, a slash-separated path relative to the
// root, is a metadata file the scan covers: it matches an include glob
// and sits in an AxClass, AxTable, or AxEnum folder.
func (s *Scanner) Matches(rel string) bool {
	if _, ok := metadata.ElementDirs[elementDir(rel)]; !ok {
		return false
	}
	for _, pattern := range s.include {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func elementDir(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// modelOf reads the model from a <Model>/<AxFolder>/<File>.xml path.
func modelOf(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) < 3 {
		return DefaultModel
	}
	return parts[len(parts)-3]
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
