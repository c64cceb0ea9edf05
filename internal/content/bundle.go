package content

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"certprep-study-service/internal/domain"
)

//go:embed data
var bundle embed.FS

// BundleLoader reads the content compiled into the binary:
// data/questions/<subject>/*.json (one chapter per file, filename order)
// and data/theory/<subject>.json (a list of posts).
type BundleLoader struct {
	fsys fs.FS
}

// Bundled returns a loader over the embedded content bundle.
func Bundled() *BundleLoader {
	sub, err := fs.Sub(bundle, "data")
	if err != nil {
		panic(err)
	}
	return &BundleLoader{fsys: sub}
}

// NewBundleLoader reads the same layout from any file system (e.g. os.DirFS).
func NewBundleLoader(fsys fs.FS) *BundleLoader {
	return &BundleLoader{fsys: fsys}
}

func (l *BundleLoader) LoadChapters(_ context.Context, subject domain.Subject) ([]domain.QuestionSet, error) {
	dir := path.Join("questions", string(subject))
	entries, err := fs.ReadDir(l.fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sets := make([]domain.QuestionSet, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(l.fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var set domain.QuestionSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (l *BundleLoader) LoadPosts(_ context.Context, subject domain.Subject) ([]domain.Post, error) {
	name := path.Join("theory", string(subject)+".json")
	raw, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var posts []domain.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return posts, nil
}
