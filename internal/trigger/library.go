package trigger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

var extensions = map[string]Format{
	".json": FormatJSON,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
}

// lookup order when several files share a name
var extOrder = []string{".json", ".yaml", ".yml"}

// Library resolves pack names to files in a directory.
type Library struct {
	dir string
}

// NewLibrary creates a Library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the pack directory.
func (l *Library) Dir() string { return l.dir }

// Path returns the file backing the named pack.
func (l *Library) Path(name string) (string, Format, error) {
	if err := ValidName(name); err != nil {
		return "", "", err
	}
	for _, ext := range extOrder {
		p := filepath.Join(l.dir, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, extensions[ext], nil
		}
	}
	return "", "", ErrNotFound
}

// Load reads and compiles the named pack. Every failure is a *LoadError.
func (l *Library) Load(name string) (*Set, error) {
	path, format, err := l.Path(name)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Name: name, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	set, err := Parse(name, data, format)
	if err != nil {
		return nil, &LoadError{Name: name, Err: fmt.Errorf("%s: %w", path, err)}
	}
	set.Source = path
	return set, nil
}

// Names lists the packs available in the directory.
func (l *Library) Names() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list packs in %s: %w", l.dir, err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := packName(e.Name())
		if ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Watch calls onChange with the pack name whenever a pack file in the
// directory is written or created. onChange runs on the watcher goroutine.
// Call the returned stop function to clean up.
func (l *Library) Watch(onChange func(name string)) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pack watcher: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("pack watcher add %s: %w", l.dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if name, ok := packName(filepath.Base(ev.Name)); ok {
					onChange(name)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

func packName(file string) (string, bool) {
	ext := filepath.Ext(file)
	if _, ok := extensions[ext]; !ok {
		return "", false
	}
	name := strings.TrimSuffix(file, ext)
	if ValidName(name) != nil {
		return "", false
	}
	return name, true
}
