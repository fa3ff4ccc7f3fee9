package watcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileSourceConfig selects what a FileSource compares between two snapshots
type FileSourceConfig struct {
	// Containers are fingerprinted; a changed container emits a childList mutation
	Containers string
	// Attributes are compared per element; a changed value emits an attribute mutation
	Attributes []string
	// Targets must be present for Probe to succeed
	Targets string
}

// FileSource turns rewrites of an HTML snapshot file into page events.
// The file is expected to be rewritten by a page exporter; each write is
// diffed against the previous snapshot.
type FileSource struct {
	path   string
	config FileSourceConfig
	logger *zap.Logger

	last *snapshot
}

type snapshot struct {
	doc        *goquery.Document
	containers map[string]string
	attributes map[string]string
	nodes      map[string]*goquery.Selection
}

// NewFileSource creates a source for the HTML file at path
func NewFileSource(path string, config FileSourceConfig, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{
		path:   filepath.Clean(path),
		config: config,
		logger: logger.Named("file_source").With(zap.String("path", path)),
	}
}

// Probe reports whether the file exists and contains a watch target
func (s *FileSource) Probe() bool {
	doc, err := s.read()
	if err != nil {
		return false
	}
	return s.config.Targets == "" || doc.Find(s.config.Targets).Length() > 0
}

// Run watches the file's directory until ctx is done
func (s *FileSource) Run(ctx context.Context, events chan<- Event) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	if snap, err := s.load(); err == nil {
		s.last = snap
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Initial snapshot failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			ev, ok := s.handle(event)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (s *FileSource) handle(event fsnotify.Event) (Event, bool) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
		snap, err := s.load()
		if err != nil {
			s.logger.Debug("Snapshot not readable", zap.String("op", event.Op.String()), zap.Error(err))
			return Event{}, false
		}
		s.last = snap
		return Event{Navigation: &Navigation{Kind: Reload, URL: "file://" + s.path}}, true

	case event.Has(fsnotify.Write):
		snap, err := s.load()
		if err != nil {
			s.logger.Warn("Snapshot parse failed", zap.Error(err))
			return Event{}, false
		}
		mutations := diff(s.last, snap)
		s.last = snap
		if len(mutations) == 0 {
			return Event{}, false
		}
		return Event{Mutations: mutations}, true

	case event.Has(fsnotify.Remove):
		s.logger.Debug("Snapshot removed")
	}
	return Event{}, false
}

func (s *FileSource) read() (*goquery.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(data))
}

func (s *FileSource) load() (*snapshot, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return s.fingerprint(doc), nil
}

func (s *FileSource) fingerprint(doc *goquery.Document) *snapshot {
	snap := &snapshot{
		doc:        doc,
		containers: make(map[string]string),
		attributes: make(map[string]string),
		nodes:      make(map[string]*goquery.Selection),
	}

	if s.config.Containers != "" {
		doc.Find(s.config.Containers).Each(func(i int, el *goquery.Selection) {
			key := "container/" + strconv.Itoa(i)
			markup, err := goquery.OuterHtml(el)
			if err != nil {
				return
			}
			sum := sha256.Sum256([]byte(markup))
			snap.containers[key] = hex.EncodeToString(sum[:])
			snap.nodes[key] = el
		})
	}

	for _, attr := range s.config.Attributes {
		doc.Find("[" + attr + "]").Each(func(i int, el *goquery.Selection) {
			key := attr + "/" + strconv.Itoa(i)
			snap.attributes[key] = el.AttrOr(attr, "")
			snap.nodes[key] = el
		})
	}
	return snap
}

// diff lists the mutations that turn prev into next
func diff(prev, next *snapshot) []Mutation {
	var mutations []Mutation

	for key, sum := range next.containers {
		if prev != nil && prev.containers[key] == sum {
			continue
		}
		el := next.nodes[key]
		mutations = append(mutations, Mutation{Type: ChildList, Target: el, AddedNodes: el.Children()})
	}

	for key, value := range next.attributes {
		if prev != nil {
			if old, ok := prev.attributes[key]; ok && old == value {
				continue
			}
		}
		attr := key[:strings.LastIndexByte(key, '/')]
		mutations = append(mutations, Mutation{Type: Attributes, Target: next.nodes[key], AttributeName: attr})
	}
	return mutations
}
