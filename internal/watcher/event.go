package watcher

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MutationType mirrors the DOM mutation record types the watcher reacts to
type MutationType string

const (
	ChildList  MutationType = "childList"
	Attributes MutationType = "attributes"
)

// Mutation is one observed change of the page
type Mutation struct {
	Type   MutationType
	Target *goquery.Selection
	// AddedNodes is set for childList mutations
	AddedNodes *goquery.Selection
	// AttributeName is set for attribute mutations
	AttributeName string
}

// NavigationKind is how the page location changed
type NavigationKind string

const (
	HashChange   NavigationKind = "hashchange"
	PushState    NavigationKind = "pushstate"
	ReplaceState NavigationKind = "replacestate"
	PopState     NavigationKind = "popstate"
	Reload       NavigationKind = "reload"
)

// Navigation is a location change of a single page application
type Navigation struct {
	Kind NavigationKind
	URL  string
}

// Event is what an EventSource delivers: a batch of mutations or a navigation
type Event struct {
	Mutations  []Mutation
	Navigation *Navigation
}

// FilterConfig selects which mutations can affect product tables
type FilterConfig struct {
	// ChildListTargets matches the target of a childList mutation or one of its ancestors
	ChildListTargets string
	// AddedNodes matches added elements
	AddedNodes string
	// AddedNodesContain matches descendants of added elements
	AddedNodesContain string
	// AttributeTargets matches the target of an attribute mutation or one of its ancestors
	AttributeTargets  string
	HighlightClass    string
	TitleMarker       string
	TrackedAttributes []string
}

// RelevanceFilter decides whether a mutation warrants a rescan
type RelevanceFilter struct {
	config FilterConfig
}

// NewRelevanceFilter creates a filter. Empty selectors never match.
func NewRelevanceFilter(config FilterConfig) *RelevanceFilter {
	return &RelevanceFilter{config: config}
}

// Relevant reports whether any of the mutations is relevant
func (f *RelevanceFilter) Relevant(mutations []Mutation) bool {
	return slices.ContainsFunc(mutations, f.relevant)
}

func (f *RelevanceFilter) relevant(m Mutation) bool {
	if m.Target == nil {
		return false
	}

	switch m.Type {
	case ChildList:
		if closest(m.Target, f.config.ChildListTargets) {
			return true
		}
		if m.AddedNodes == nil || m.AddedNodes.Length() == 0 {
			return false
		}
		if f.config.AddedNodes != "" && m.AddedNodes.Is(f.config.AddedNodes) {
			return true
		}
		return f.config.AddedNodesContain != "" && m.AddedNodes.Find(f.config.AddedNodesContain).Length() > 0

	case Attributes:
		if closest(m.Target, f.config.AttributeTargets) {
			return true
		}
		if f.config.HighlightClass != "" && m.Target.HasClass(f.config.HighlightClass) {
			return true
		}
		if m.AttributeName == "title" && f.config.TitleMarker != "" &&
			strings.Contains(m.Target.AttrOr("title", ""), f.config.TitleMarker) {
			return true
		}
		return slices.Contains(f.config.TrackedAttributes, m.AttributeName)
	}
	return false
}

func closest(sel *goquery.Selection, selector string) bool {
	return selector != "" && sel.Closest(selector).Length() > 0
}
