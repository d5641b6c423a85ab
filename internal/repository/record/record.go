package record

import (
	"context"

	"github.com/kailas-cloud/appsearch/internal/domain"
)

// Record is a CMS record loaded from the records table.
type Record struct {
	id           string
	className    string
	title        string
	link         string
	viewGroups   []string
	showInSearch *bool
	archived     bool

	snippets         map[string]string
	clickthroughLink string
}

var (
	_ domain.Record       = (*Record)(nil)
	_ domain.SearchViewer = (*Record)(nil)
)

// ID returns the record ID within its class.
func (r *Record) ID() string { return r.id }

// ClassName returns the record's base class.
func (r *Record) ClassName() string { return r.className }

// Title returns the display title.
func (r *Record) Title() string { return r.title }

// Link returns the URL the record is served at.
func (r *Record) Link() string { return r.link }

// Exists is false for archived records.
func (r *Record) Exists() bool { return !r.archived }

// CanView allows everyone when no view groups are set, otherwise members of any listed group.
func (r *Record) CanView(_ context.Context, member *domain.Member) bool {
	if len(r.viewGroups) == 0 {
		return true
	}
	for _, g := range r.viewGroups {
		if member.InGroup(g) {
			return true
		}
	}
	return false
}

// CanViewInSearch hides records explicitly excluded from search. Otherwise it has no opinion.
func (r *Record) CanViewInSearch(_ context.Context, _ *domain.Member) (allowed, decided bool) {
	if r.showInSearch != nil && !*r.showInSearch {
		return false, true
	}
	return false, false
}

// Snippets returns highlighted excerpts keyed by field.
func (r *Record) Snippets() map[string]string { return r.snippets }

// SetSnippets attaches highlighted excerpts from a search hit.
func (r *Record) SetSnippets(snippets map[string]string) { r.snippets = snippets }

// ClickthroughLink returns the tracked redirect link, empty when tracking is off.
func (r *Record) ClickthroughLink() string { return r.clickthroughLink }

// SetClickthroughLink attaches the tracked redirect link.
func (r *Record) SetClickthroughLink(link string) { r.clickthroughLink = link }
