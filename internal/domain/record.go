package domain

import "context"

// Member is the site visitor a search runs on behalf of. A nil *Member is anonymous.
type Member struct {
	ID     string
	Groups []string
}

// InGroup reports whether the member belongs to group.
func (m *Member) InGroup(group string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Record is a live framework record a search hit resolves to.
type Record interface {
	ID() string
	ClassName() string
	Title() string
	Link() string
	Exists() bool
	CanView(ctx context.Context, member *Member) bool

	Snippets() map[string]string
	SetSnippets(snippets map[string]string)
	ClickthroughLink() string
	SetClickthroughLink(link string)
}

// SearchViewer is implemented by records with a dedicated search visibility rule.
// decided=false means no opinion, and the general CanView check applies.
type SearchViewer interface {
	CanViewInSearch(ctx context.Context, member *Member) (allowed, decided bool)
}

// RecordStore loads records by base class and ID.
// Returns ErrNotFound when the record does not exist, and ErrRecordResolution
// when the class is unknown.
type RecordStore interface {
	Resolve(ctx context.Context, className, id string) (Record, error)
}

type memberCtxKey struct{}

// ContextWithMember stores the current member in the context.
func ContextWithMember(ctx context.Context, m *Member) context.Context {
	return context.WithValue(ctx, memberCtxKey{}, m)
}

// MemberFromContext returns the current member, or nil for anonymous visitors.
func MemberFromContext(ctx context.Context) *Member {
	m, _ := ctx.Value(memberCtxKey{}).(*Member)
	return m
}
