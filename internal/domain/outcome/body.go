package outcome

// Mono is the type-erased single-value body.
type Mono struct {
	Data    any
	Context string
}

// Duo is the type-erased two-value body.
type Duo struct {
	Data1    any
	Context1 string
	Data2    any
	Context2 string
}

// Lists is the type-erased two-list body.
type Lists struct {
	Data1    []any
	Context1 string
	Data2    []any
	Context2 string
}

// MonoBody is implemented by generic bodies shaped as Mono.
type MonoBody interface {
	Outcome
	Mono() Mono
}

// DuoBody is implemented by generic bodies shaped as Duo.
type DuoBody interface {
	Outcome
	Duo() Duo
}

// ListsBody is implemented by generic bodies shaped as Lists.
type ListsBody interface {
	Outcome
	Lists() Lists
}

// Pagination is embedded by outcome bodies that represent one page of a
// longer result. Page is zero-based.
type Pagination struct {
	Page       int
	TotalPages int
}

// PageInfo implements Paginated.
func (p Pagination) PageInfo() Pagination { return p }

// HasNext reports whether a later page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages-1 }

// HasPrevious reports whether an earlier page exists.
func (p Pagination) HasPrevious() bool { return p.Page > 0 }

// Paginated is an Outcome carrying page metadata.
type Paginated interface {
	Outcome
	PageInfo() Pagination
}

// PageInfoOf returns the page metadata of o, if it has any.
func PageInfoOf(o Outcome) (Pagination, bool) {
	p, ok := o.(Paginated)
	if !ok {
		return Pagination{}, false
	}
	return p.PageInfo(), true
}

// TotalPages returns how many pages are needed to show total items at size per
// page. An empty result still occupies one page.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
