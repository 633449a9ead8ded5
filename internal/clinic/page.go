package clinic

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based offset page.
type Page struct {
	Number int
	Size   int
}

// NewPage validates page and size. Zero values select the defaults.
func NewPage(number, size int) (Page, error) {
	if number == 0 {
		number = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if number < 1 {
		return Page{}, invalid("page", "must be >= 1")
	}
	if size < 1 || size > MaxPageSize {
		return Page{}, invalid("size", "must be between 1 and 100")
	}
	return Page{Number: number, Size: size}, nil
}

// Offset is the number of records skipped before this page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Limit is the page size, falling back to the default for a zero Page.
func (p Page) Limit() int {
	if p.Size < 1 {
		return DefaultPageSize
	}
	return p.Size
}

// PageOf is one page of results.
type PageOf[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

func pageOf[T any](items []T, p Page) PageOf[T] {
	if items == nil {
		items = []T{}
	}
	return PageOf[T]{Items: items, Page: max(p.Number, 1), Size: p.Limit()}
}

// window slices items for p; pages past the end are empty.
func window[T any](items []T, p Page) []T {
	off := p.Offset()
	if off >= len(items) {
		return nil
	}
	end := min(off+p.Limit(), len(items))
	return items[off:end]
}
