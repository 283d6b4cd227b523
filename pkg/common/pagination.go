package common

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based window over a listing.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps the page to at least 1. Sizes outside 1..MaxPageSize fall
// back to DefaultPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type PaginationResult struct {
	Message     string      `json:"message"`
	Data        interface{} `json:"data"`
	Count       int64       `json:"count"`
	CurrentPage int         `json:"currentPage"`
	NextPage    int         `json:"nextPage"`
	PrevPage    int         `json:"prevPage"`
	LastPage    int         `json:"lastPage"`
}

// PaginateResponse wraps one page of rows out of total. NextPage and PrevPage
// are 0 when there is no such page.
func PaginateResponse(data interface{}, total int64, page Page, message string) PaginationResult {
	if message == "" {
		message = "success"
	}

	lastPage := 0
	if page.Size > 0 {
		lastPage = int((total + int64(page.Size) - 1) / int64(page.Size))
	}

	res := PaginationResult{
		Message:     message,
		Data:        data,
		Count:       total,
		CurrentPage: page.Number,
	}
	if page.Number < lastPage {
		res.NextPage = page.Number + 1
	}
	if page.Number > 1 {
		res.PrevPage = page.Number - 1
	}
	res.LastPage = lastPage
	return res
}
