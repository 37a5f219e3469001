package domain

// Page selects a window of a listing. Numbers start from 1.
type Page struct {
	Number int
	Size   int
}

func NewPage(pageNumber, pageSize int) Page {
	pNumber := 1
	if pageNumber > 0 {
		pNumber = pageNumber
	}

	pSize := 10
	if pageSize > 0 {
		pSize = pageSize
	}

	return Page{
		Number: pNumber,
		Size:   pSize,
	}
}

// Bounds returns the [start, end) indexes of the page over a listing of
// total elements.
func (p Page) Bounds(total int) (int, int) {
	start := (p.Number - 1) * p.Size
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + p.Size
	if end > total {
		end = total
	}
	return start, end
}
