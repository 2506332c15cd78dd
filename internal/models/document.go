package models

// PageRecord is one assembled page: the encoded JPEG that will be embedded in the PDF
// plus the metadata the splitter needs to place it.
type PageRecord struct {
	ID           string
	Data         []byte
	Rotation     int
	Width        int
	Height       int
	SectionBreak bool
}

// Size is the estimated contribution of the page to its PDF, in bytes.
func (p PageRecord) Size() int64 { return int64(len(p.Data)) }

// OutputDocument is a group of pages written to one PDF file.
type OutputDocument struct {
	Index int
	Name  string
	Pages []PageRecord
	Bytes int64
}

// IDs returns the identifiers of the document's pages in order.
func (d OutputDocument) IDs() []string {
	ids := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		ids[i] = p.ID
	}
	return ids
}
