package minutes

// File names inside a downloaded meeting document directory.
const (
	IndexPageFile = "index.htm"
	CoverPageFile = "htmtxt0.htm"
	OriginURLFile = "origin_url"
)
