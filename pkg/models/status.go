package models

// PageStatus represents the outcome of fetching and extracting one list page
type PageStatus string

const (
	PageStatusUnset    PageStatus = ""          // Zero value = unset/unknown
	PageStatusSuccess  PageStatus = "success"   // Page fetched and fully extracted
	PageStatusPartial  PageStatus = "partial"   // Extraction aborted mid-page; earlier entries kept
	PageStatusFailure  PageStatus = "failure"   // Fetch failed; page contributed nothing
	PageStatusNotFound PageStatus = "not_found" // Page not in ledger
	PageStatusDBError  PageStatus = "db_error"  // Ledger error occurred
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a recordable outcome
func (s PageStatus) IsValid() bool {
	switch s {
	case PageStatusSuccess, PageStatusPartial, PageStatusFailure:
		return true
	}
	return false
}

// Contributed reports whether the page added records to the dataset
func (s PageStatus) Contributed() bool {
	return s == PageStatusSuccess || s == PageStatusPartial
}
