package roster

import "errors"

var (
	ErrUnsupportedFile = errors.New("please select a CSV or Excel file (.csv, .xlsx, .xls)")
	ErrBusy            = errors.New("another request of this kind is still in progress")
	ErrNoDialog        = errors.New("no duplicates are awaiting resolution")
	ErrUnknownRow      = errors.New("unknown duplicate row")
	ErrUnknownMatch    = errors.New("existing record is not a match for this row")
)
