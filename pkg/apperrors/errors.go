package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrUnsupportedConnector = errors.New("unsupported connector type")
	ErrRunInProgress        = errors.New("a run is already in progress for this data source")
	ErrRunTerminal          = errors.New("run already reached a terminal state")
	ErrExtractorConsumed    = errors.New("extractor already performed extraction")
	ErrConnection           = errors.New("connection failed")
	ErrPersistence          = errors.New("persistence failed")
)
