package models

import "errors"

var (
	// ErrNoStartNode is returned by export when no existing start node is set.
	ErrNoStartNode = errors.New("no start node")
	// ErrImportParse is returned when a story or character file cannot be parsed.
	ErrImportParse = errors.New("import parse error")
	// ErrNodeNotFound is returned when a node id does not resolve.
	ErrNodeNotFound = errors.New("node not found")
)
