package graph

import "errors"

// Sentinel errors returned by State lookups.
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNodeExiting  = errors.New("node is exiting")
)

// Reasons attached to dropped snapshot records.
const (
	DropUnknownEndpoint = "unknown_endpoint"
	DropSelfLink        = "self_link"
	DropTargetEndpoint  = "target_endpoint"
	DropEmptyWord       = "empty_word"
)
