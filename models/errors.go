package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrViewNotFound   = errors.New("view not found")
	ErrUnknownReport  = errors.New("unknown report")
	ErrRecordBusy     = errors.New("another change to this record is in progress")
)

// NetworkError means the request failed before any response arrived.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError is a client-side form check failure; nothing was sent upstream.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// MutationError means the backend rejected a field update; the local change was reverted.
type MutationError struct {
	RecordID string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("update of record %s failed: %v", e.RecordID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// RejectedError is a 2xx answer whose envelope says status:false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "request rejected"
	}
	return "request rejected: " + e.Message
}
