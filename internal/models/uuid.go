// Package models provides data model definitions for FieldSync.
package models

// UUID is a string-typed UUID v4 identifier.
type UUID string
