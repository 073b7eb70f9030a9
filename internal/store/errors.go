package store

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrTemplateNotFound    = errors.New("driver template not found")
	ErrDuplicateDependency = errors.New("dependency already exists")
)
