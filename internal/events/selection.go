package events

import "time"

// SelectionStart is emitted before an entity is projected.
type SelectionStart struct {
	Source string
	Key    string
	Fields []string
}

// SelectionFinish is emitted after an entity is projected.
type SelectionFinish struct {
	Source   string
	Key      string
	Fields   []string
	Err      error
	Duration time.Duration
}

// SourceFetchStart is emitted before a source loads an entity.
type SourceFetchStart struct {
	Source string
	Key    string
}

// SourceFetchFinish is emitted after a source load completes.
type SourceFetchFinish struct {
	Source   string
	Key      string
	Err      error
	Duration time.Duration
}
