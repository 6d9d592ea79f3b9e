package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// textIDHandlers keys records by their text id column. Orchestration ids
// and step ids are not UUIDs, so the repository may only mint an id for a
// record that has none and must never rewrite one the caller chose.
func textIDHandlers[T any](newRecord func() T, id func(T) *string) repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			field := id(record)
			if field == nil {
				return uuid.Nil
			}
			parsed, err := uuid.Parse(strings.TrimSpace(*field))
			if err != nil {
				return uuid.Nil
			}
			return parsed
		},
		SetID: func(record T, value uuid.UUID) {
			field := id(record)
			if field == nil || value == uuid.Nil || strings.TrimSpace(*field) != "" {
				return
			}
			*field = value.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record T) string {
			field := id(record)
			if field == nil {
				return ""
			}
			return strings.TrimSpace(*field)
		},
	}
}

func instanceHandlers() repository.ModelHandlers[*instanceRecord] {
	return textIDHandlers(
		func() *instanceRecord { return &instanceRecord{} },
		func(record *instanceRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func stepHandlers() repository.ModelHandlers[*stepRecord] {
	return textIDHandlers(
		func() *stepRecord { return &stepRecord{} },
		func(record *stepRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func resultHandlers() repository.ModelHandlers[*resultRecord] {
	return textIDHandlers(
		func() *resultRecord { return &resultRecord{} },
		func(record *resultRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}
