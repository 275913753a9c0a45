package modules

import (
	"encoding/json"
	"fmt"

	eventloop "github.com/inference-gateway/modui/eventloop"
	storage "github.com/inference-gateway/modui/internal/storage"
)

// NewRecord converts ev into its persisted and wire form. The user payload
// is JSON encoded for user events only.
func NewRecord[T any](runID string, ev *eventloop.Event[T]) (storage.Record, error) {
	rec := storage.Record{
		RunID:  runID,
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		Key:    ev.Key,
		Mods:   ev.Mods.String(),
		X:      ev.X,
		Y:      ev.Y,
		Button: ev.Button,
		Width:  ev.Width,
		Height: ev.Height,
		Text:   ev.Text,
		Time:   ev.Time,
	}
	if ev.Kind == eventloop.KindUser {
		payload, err := json.Marshal(ev.User)
		if err != nil {
			return storage.Record{}, fmt.Errorf("failed to encode user payload: %w", err)
		}
		rec.Payload = payload
	}
	return rec, nil
}
