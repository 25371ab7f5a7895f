package logging

import (
	"context"
	"log/slog"
)

// MeasureKey marks records that belong to a measurement run (bound
// improvements, run end).
const MeasureKey = "measure"

// Measure returns the attribute that lets a record through a
// MeasurementHandler.
func Measure() slog.Attr {
	return slog.Bool(MeasureKey, true)
}

// MeasurementHandler drops every record that is not tagged with Measure(),
// either on the record itself or on the logger it was emitted from.
type MeasurementHandler struct {
	next     slog.Handler
	measured bool
}

// NewMeasurementHandler wraps next.
func NewMeasurementHandler(next slog.Handler) *MeasurementHandler {
	return &MeasurementHandler{next: next}
}

func (h *MeasurementHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MeasurementHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.measured || hasMeasure(r) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *MeasurementHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	measured := h.measured
	for _, a := range attrs {
		if isMeasure(a) {
			measured = true
		}
	}
	return &MeasurementHandler{next: h.next.WithAttrs(attrs), measured: measured}
}

func (h *MeasurementHandler) WithGroup(name string) slog.Handler {
	return &MeasurementHandler{next: h.next.WithGroup(name), measured: h.measured}
}

func hasMeasure(r slog.Record) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if isMeasure(a) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isMeasure(a slog.Attr) bool {
	return a.Key == MeasureKey && a.Value.Kind() == slog.KindBool && a.Value.Bool()
}
