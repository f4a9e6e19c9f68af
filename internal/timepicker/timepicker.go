// Package timepicker reproduces the client-side state contract of the
// portal's RadDateTimePicker controls. Each picker keeps three redundant
// representations of its value: the visible text box, a JSON "client state"
// blob on the date input, and a mirrored blob on the control itself. The
// server-side validator reads the hidden blobs, not the visible text, so all
// three must encode the same instant before the form is submitted.
package timepicker

import (
	"encoding/json"
	"fmt"
	"time"
)

// Window is a reservation slot. Slots are always one hour long.
// EndHour is 24 when the slot starts at 23:00; the portal encodes that the
// same way a typed "12:00 PM" on the next slot boundary would be.
type Window struct {
	StartHour int
	EndHour   int
}

// NewWindow returns the one-hour window starting at startHour (24-hour).
func NewWindow(startHour int) Window {
	return Window{StartHour: startHour, EndHour: startHour + 1}
}

// FieldState holds the two computed representations for one picker field.
// The third representation (the JSON blob) is derived from these inside the
// injected update script.
type FieldState struct {
	// DisplayText is what a user would type, e.g. "11:00 AM".
	DisplayText string
	// ValidationValue is the dash-delimited form the server validates,
	// e.g. "2025-11-20-11-00-00".
	ValidationValue string
}

// FormatHour renders a 24-hour hour as the picker's visible text.
// Hour 0 renders as "12 AM" and hour 12 as "12 PM". Hour 24 (the end of a
// 23:00 slot) renders as "12 PM", matching what the control itself produces.
func FormatHour(hour24 int) string {
	period := "AM"
	if hour24 >= 12 {
		period = "PM"
	}
	hour12 := hour24 % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:00 %s", hour12, period)
}

// ValidationValue renders the hidden-state value for date at hour24,
// zero-padded: "YYYY-MM-DD-HH-00-00".
func ValidationValue(date time.Time, hour24 int) string {
	return fmt.Sprintf("%04d-%02d-%02d-%02d-00-00",
		date.Year(), int(date.Month()), date.Day(), hour24)
}

// Field computes both representations for one picker field.
func Field(date time.Time, hour24 int) FieldState {
	return FieldState{
		DisplayText:     FormatHour(hour24),
		ValidationValue: ValidationValue(date, hour24),
	}
}

// UpdateScript builds the JavaScript that applies state to the picker rooted
// at baseID. The script updates the visible input, rewrites the date input's
// client-state blob, and mirrors the serialized blob into the control's main
// client state so the two are byte-identical. A missing or empty blob is
// skipped; the control materializes it lazily.
//
// The whole update runs as one Evaluate call so the form is never submitted
// with the representations out of step.
func UpdateScript(baseID string, state FieldState) string {
	display := jsString(state.DisplayText)
	value := jsString(state.ValidationValue)
	visibleSel := jsString("#" + baseID + "_dateInput")
	hiddenSel := jsString("#" + baseID + "_dateInput_ClientState")
	mainSel := jsString("#" + baseID + "_ClientState")

	return fmt.Sprintf(`(function() {
	var display = %s;
	var value = %s;
	var visible = document.querySelector(%s);
	if (visible) {
		visible.value = display;
	}
	var hidden = document.querySelector(%s);
	if (hidden && hidden.value) {
		var state = JSON.parse(hidden.value);
		state.validationText = value;
		state.valueAsString = value;
		state.lastSetTextBoxValue = display;
		hidden.value = JSON.stringify(state);
	}
	var main = document.querySelector(%s);
	if (main && hidden) {
		main.value = hidden.value;
	}
	return true;
})()`, display, value, visibleSel, hiddenSel, mainSel)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
