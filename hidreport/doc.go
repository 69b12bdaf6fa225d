// Package hidreport turns keymap key events into USB HID input reports.
//
// Agent implements keymap.Reporter: ReportPress/ReportRelease are called
// from the keymap dispatcher's own goroutine and update a single in-flight
// report, submitting it over a *hid.HID transport on a dedicated goroutine.
// The original firmware's low-latency submission rule — submit the first
// key event of a packet frame immediately, coalesce further events into the
// same unsent report only when doing so would not hide a press or its
// matching release from the host, and flush on the next frame — is
// preserved, but adapted to a blocking Write transport: the in-flight
// Write call IS the "frame", so there is no separate on_transfer_complete
// callback to drive from an interrupt.
//
// While USB is suspended, key events are buffered instead of submitted
// and a remote-wakeup request is raised on the first one; the buffer is
// dropped if USB does not become accessible again within
// suspendedEventLifetime.
package hidreport
