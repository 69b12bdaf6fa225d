package hidreport

import "time"

// queueCapacity is the number of key events the pending-submission ring can
// hold before Push either blocks (USB accessible) or starts overwriting the
// oldest entry (USB suspended). Must be a power of two.
const queueCapacity = 32

// reportIntervalMS is the interrupt IN endpoint's polling interval in
// milliseconds. Nothing in the module reads it.
const reportIntervalMS = 10

// suspendedEventLifetime bounds how long key events survive in the
// suspend-buffering queue before being dropped; a key held across a USB
// suspend that outlasts this is simply not replayed on resume.
const suspendedEventLifetime = 4 * time.Second

// delayAfterResumed is how long to wait, after HandleResume, before
// trusting the link is fully accessible again and resuming live
// submission.
const delayAfterResumed = 500 * time.Millisecond
