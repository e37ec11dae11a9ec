// Package dispatch implements the due-job sweep.
//
// A sweep selects up to a batch of pending jobs whose scheduled time has
// passed, earliest first, and handles each one in turn:
//
//  1. Claim it with a conditional pending to processing update. A job another
//     sweep claimed first is skipped.
//  2. Resolve its attachments. An attachment that cannot be read is dropped.
//  3. Send the message.
//  4. Record sent with the sweep instant, or failed with the sender's error
//     message and an incremented retry counter.
//
// Every trigger (HTTP, schedule, development ticker, CLI) calls the same
// Dispatcher.
package dispatch
