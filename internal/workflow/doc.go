// Package workflow defines the Temporal workflows that front the chat and crop
// suitability activities.
//
// The workflows are thin: the ladders inside the activities already escalate
// between providers, so a workflow only validates input, sets activity options
// and retries failures the activity reports as retryable.
//
// Workflows must stay deterministic. No random numbers, system time or I/O;
// all of that happens inside activities.
package workflow
