// Package errors defines the structured error model used by the engine.
//
// Every failure carries a code (what went wrong) and a category (how to
// handle it). The retry manager keys off the category: permanent errors
// fail a task immediately, everything else is eligible for another
// attempt until the retry budget runs out.
//
// Errors also carry optional task and agent identifiers so status
// surfaces and error handlers can attribute a failure without parsing
// the message.
package errors
