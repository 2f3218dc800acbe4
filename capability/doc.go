// Package capability defines how agents actually do work.
//
// A Capability takes an instruction and produces output; the executor
// invokes one per attempt and never learns what is behind it. The
// package ships LLM-backed capabilities for Anthropic, OpenAI, and
// Google Gemini, each wrapping the official SDK with bounded retry and
// exponential backoff, plus mocks for tests and examples.
package capability
