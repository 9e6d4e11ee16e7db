// Package adapters defines the provider-agnostic generation contract and the
// HTTP plumbing shared by upstream clients.
//
// Subpackages:
//   - openai: OpenAI-compatible chat completions (OpenAI, Groq, Blackbox, ...)
package adapters
