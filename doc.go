// Package ember provides a privacy-first, self-governing AI assistant
// core: a three-mode privacy controller gates every cloud model call, a
// five-layer decaying memory (CORTEX) remembers across sessions, a
// knowledge-provider router supplements answers with live data, and a
// Governance Engine adapts tone and picks agents per request.
//
// # Quick Start
//
// Run the server:
//
//	go run ./cmd/ember --config config.yaml
//
// # Architecture
//
//	Client → API (chi/websocket) → Governance Engine → Orchestrator → Model backends
//	                                       ↓                  ↓
//	                                 CORTEX memory      Knowledge router
//
// See SPEC_FULL.md for the full component design.
package ember
