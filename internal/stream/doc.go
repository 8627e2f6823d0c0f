// Package stream aggregates model output fragments into throttled updates.
//
// # Overview
//
// The completion service produces many small text fragments; the chat
// transport charges per message edit and caps payload sizes. The Aggregator
// sits between them: it buffers fragments and emits a snapshot of the entire
// accumulated text whenever the pending buffer grows past a threshold, then
// one final snapshot when the stream ends.
//
// Snapshots always contain the full text so far, not deltas. The delivery
// side can simply replace the displayed message on every snapshot, which is
// exactly the edit primitive Telegram offers.
//
// # Failure
//
// When the upstream call fails mid-stream, the Aggregator emits a final
// snapshot whose Err is a *GenerationError carrying the partial text, and
// stops. The orchestrator decides whether the partial answer is worth
// keeping in history.
package stream
