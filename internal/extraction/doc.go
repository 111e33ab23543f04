// Package extraction defines the contracts between worker lanes and the
// external engines that turn document bytes into text.
//
// Two engines exist. The text engine answers synchronously and serves the
// fast tier; it also refines OCR output for the heavy tier. The OCR engine
// accepts batch jobs and is polled until they finish. Worker lanes depend
// only on the Engine, BatchEngine, and Refiner interfaces here, so tests
// substitute in-memory fakes and the HTTP clients live with the other
// external service clients.
//
// The package also carries the pure helpers the pipeline applies to engine
// output: RenderHTML for the formatted text field and Assess for the
// quality gate.
package extraction
