// Package textengine talks to the synchronous recognition service. The
// fast tier pushes whole documents through Recognize in one round trip,
// and the heavy tier reuses the same service's refine endpoint to repair
// OCR output.
package textengine
