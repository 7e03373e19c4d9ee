// Package ocrresult implements the hierarchical OCR result tree produced by
// recognition backends: Block → Paragraph → Line → Word → Symbol.
//
// Every level carries a bounding box and a confidence in [0,100]. The tree is
// immutable once attached to a box; serialization round-trips exactly.
//
// This package provides:
//
// - The object model for the recognition hierarchy
// - Text assembly rules shared by post-processing and the exporters
// - JSON (de)serialization in the project sidecar format
// - A builder that consumes depth-first element start markers
// - Ingestion of hOCR HTML as emitted by Tesseract
package ocrresult
