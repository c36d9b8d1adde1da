// Package ocrtesseract runs Tesseract in process through gosseract. It needs
// the tesseract and leptonica libraries at build time, so the real engine is
// only compiled with the "tesseract" build tag; without it New reports the
// engine as unavailable.
package ocrtesseract

const EngineName = "tesseract"
