package pdf

// CaptureToPDF converts a stamp Y from capture space (top-left origin, as
// recorded by the signing page) into PDF user space (bottom-left origin).
// The returned value is the bottom edge of the stamp rectangle. Getting this
// wrong silently misplaces visible signatures without any error, so the
// conversion lives here as one function with its own tests.
func CaptureToPDF(pageHeight, captureY, stampHeight float64) float64 {
	return pageHeight - captureY - stampHeight
}
