package ir

// FormatVersion is the bundle format version written to every bundle.
const FormatVersion = "1"
