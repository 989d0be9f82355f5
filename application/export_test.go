package application

// CloneTarget exports cloneTarget for testing.
var CloneTarget = cloneTarget //nolint:gochecknoglobals // test export
