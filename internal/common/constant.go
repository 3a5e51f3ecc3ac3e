package common

// DefaultExportPrefix is the object key prefix used for directory exports.
const DefaultExportPrefix = "exports"
