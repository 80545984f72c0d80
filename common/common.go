// Package common holds build-level constants shared by the pipeline binaries.
package common

// PackageName is used as the metrics namespace and in log attributes.
const PackageName = "rs-eigentrust"

// Version is overridden at build time via -ldflags.
var Version = "dev"
