// Package udf holds the worksheet functions an add-in exposes: their
// registration metadata, their handlers and the middleware wrapped around
// them. It has no dependency on the host; the xll package publishes a
// Registry to the host and routes calls back into it.
package udf
