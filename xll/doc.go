// Package xll bridges plugin code and the host's calculation engine. It
// invokes host functions with oper Values, registers the functions of a
// udf.Registry, and implements the add-in lifecycle callbacks the host
// drives: auto-open, auto-close, auto-free and function dispatch.
//
// Values returned by the host may point into host memory. Such Values carry
// the host-free bit and must be handed to Release, which gives the memory
// back to the host before freeing the Value.
package xll
