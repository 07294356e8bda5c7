//go:build !windows

package oper

func activeCodePage() uint32 {
	return 1252
}
