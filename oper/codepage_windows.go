//go:build windows

package oper

import "golang.org/x/sys/windows"

func activeCodePage() uint32 {
	return windows.GetACP()
}
