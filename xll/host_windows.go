//go:build windows

package xll

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// excelHost calls the host's exported callback from inside its process.
type excelHost struct {
	proc uintptr
}

// Excel returns the Host of the running process. It fails when the process
// does not export the host callback, for example outside the spreadsheet
// application.
func Excel() (Host, error) {
	var mod windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &mod); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHost, err)
	}
	proc, err := windows.GetProcAddress(mod, "MdCallBack12")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHost, err)
	}
	return &excelHost{proc: proc}, nil
}

func (h *excelHost) Call(fn xlcall.Func, out *oper.Value, args ...*oper.Value) xlcall.Ret {
	if len(args) > MaxArgs {
		return xlcall.RetInvCount
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	// Only the records are pinned; payload buffers stay reachable through the
	// plugin allocator and are never moved.
	ptrs := make([]*xlcall.XLOPER12, len(args))
	for i, a := range args {
		raw := a.Raw()
		pinner.Pin(raw)
		ptrs[i] = raw
	}
	var argv, res uintptr
	if len(ptrs) > 0 {
		pinner.Pin(&ptrs[0])
		argv = uintptr(unsafe.Pointer(&ptrs[0]))
	}
	if out != nil {
		raw := out.Raw()
		pinner.Pin(raw)
		res = uintptr(unsafe.Pointer(raw))
	}

	r, _, _ := syscall.SyscallN(h.proc, uintptr(fn), uintptr(len(ptrs)), argv, res)
	return xlcall.Ret(int32(r))
}
