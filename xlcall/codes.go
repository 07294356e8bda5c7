package xlcall

import "fmt"

// Type bits of XLOPER12.Xltype.
const (
	TypeNum     uint32 = 0x0001
	TypeStr     uint32 = 0x0002
	TypeBool    uint32 = 0x0004
	TypeRef     uint32 = 0x0008
	TypeErr     uint32 = 0x0010
	TypeFlow    uint32 = 0x0020
	TypeMulti   uint32 = 0x0040
	TypeMissing uint32 = 0x0080
	TypeNil     uint32 = 0x0100
	TypeSRef    uint32 = 0x0400
	TypeInt     uint32 = 0x0800
	TypeBigData uint32 = TypeStr | TypeInt

	// TypeMask selects the type bits.
	TypeMask uint32 = 0x0FFF
)

// Ownership bits of XLOPER12.Xltype.
const (
	// BitXLFree marks a value whose memory the host must reclaim.
	BitXLFree uint32 = 0x1000
	// BitDLLFree marks a value whose memory the plugin must reclaim when the
	// host hands it back through the auto-free callback.
	BitDLLFree uint32 = 0x4000
)

// Error codes carried by TypeErr values.
const (
	ErrNull        int32 = 0
	ErrDiv0        int32 = 7
	ErrValue       int32 = 15
	ErrRef         int32 = 23
	ErrName        int32 = 29
	ErrNum         int32 = 36
	ErrNA          int32 = 42
	ErrGettingData int32 = 43
)

// Func is a host function code.
type Func uint32

// Function code class bits.
const (
	Command Func = 0x8000
	Special Func = 0x4000
	Intl    Func = 0x2000
	Prompt  Func = 0x1000
)

// Special functions.
const (
	Free          Func = 0 | Special
	Stack         Func = 1 | Special
	Coerce        Func = 2 | Special
	Set           Func = 3 | Special
	SheetID       Func = 4 | Special
	SheetNm       Func = 5 | Special
	Abort         Func = 6 | Special
	GetInst       Func = 7 | Special
	GetHwnd       Func = 8 | Special
	GetName       Func = 9 | Special
	EnableXLMsgs  Func = 10 | Special
	DisableXLMsgs Func = 11 | Special
	AsyncReturn   Func = 16 | Special
	EventRegister Func = 17 | Special
)

// Worksheet and macro-sheet functions used by the bridge.
const (
	FnSum         Func = 4
	FnCaller      Func = 89
	FnRegister    Func = 149
	FnUnregister  Func = 201
	FnEvaluate    Func = 257
	FnRegisterID  Func = 267
	FnConcatenate Func = 336

	CmdAlert   Func = 118 | Command
	CmdMessage Func = 122 | Command
)

var funcNames = map[Func]string{
	Free:          "xlFree",
	Stack:         "xlStack",
	Coerce:        "xlCoerce",
	Set:           "xlSet",
	SheetID:       "xlSheetId",
	SheetNm:       "xlSheetNm",
	Abort:         "xlAbort",
	GetInst:       "xlGetInst",
	GetHwnd:       "xlGetHwnd",
	GetName:       "xlGetName",
	EnableXLMsgs:  "xlEnableXLMsgs",
	DisableXLMsgs: "xlDisableXLMsgs",
	AsyncReturn:   "xlAsyncReturn",
	EventRegister: "xlEventRegister",
	FnSum:         "xlfSum",
	FnCaller:      "xlfCaller",
	FnRegister:    "xlfRegister",
	FnUnregister:  "xlfUnregister",
	FnEvaluate:    "xlfEvaluate",
	FnRegisterID:  "xlfRegisterId",
	FnConcatenate: "xlfConcatenate",
	CmdAlert:      "xlcAlert",
	CmdMessage:    "xlcMessage",
}

func (f Func) String() string {
	if name, ok := funcNames[f]; ok {
		return name
	}
	return fmt.Sprintf("func(%#x)", uint32(f))
}

// Ret is the status returned by the host call primitive.
type Ret int32

// Return codes.
const (
	RetSuccess                Ret = 0
	RetAbort                  Ret = 1
	RetInvXlfn                Ret = 2
	RetInvCount               Ret = 4
	RetInvXloper              Ret = 8
	RetStackOvfl              Ret = 16
	RetFailed                 Ret = 32
	RetUncalced               Ret = 64
	RetNotThreadSafe          Ret = 128
	RetInvAsynchronousContext Ret = 256
	RetNotClusterSafe         Ret = 512
)

var retNames = []struct {
	ret  Ret
	name string
}{
	{RetAbort, "abort"},
	{RetInvXlfn, "invalid function"},
	{RetInvCount, "invalid argument count"},
	{RetInvXloper, "invalid value"},
	{RetStackOvfl, "stack overflow"},
	{RetFailed, "command failed"},
	{RetUncalced, "uncalculated cell"},
	{RetNotThreadSafe, "not thread safe"},
	{RetInvAsynchronousContext, "invalid asynchronous context"},
	{RetNotClusterSafe, "not cluster safe"},
}

// String describes the return code. Several failure bits may be set at once.
func (r Ret) String() string {
	if r == RetSuccess {
		return "success"
	}
	s := ""
	for _, rn := range retNames {
		if r&rn.ret != 0 {
			if s != "" {
				s += ", "
			}
			s += rn.name
		}
	}
	if s == "" {
		return fmt.Sprintf("ret(%d)", int32(r))
	}
	return s
}

// OK reports whether the call succeeded.
func (r Ret) OK() bool {
	return r == RetSuccess
}
