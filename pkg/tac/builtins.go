package tac

// Builtin runtime entry point labels.
const (
	builtinAlloc        = "_Alloc"
	builtinReadLine      = "_ReadLine"
	builtinReadInteger   = "_ReadInteger"
	builtinStringEqual   = "_StringEqual"
	builtinPrintInt      = "_PrintInt"
	builtinPrintString   = "_PrintString"
	builtinPrintBool     = "_PrintBool"
	builtinHalt          = "_Halt"
)

const (
	errArrOutOfBounds = "runtime error: array subscript out of bounds\n"
	errArrBadSize     = "runtime error: array size is <= 0\n"
)

// functionLabel names a free function's entry label: `_<name>`,
// except the program entry which is the bare string `main`.
func functionLabel(name string) string {
	if name == "main" {
		return "main"
	}
	return "_" + name
}

// methodLabel names a method's entry label: `_<ClassName>.<methodName>`.
func methodLabel(className, methodName string) string {
	return "_" + className + "." + methodName
}

// vtableLabel names a class's vtable pseudo-instruction.
func vtableLabel(className string) string {
	return "_" + className + "_vtable"
}
