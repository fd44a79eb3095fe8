package tac

import "fmt"

// Frame layout constants for a 32-bit word size: variables are 4 bytes
// wide, the first local sits at fp-8 to skip the saved fp/ra pair, and
// the first parameter sits at fp+4 past the saved fp.
const (
	WordSize           = 4
	OffsetToFirstParam = 4
	OffsetToFirstLocal = -8
	OffsetToFirstGlobal = 0
)

// Builder holds one flat instruction list plus five counters (temp,
// label and global only grow; local and param are reset per function),
// held by pointer so tests can run independent compilations
// rather than sharing one package-level global: state only needs to
// live as long as a single compilation.
type Builder struct {
	instrs []Instruction

	tempCounter   int
	labelCounter  int
	localCounter  int
	paramCounter  int
	globalCounter int

	vtables []*VTable
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) emit(i Instruction) { b.instrs = append(b.instrs, i) }

// Instructions returns the flat instruction list built so far.
func (b *Builder) Instructions() []Instruction { return b.instrs }

// NewTemp allocates a fresh, uniquely-named local-segment temporary.
func (b *Builder) NewTemp() *Location {
	offset := int64(OffsetToFirstLocal) - int64(WordSize)*int64(b.localCounter)
	b.localCounter++
	name := fmt.Sprintf("_tmp%d", b.tempCounter)
	b.tempCounter++
	return &Location{Name: name, Segment: FPRelative, Offset: offset}
}

// NewLocal allocates a named local-segment slot for a block-scoped
// variable declaration.
func (b *Builder) NewLocal(name string) *Location {
	offset := int64(OffsetToFirstLocal) - int64(WordSize)*int64(b.localCounter)
	b.localCounter++
	return &Location{Name: name, Segment: FPRelative, Offset: offset}
}

// NewParam allocates the next parameter slot, growing upward from
// OffsetToFirstParam.
func (b *Builder) NewParam(name string) *Location {
	offset := int64(OffsetToFirstParam) + int64(WordSize)*int64(b.paramCounter)
	b.paramCounter++
	return &Location{Name: name, Segment: FPRelative, Offset: offset}
}

// NewGlobal allocates the next global-segment slot.
func (b *Builder) NewGlobal(name string) *Location {
	offset := int64(OffsetToFirstGlobal) + int64(WordSize)*int64(b.globalCounter)
	b.globalCounter++
	return &Location{Name: name, Segment: GPRelative, Offset: offset}
}

// NewLabelName mints the next monotonically-increasing synthetic label.
func (b *Builder) NewLabelName() string {
	name := fmt.Sprintf("_L%d", b.labelCounter)
	b.labelCounter++
	return name
}

// BeginFunction emits the prologue for a function labeled label
// (already formatted per naming conventions by the caller) and resets
// the per-function param/local counters. It returns the BeginFunc
// instruction so the caller can back-patch FrameSize once the body is
// fully lowered.
func (b *Builder) BeginFunction(label string) *BeginFunc {
	b.emit(&Label{Name: label})
	begin := &BeginFunc{}
	b.emit(begin)
	b.paramCounter = 0
	b.localCounter = 0
	return begin
}

// EndFunction closes out a function, back-patching begin's frame size
// from the local counter's high-water mark and emitting EndFunc.
func (b *Builder) EndFunction(begin *BeginFunc) {
	begin.FrameSize = int64(WordSize) * int64(b.localCounter)
	b.emit(&EndFunc{})
}

// AddVTable records a class's method table for emission after all
// declarations have been lowered: a vtable pseudo-instruction is
// written per class once every declaration has emitted.
func (b *Builder) AddVTable(label string, methodLabels []string) {
	b.vtables = append(b.vtables, &VTable{Label: label, MethodLabels: methodLabels})
}

// FlushVTables appends the accumulated VTable pseudo-instructions to
// the instruction stream. Called once, after every top-level
// declaration has been lowered.
func (b *Builder) FlushVTables() {
	for _, vt := range b.vtables {
		b.emit(vt)
	}
	b.vtables = nil
}

func (b *Builder) Emit(i Instruction)  { b.emit(i) }
func (b *Builder) EmitLabel(name string) { b.emit(&Label{Name: name}) }
