package command

import "fmt"

// Opcode identifies a command on the wire.
type Opcode byte

// UnknownOpcode is the placeholder opcode used when no command context exists.
const UnknownOpcode Opcode = 0xFF

// String implements fmt.Stringer.
func (o Opcode) String() string {
	return fmt.Sprintf("0x%02X", byte(o))
}

// Handler runs a command. It must eventually call Exec.Finish, directly or
// from another goroutine, or the watchdog fails the command.
type Handler interface {
	Run(*Exec)
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(*Exec)

// Run implements Handler.
func (f HandlerFunc) Run(e *Exec) {
	f(e)
}

// Descriptor describes a command.
type Descriptor struct {
	Opcode  Opcode
	Name    string
	Handler Handler
}

// Ref is the index of a Descriptor in its Registry.
type Ref int

// NopRef refers to the no-op descriptor returned for unmatched opcodes.
const NopRef Ref = 0

var nopDescriptor = Descriptor{
	Opcode: UnknownOpcode,
	Name:   "NOP",
	Handler: HandlerFunc(func(e *Exec) {
		e.Finish(true)
	}),
}

// Registry maps opcodes to descriptors. It is immutable after creation.
type Registry struct {
	descs []Descriptor
	index [256]Ref
}

// NewRegistry creates a Registry. Later descriptors replace earlier ones with
// the same opcode.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{descs: make([]Descriptor, 1, len(descs)+1)}
	r.descs[0] = nopDescriptor
	for _, d := range descs {
		if ref := r.index[d.Opcode]; ref != NopRef {
			r.descs[ref] = d
			continue
		}
		r.index[d.Opcode] = Ref(len(r.descs))
		r.descs = append(r.descs, d)
	}
	return r
}

// Lookup finds the descriptor of an opcode. The no-op descriptor and NopRef
// are returned when nothing matches.
func (r *Registry) Lookup(op Opcode) (Ref, *Descriptor) {
	ref := r.index[op]
	return ref, &r.descs[ref]
}

// LookupName finds a descriptor by name.
func (r *Registry) LookupName(name string) (Ref, *Descriptor) {
	for n := 1; n < len(r.descs); n++ {
		if r.descs[n].Name == name {
			return Ref(n), &r.descs[n]
		}
	}
	return NopRef, &r.descs[NopRef]
}

// Descriptor returns the descriptor of a ref.
func (r *Registry) Descriptor(ref Ref) *Descriptor {
	if ref <= NopRef || int(ref) >= len(r.descs) {
		return &r.descs[NopRef]
	}
	return &r.descs[ref]
}

// Opcode is the reverse lookup of a ref.
func (r *Registry) Opcode(ref Ref) Opcode {
	return r.Descriptor(ref).Opcode
}

// Descriptors lists the registered descriptors without the no-op one.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descs[1:]...)
}
