package dryml

import "fmt"

// InstructionKind tags a build instruction.
type InstructionKind int

const (
	// RenderPage carries the whole page body (Src, Line).
	RenderPage InstructionKind = iota + 1
	// Def carries a tag or template method (Name, Src, Line).
	Def
	// Part carries a named part method (Name, ID, Src, Line).
	Part
	// Include references another tag library source (Name, As).
	Include
	// ModuleImport references a host module (Name, As).
	ModuleImport
	// SetTheme selects a theme (Name).
	SetTheme
	// AliasMethod aliases an existing tag method (OldName, NewName).
	AliasMethod
)

var instructionKindNames = map[InstructionKind]string{
	RenderPage:   "render_page",
	Def:          "def",
	Part:         "part",
	Include:      "include",
	ModuleImport: "module",
	SetTheme:     "set_theme",
	AliasMethod:  "alias_method",
}

func (k InstructionKind) String() string {
	if s, ok := instructionKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("InstructionKind(%d)", int(k))
}

func (k InstructionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *InstructionKind) UnmarshalText(b []byte) error {
	for kind, name := range instructionKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown instruction kind %q", b)
}

// Instruction is a unit of generated source the Builder compiles on its own.
// Only the fields listed for its Kind are set.
type Instruction struct {
	Kind    InstructionKind `json:"kind" yaml:"kind"`
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	As      string          `json:"as,omitempty" yaml:"as,omitempty"`
	ID      string          `json:"id,omitempty" yaml:"id,omitempty"`
	Src     string          `json:"src,omitempty" yaml:"src,omitempty"`
	Line    int             `json:"line,omitempty" yaml:"line,omitempty"`
	OldName string          `json:"old_name,omitempty" yaml:"old_name,omitempty"`
	NewName string          `json:"new_name,omitempty" yaml:"new_name,omitempty"`
}

// ModuleRef is a host module imported by a template.
type ModuleRef struct {
	Name string `json:"name" yaml:"name"`
	As   string `json:"as,omitempty" yaml:"as,omitempty"`
}

// Instructions collects the build instructions of one parse pass in the
// order they were encountered.
type Instructions struct {
	list []Instruction
}

func (c *Instructions) add(in Instruction) {
	c.list = append(c.list, in)
}

func (c *Instructions) addRenderPage(src string) {
	c.add(Instruction{Kind: RenderPage, Src: src, Line: 1})
}

func (c *Instructions) addDef(name, src string, line int) {
	c.add(Instruction{Kind: Def, Name: name, Src: src, Line: line})
}

func (c *Instructions) addPart(name, id, src string, line int) {
	c.add(Instruction{Kind: Part, Name: name, ID: id, Src: src, Line: line})
}

func (c *Instructions) addInclude(src, as string) {
	c.add(Instruction{Kind: Include, Name: src, As: as})
}

func (c *Instructions) addModule(name, as string) {
	c.add(Instruction{Kind: ModuleImport, Name: name, As: as})
}

func (c *Instructions) addSetTheme(name string) {
	c.add(Instruction{Kind: SetTheme, Name: name})
}

func (c *Instructions) addAlias(oldName, newName string) {
	c.add(Instruction{Kind: AliasMethod, OldName: oldName, NewName: newName})
}

// List returns a copy of the collected instructions.
func (c *Instructions) List() []Instruction {
	out := make([]Instruction, len(c.list))
	copy(out, c.list)
	return out
}

// Modules returns the module imports, in order.
func (c *Instructions) Modules() []ModuleRef {
	var out []ModuleRef
	for _, in := range c.list {
		if in.Kind == ModuleImport {
			out = append(out, ModuleRef{Name: in.Name, As: in.As})
		}
	}
	return out
}

// Len returns the number of collected instructions.
func (c *Instructions) Len() int {
	return len(c.list)
}

func (c *Instructions) reset() {
	c.list = nil
}
